// Package render draws lookup views as HTML for the web widget and as plain
// text for the terminal widget.
package render

import (
	"embed"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"

	"github.com/kjstillabower/weather-lookup-widget/internal/lookup"
	"github.com/kjstillabower/weather-lookup-widget/internal/theme"
)

// DefaultTitle is the page heading when PageData.Title is empty.
const DefaultTitle = "Weather Lookup"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").
			Funcs(htmltemplate.FuncMap{"kindClass": kindClass}).
			ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.New("").ParseFS(templateFS, "templates/*.txt.tmpl"))
)

// PageData is everything the full widget page needs.
type PageData struct {
	Title string
	Theme theme.Category
	State lookup.PageState
}

// NewPageData snapshots page for rendering.
func NewPageData(page *lookup.Page) PageData {
	state := page.State()
	return PageData{
		Title: DefaultTitle,
		Theme: state.Theme,
		State: state,
	}
}

// Fragment writes the display region markup for v. Every value is escaped.
func Fragment(w io.Writer, v lookup.View) error {
	return htmlTemplates.ExecuteTemplate(w, "fragment", v)
}

// Document writes the complete widget page.
func Document(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	if data.Theme == "" {
		data.Theme = theme.Default
	}
	return htmlTemplates.ExecuteTemplate(w, "document", data)
}

// Text writes v as a plain-text card.
func Text(w io.Writer, v lookup.View) error {
	return textTemplates.ExecuteTemplate(w, "card", v)
}

func kindClass(k lookup.Kind) string {
	if k.IsError() {
		return "error"
	}
	return "notice"
}
