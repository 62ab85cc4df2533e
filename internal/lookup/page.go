package lookup

import (
	"sync"

	"github.com/kjstillabower/weather-lookup-widget/internal/theme"
)

// Page is the state of one widget instance: the query field, the display
// region and the background. Every write fully replaces the previous value,
// so concurrent lookups are last-write-wins.
type Page struct {
	mu           sync.Mutex
	query        string
	view         View
	presentation theme.Presentation
}

// PageState is a copy of a Page for rendering.
type PageState struct {
	Query string
	View  View
	Theme theme.Category
}

// Shown reports whether the display region has content.
func (s PageState) Shown() bool {
	return s.View.Kind != KindNone
}

// SetQuery replaces the query field value.
func (p *Page) SetQuery(q string) {
	p.mu.Lock()
	p.query = q
	p.mu.Unlock()
}

// Query returns the query field value.
func (p *Page) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Apply renders res into the page. On success the query field is cleared and
// the background switched to the condition's category; other outcomes leave
// both untouched.
func (p *Page) Apply(res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = res.View
	if res.ClearQuery() {
		p.query = ""
		p.presentation.Apply(res.Condition)
	}
}

// State returns a snapshot of the page.
func (p *Page) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PageState{
		Query: p.query,
		View:  p.view,
		Theme: p.presentation.Active(),
	}
}
