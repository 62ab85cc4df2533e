// Package theme maps provider condition categories onto the widget's
// background styles.
package theme

import (
	"strings"
	"sync"

	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
)

// Category is one background style. Exactly one is active at a time.
type Category string

const (
	Clear        Category = "clear"
	Clouds       Category = "clouds"
	Rain         Category = "rain"
	Thunderstorm Category = "thunderstorm"
	Snow         Category = "snow"
	Fog          Category = "fog"
	Tornado      Category = "tornado"
	Default      Category = "default"
)

// Categories lists every category in display order.
var Categories = []Category{Clear, Clouds, Rain, Thunderstorm, Snow, Fog, Tornado, Default}

var byCondition = map[string]Category{
	"clear":        Clear,
	"clouds":       Clouds,
	"rain":         Rain,
	"drizzle":      Rain,
	"thunderstorm": Thunderstorm,
	"storm":        Thunderstorm,
	"snow":         Snow,
	"mist":         Fog,
	"fog":          Fog,
	"haze":         Fog,
	"smoke":        Fog,
	"dust":         Fog,
	"sand":         Fog,
	"ash":          Fog,
	"squall":       Fog,
	"tornado":      Tornado,
}

// ForCondition maps a provider condition category ("Rain", "Mist", ...) to a
// background. Matching is case-insensitive; anything unrecognised is Default.
func ForCondition(condition string) Category {
	if c, ok := byCondition[strings.ToLower(strings.TrimSpace(condition))]; ok {
		return c
	}
	return Default
}

// CSSClass is the class name applied to the page body.
func (c Category) CSSClass() string {
	if c == "" {
		return string(Default)
	}
	return string(c)
}

// Presentation holds the active background. The zero value reports Default.
type Presentation struct {
	mu     sync.Mutex
	active Category
}

// Apply selects the background for condition and makes it the only active one.
func (p *Presentation) Apply(condition string) Category {
	c := ForCondition(condition)
	p.Set(c)
	return c
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Set replaces whatever was active with c. Unrecognised categories become Default.
func (p *Presentation) Set(c Category) {
	if !c.Valid() {
		c = Default
	}
	p.mu.Lock()
	p.active = c
	p.mu.Unlock()
	observability.ThemeAppliedTotal.WithLabelValues(string(c)).Inc()
}

// Active returns the current category.
func (p *Presentation) Active() Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == "" {
		return Default
	}
	return p.active
}
