package models

import "strings"

// GeoLocation is one candidate returned by the direct geocoding endpoint.
type GeoLocation struct {
	Name    string   `json:"name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Country string   `json:"country"`
	State   *string  `json:"state,omitempty"` // absent for many countries
}

// Coordinates returns lat and lon. ok is false when either was missing.
func (g GeoLocation) Coordinates() (lat, lon float64, ok bool) {
	if g.Lat == nil || g.Lon == nil {
		return 0, 0, false
	}
	return *g.Lat, *g.Lon, true
}

// Region returns the trimmed state/region and whether one was present.
func (g GeoLocation) Region() (string, bool) {
	if g.State == nil {
		return "", false
	}
	s := strings.TrimSpace(*g.State)
	return s, s != ""
}

// DisplayName joins name, optional region and country with ", ".
// Empty parts are skipped so a missing region never leaves a dangling separator.
func (g GeoLocation) DisplayName() string {
	parts := make([]string, 0, 3)
	if name := strings.TrimSpace(g.Name); name != "" {
		parts = append(parts, name)
	}
	if region, ok := g.Region(); ok {
		parts = append(parts, region)
	}
	if country := strings.TrimSpace(g.Country); country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}
