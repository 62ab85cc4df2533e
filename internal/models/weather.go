package models

// KelvinOffset converts between Kelvin and Celsius.
const KelvinOffset = 273.15

// Condition is one entry of the provider's weather array.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Readings is the provider's "main" block.
type Readings struct {
	TempKelvin float64 `json:"temp"`
	Humidity   int     `json:"humidity"`
}

// WindReadings is the provider's "wind" block.
type WindReadings struct {
	Speed float64 `json:"speed"`
}

// WeatherSnapshot is the subset of the current-weather response the widget renders.
// Temperatures are Kelvin; the request never asks for metric units.
// Main and Wind are nil when the provider omitted them.
type WeatherSnapshot struct {
	Conditions []Condition   `json:"weather"`
	Main       *Readings     `json:"main"`
	Wind       *WindReadings `json:"wind"`
}

// Primary returns the first condition. ok is false when the provider sent none.
func (w WeatherSnapshot) Primary() (Condition, bool) {
	if len(w.Conditions) == 0 {
		return Condition{}, false
	}
	return w.Conditions[0], true
}

// Complete reports whether both the main and wind blocks were present.
func (w WeatherSnapshot) Complete() bool {
	return w.Main != nil && w.Wind != nil
}
