package domain

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Reading sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// WeatherSnapshot is a single current-conditions reading for a city. A new
// snapshot replaces the previous one wholesale; no history is kept.
type WeatherSnapshot struct {
	Temp        float64   `json:"temp"`       // °C
	Humidity    float64   `json:"humidity"`   // %
	WindSpeed   float64   `json:"wind_speed"` // m/s
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Condition   string    `json:"condition"`
	Rain        float64   `json:"rain"` // mm over the provider's latest interval
	Source      string    `json:"source"`
	ObservedAt  time.Time `json:"observed_at"`
}

// WeatherProvider returns current conditions for a city. Implementations
// degrade to synthetic data instead of failing; a non-nil error means the
// caller's context ended.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, city City) (*WeatherSnapshot, error)
}

// FallbackWeather synthesizes a plausible reading from the city's baseline
// climate when the live provider is unavailable. Temperature varies within
// ±2°C of baseline, humidity within ±5 points clamped to [10,100], and
// rainfall is the baseline value verbatim.
func FallbackWeather(city City, rng *rand.Rand) WeatherSnapshot {
	temp := city.Temp + rng.Float64()*4 - 2
	humidity := math.Round(city.Humidity + rng.Float64()*10 - 5)
	wind := 4 + rng.Float64()*8

	icon, condition := "03d", "Clouds"
	if city.Temp > 35 {
		icon, condition = "01d", "Clear"
	}

	return WeatherSnapshot{
		Temp:        roundTenth(temp),
		Humidity:    min(100, max(10, humidity)),
		WindSpeed:   roundTenth(wind),
		Description: "simulated reading (provider unavailable)",
		Icon:        icon,
		Condition:   condition,
		Rain:        city.Rainfall,
		Source:      SourceFallback,
		ObservedAt:  clock.Now(),
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
