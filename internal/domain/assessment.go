package domain

import (
	"context"
	"math"
)

// SimulationParameters perturb live or baseline readings for what-if runs.
// The deltas only take effect while Enabled is set.
type SimulationParameters struct {
	Enabled          bool    `json:"enabled"`
	RainfallDelta    float64 `json:"rainfall_delta" validate:"gte=0,lte=500"`  // mm
	TemperatureDelta float64 `json:"temperature_delta" validate:"gte=0,lte=10"` // °C
}

// Active returns the deltas that currently apply: the parameters themselves
// when enabled, zero deltas otherwise.
func (p SimulationParameters) Active() SimulationParameters {
	if !p.Enabled {
		return SimulationParameters{}
	}
	return p
}

// RiskAssessment is the predictor's structured output. All scores are 0-100.
type RiskAssessment struct {
	FloodProbability float64  `json:"flood_probability"`
	HeatwaveRisk     float64  `json:"heatwave_risk"`
	ResilienceScore  float64  `json:"resilience_score"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ActionPlan       []string `json:"action_plan"`
	Narrative        string   `json:"narrative"`
}

// Predictor produces a risk assessment for a city. weather may be nil, in
// which case the city's baseline is used as context.
type Predictor interface {
	Predict(ctx context.Context, city City, sim SimulationParameters, weather *WeatherSnapshot) (*RiskAssessment, error)
}

// SectorImpact is a per-sector stress score derived from an assessment.
type SectorImpact struct {
	Sector string `json:"sector"`
	Score  int    `json:"score"`
}

// SectorImpacts spreads an assessment's flood and heat risk across the city
// sectors most exposed to each. Returns nil for a nil assessment.
func SectorImpacts(a *RiskAssessment) []SectorImpact {
	if a == nil {
		return nil
	}
	flood, heat := a.FloodProbability, a.HeatwaveRisk
	return []SectorImpact{
		{Sector: "Infrastructure", Score: roundInt((flood + heat) * 0.4)},
		{Sector: "Public Health", Score: roundInt(heat * 0.8)},
		{Sector: "Agriculture", Score: roundInt((flood + heat) * 0.35)},
		{Sector: "Transport", Score: roundInt(flood * 0.9)},
		{Sector: "Energy Grid", Score: roundInt(heat * 0.7)},
	}
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
