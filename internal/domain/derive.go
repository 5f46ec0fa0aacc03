package domain

import (
	"fmt"
	"math/rand/v2"
)

// Alert thresholds.
const (
	HeatwaveTempThreshold     = 42.0 // °C, effective
	HeatwaveRiskThreshold     = 85.0 // %, predicted
	SevereHeatTemp            = 45.0 // °C, strictly above escalates to Severe
	FloodRainThreshold        = 200.0
	FloodProbabilityThreshold = 80.0
)

// Conditions is everything alert derivation looks at for one city.
type Conditions struct {
	City       City
	Weather    *WeatherSnapshot
	Assessment *RiskAssessment
	Simulation SimulationParameters
}

// EffectiveTemp is the live (or baseline) temperature plus the active
// simulated temperature delta.
func (c Conditions) EffectiveTemp() float64 {
	t := c.City.Temp
	if c.Weather != nil {
		t = c.Weather.Temp
	}
	return t + c.Simulation.Active().TemperatureDelta
}

// EffectiveRain is the live (or baseline) precipitation plus the active
// simulated rainfall delta.
func (c Conditions) EffectiveRain() float64 {
	r := c.City.Rainfall
	if c.Weather != nil {
		r = c.Weather.Rain
	}
	return r + c.Simulation.Active().RainfallDelta
}

// DeriveAlerts evaluates the thresholds and returns the triggered alerts,
// heatwave before flood. rng selects each alert's illustrative image.
func DeriveAlerts(c Conditions, rng *rand.Rand) []Alert {
	var out []Alert
	temp := c.EffectiveTemp()
	rain := c.EffectiveRain()

	heatRisk, floodProb := -1.0, -1.0
	if c.Assessment != nil {
		heatRisk = c.Assessment.HeatwaveRisk
		floodProb = c.Assessment.FloodProbability
	}

	if temp >= HeatwaveTempThreshold || heatRisk >= HeatwaveRiskThreshold {
		severity := SeverityHigh
		if temp > SevereHeatTemp {
			severity = SeveritySevere
		}
		out = append(out, newDerivedAlert(c.City, HazardHeatwave, severity,
			fmt.Sprintf("Hazardous heat index of %.1f°C. Sustained thermal stress expected across %s.", temp, c.City.Name),
			rng))
	}

	if rain >= FloodRainThreshold || floodProb >= FloodProbabilityThreshold {
		out = append(out, newDerivedAlert(c.City, HazardFlood, SeverityHigh,
			fmt.Sprintf("Inundation risk from %.0fmm total rainfall. Significant water accumulation expected in %s.", rain, c.City.Name),
			rng))
	}

	return out
}

func newDerivedAlert(city City, hazard HazardType, severity Severity, message string, rng *rand.Rand) Alert {
	images := imageLibrary[hazard]
	return Alert{
		ID:           DerivedAlertID(hazard, city.ID),
		CityID:       city.ID,
		City:         city.Name,
		Type:         hazard,
		Severity:     severity,
		Message:      message,
		Instructions: SafetyProtocol(hazard),
		Timestamp:    clock.Now(),
		Active:       true,
		ImageURL:     images[rng.IntN(len(images))],
		Provenance:   ProvenanceDerived,
	}
}

// ShouldAnnounce reports whether a derived alert warrants a voice briefing:
// every flood, and heatwaves only at the Severe tier.
func ShouldAnnounce(a Alert) bool {
	switch a.Type {
	case HazardFlood:
		return true
	case HazardHeatwave:
		return a.Severity == SeveritySevere
	default:
		return false
	}
}

// MergeDerived drops every derived alert for cityID from existing and puts
// derived in front, most recent first. Seeded alerts are kept. When derived
// is empty the collection is returned unchanged.
func MergeDerived(existing []Alert, cityID string, derived []Alert) []Alert {
	if len(derived) == 0 {
		return existing
	}
	out := make([]Alert, 0, len(derived)+len(existing))
	out = append(out, derived...)
	for _, a := range existing {
		if a.Derived() && a.CityID == cityID {
			continue
		}
		out = append(out, a)
	}
	return out
}
