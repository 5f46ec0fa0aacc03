// Package domain models the climate-risk data handled by the monitor: the
// static city catalog, live weather readings, simulation perturbations, AI
// risk assessments, and hazard alerts.
//
// # Effective values
//
// Alert thresholds are checked against effective values, not raw readings:
//
//	effective temperature = live temp (or city baseline) + simulated temp delta
//	effective rainfall    = live rain (or city baseline) + simulated rain delta
//
// Simulation deltas only apply while SimulationParameters.Enabled is set.
//
// # Thresholds
//
//	Heatwave: effective temp >= 42°C, or predicted heatwave risk >= 85%.
//	          Severe above 45°C, High otherwise.
//	Flood:    effective rain >= 200mm, or predicted flood probability >= 80%.
//	          Always High.
//
// # Alert identity
//
// Derived alerts carry deterministic IDs of the form "dynamic-<hazard>-<cityID>"
// (see [DerivedAlertID]) so that re-deriving for the same city and hazard
// supersedes the previous alert instead of stacking a duplicate. Seeded alerts
// use fixed IDs and are never touched by derivation.
//
// # Data sources
//
// Live readings come from the OpenWeatherMap current-weather endpoint, metric
// units. When the provider is unreachable the monitor synthesizes a reading
// from the city baseline (see [FallbackWeather]); such readings carry
// Source "fallback".
package domain
