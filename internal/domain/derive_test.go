package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func bengaluru(t *testing.T) City {
	t.Helper()
	c, err := CityByID("3")
	require.NoError(t, err)
	return c
}

func TestDeriveAlerts_HeatwaveSevereAbove45(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 46}}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, HazardHeatwave, alerts[0].Type)
	assert.Equal(t, SeveritySevere, alerts[0].Severity)
	assert.Equal(t, "dynamic-heat-3", alerts[0].ID)
	assert.Equal(t, ProvenanceDerived, alerts[0].Provenance)
	assert.True(t, alerts[0].Active)
	assert.Equal(t, SafetyProtocol(HazardHeatwave), alerts[0].Instructions)
	assert.Contains(t, Images(HazardHeatwave), alerts[0].ImageURL)
}

func TestDeriveAlerts_HeatwaveHighBetween42And45(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 44}}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
}

func TestDeriveAlerts_Exactly45IsNotSevere(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 45}}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
}

func TestDeriveAlerts_HeatwaveFromPredictionOnly(t *testing.T) {
	c := Conditions{
		City:       bengaluru(t),
		Weather:    &WeatherSnapshot{Temp: 30},
		Assessment: &RiskAssessment{HeatwaveRisk: 85},
	}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, HazardHeatwave, alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
}

func TestDeriveAlerts_FloodBoundaryInclusive(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 25, Rain: 200}}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, HazardFlood, alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "dynamic-flood-3", alerts[0].ID)
}

func TestDeriveAlerts_FloodBelowThreshold(t *testing.T) {
	c := Conditions{
		City:       bengaluru(t),
		Weather:    &WeatherSnapshot{Temp: 25, Rain: 199},
		Assessment: &RiskAssessment{FloodProbability: 79.9},
	}

	assert.Empty(t, DeriveAlerts(c, testRNG()))
}

func TestDeriveAlerts_FloodFromPrediction(t *testing.T) {
	c := Conditions{
		City:       bengaluru(t),
		Weather:    &WeatherSnapshot{Temp: 25},
		Assessment: &RiskAssessment{FloodProbability: 80},
	}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, HazardFlood, alerts[0].Type)
}

func TestDeriveAlerts_BothHazardsHeatFirst(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 43, Rain: 250}}

	alerts := DeriveAlerts(c, testRNG())

	require.Len(t, alerts, 2)
	assert.Equal(t, HazardHeatwave, alerts[0].Type)
	assert.Equal(t, HazardFlood, alerts[1].Type)
}

func TestDeriveAlerts_BaselineWhenNoWeather(t *testing.T) {
	ahmedabad, err := CityByName("Ahmedabad") // baseline 44°C
	require.NoError(t, err)

	alerts := DeriveAlerts(Conditions{City: ahmedabad}, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, HazardHeatwave, alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
}

func TestDeriveAlerts_SimulationOnlyWhenEnabled(t *testing.T) {
	city := bengaluru(t)
	sim := SimulationParameters{RainfallDelta: 180, TemperatureDelta: 5}
	weather := &WeatherSnapshot{Temp: 40, Rain: 30}

	assert.Empty(t, DeriveAlerts(Conditions{City: city, Weather: weather, Simulation: sim}, testRNG()))

	sim.Enabled = true
	alerts := DeriveAlerts(Conditions{City: city, Weather: weather, Simulation: sim}, testRNG())
	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[0].Message, "45.0°C")
	assert.Contains(t, alerts[1].Message, "210mm")
}

func TestDeriveAlerts_TimestampFromClock(t *testing.T) {
	at := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	alerts := DeriveAlerts(Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 50}}, testRNG())

	require.Len(t, alerts, 1)
	assert.Equal(t, at, alerts[0].Timestamp)
}

func TestDeriveAlerts_ImageSelectionDeterministicForSeed(t *testing.T) {
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 43, Rain: 300}}

	first := DeriveAlerts(c, testRNG())
	second := DeriveAlerts(c, testRNG())

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ImageURL, second[0].ImageURL)
	assert.Equal(t, first[1].ImageURL, second[1].ImageURL)
}

func TestShouldAnnounce(t *testing.T) {
	assert.True(t, ShouldAnnounce(Alert{Type: HazardFlood, Severity: SeverityHigh}))
	assert.True(t, ShouldAnnounce(Alert{Type: HazardHeatwave, Severity: SeveritySevere}))
	assert.False(t, ShouldAnnounce(Alert{Type: HazardHeatwave, Severity: SeverityHigh}))
	assert.False(t, ShouldAnnounce(Alert{Type: HazardCyclone, Severity: SeveritySevere}))
}

func TestMergeDerived_SupersedesCityAlertsKeepsSeeded(t *testing.T) {
	seeded := SeedAlerts()
	oldHeat := Alert{ID: "dynamic-heat-3", CityID: "3", Type: HazardHeatwave, Provenance: ProvenanceDerived, Message: "old"}
	oldFlood := Alert{ID: "dynamic-flood-3", CityID: "3", Type: HazardFlood, Provenance: ProvenanceDerived}
	other := Alert{ID: "dynamic-heat-7", CityID: "7", Type: HazardHeatwave, Provenance: ProvenanceDerived}
	existing := append([]Alert{oldHeat, other, oldFlood}, seeded...)

	newHeat := Alert{ID: "dynamic-heat-3", CityID: "3", Type: HazardHeatwave, Provenance: ProvenanceDerived, Message: "new"}
	merged := MergeDerived(existing, "3", []Alert{newHeat})

	want := append([]Alert{newHeat, other}, seeded...)
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged alerts mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDerived_RepeatedDerivationKeepsOnePerKey(t *testing.T) {
	alerts := SeedAlerts()
	c := Conditions{City: bengaluru(t), Weather: &WeatherSnapshot{Temp: 47, Rain: 260}}
	rng := testRNG()

	for range 5 {
		alerts = MergeDerived(alerts, "3", DeriveAlerts(c, rng))
	}

	counts := map[string]int{}
	for _, a := range alerts {
		counts[a.ID]++
	}
	assert.Equal(t, 1, counts["dynamic-heat-3"])
	assert.Equal(t, 1, counts["dynamic-flood-3"])
	assert.Equal(t, 1, counts["a1"])
	assert.Equal(t, 1, counts["a2"])
	assert.Len(t, alerts, 4)
}

func TestMergeDerived_NothingDerivedLeavesCollection(t *testing.T) {
	existing := []Alert{{ID: "dynamic-flood-3", CityID: "3", Provenance: ProvenanceDerived}}

	merged := MergeDerived(existing, "3", nil)

	assert.Equal(t, existing, merged)
}
