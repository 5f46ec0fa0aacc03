package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	httpadapter "github.com/couchcryptid/climate-resilience-monitor/internal/adapter/http"
	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Trigger() { c.n.Add(1) }

type stubBriefer struct {
	err   error
	alert domain.Alert
}

func (b *stubBriefer) Brief(_ context.Context, a domain.Alert) error {
	b.alert = a
	return b.err
}

type fixture struct {
	srv       *httpadapter.Server
	session   *pipeline.Session
	refresher *countingRefresher
	briefer   *stubBriefer
}

func newFixture(t *testing.T, readyErr error) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := pipeline.NewAlertEngine(nil, nil, rand.New(rand.NewPCG(1, 2)), observability.NewMetricsForTesting(), logger)
	session, err := pipeline.NewSession("1", engine)
	require.NoError(t, err)

	f := &fixture{
		session:   session,
		refresher: &countingRefresher{},
		briefer:   &stubBriefer{},
	}
	f.srv = httpadapter.NewServer(":0", session, f.refresher, f.briefer, &mockReadiness{err: readyErr}, logger)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newFixture(t, fmt.Errorf("initial weather sync has not completed")).do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCitiesEndpoint(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/api/v1/cities", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cities []domain.City
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cities))
	require.Len(t, cities, 7)
	assert.Equal(t, "Delhi", cities[0].Name)
}

func TestWeatherEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.session.SetWeather(map[string]domain.WeatherSnapshot{"2": {Temp: 30.5, Source: domain.SourceLive}})

	rec := f.do(http.MethodGet, "/api/v1/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]domain.WeatherSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 30.5, got["2"].Temp, 0)
}

func TestSelectCity(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPut, "/api/v1/session/city", `{"city_id":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chennai", f.session.City().Name)
	assert.Equal(t, int32(1), f.refresher.n.Load())

	rec = f.do(http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ID   string      `json:"id"`
		City domain.City `json:"city"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, f.session.ID, body.ID)
	assert.Equal(t, "4", body.City.ID)
}

func TestSelectCity_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown city", body: `{"city_id":"42"}`, want: http.StatusNotFound},
		{name: "missing id", body: `{}`, want: http.StatusBadRequest},
		{name: "bad json", body: `{"city_id":`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(http.MethodPut, "/api/v1/session/city", tc.body)
			assert.Equal(t, tc.want, rec.Code)
			assert.Zero(t, f.refresher.n.Load())
			assert.Equal(t, "Delhi", f.session.City().Name)
		})
	}
}

func TestSimulation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    int
		applied bool
	}{
		{name: "valid", body: `{"enabled":true,"rainfall_delta":120,"temperature_delta":3}`, want: http.StatusOK, applied: true},
		{name: "upper bounds", body: `{"enabled":true,"rainfall_delta":500,"temperature_delta":10}`, want: http.StatusOK, applied: true},
		{name: "rainfall too high", body: `{"enabled":true,"rainfall_delta":501}`, want: http.StatusBadRequest},
		{name: "negative temperature", body: `{"enabled":true,"temperature_delta":-1}`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(http.MethodPut, "/api/v1/session/simulation", tc.body)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.applied, f.session.Simulation().Enabled)
			if tc.applied {
				assert.Equal(t, int32(1), f.refresher.n.Load())
			}
		})
	}
}

func TestPrediction_PendingWithoutAssessment(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/api/v1/prediction", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())
}

func TestPrediction_WithAssessment(t *testing.T) {
	f := newFixture(t, nil)
	f.session.SetSimulation(domain.SimulationParameters{Enabled: true})
	p := pipeline.New(f.session, stubPredictor{a: &domain.RiskAssessment{FloodProbability: 60, HeatwaveRisk: 40, Narrative: "elevated"}},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Refresh(context.Background())

	rec := f.do(http.MethodGet, "/api/v1/prediction", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CityID        string                `json:"city_id"`
		Assessment    domain.RiskAssessment `json:"assessment"`
		SectorImpacts []domain.SectorImpact `json:"sector_impacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1", body.CityID)
	assert.Equal(t, "elevated", body.Assessment.Narrative)
	require.Len(t, body.SectorImpacts, 5)
	assert.Equal(t, domain.SectorImpact{Sector: "Transport", Score: 54}, body.SectorImpacts[3])
}

type stubPredictor struct {
	a *domain.RiskAssessment
}

func (s stubPredictor) Predict(context.Context, domain.City, domain.SimulationParameters, *domain.WeatherSnapshot) (*domain.RiskAssessment, error) {
	return s.a, nil
}

func TestAlerts(t *testing.T) {
	rec := newFixture(t, nil).do(http.MethodGet, "/api/v1/alerts?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 2)
	assert.Equal(t, "a1", alerts[0].ID)
	assert.Equal(t, domain.ProvenanceSeeded, alerts[0].Provenance)
}

func TestBriefing(t *testing.T) {
	cases := []struct {
		name string
		id   string
		err  error
		want int
	}{
		{name: "spoken", id: "a1", want: http.StatusAccepted},
		{name: "gate busy", id: "a1", err: pipeline.ErrBriefingInProgress, want: http.StatusConflict},
		{name: "synthesis failed", id: "a2", err: errors.New("quota"), want: http.StatusBadGateway},
		{name: "unknown alert", id: "zzz", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.briefer.err = tc.err

			rec := f.do(http.MethodPost, "/api/v1/alerts/"+tc.id+"/briefing", "")
			assert.Equal(t, tc.want, rec.Code)
			if tc.want != http.StatusNotFound {
				assert.Equal(t, tc.id, f.briefer.alert.ID)
			}
		})
	}
}
