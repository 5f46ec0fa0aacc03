package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// --- mocks ---

// blockingSpeaker records every text and, when gate is set, holds each call
// until the test sends on it.
type blockingSpeaker struct {
	mu      sync.Mutex
	texts   []string
	gate    chan struct{}
	started chan struct{}
	err     error
}

func newBlockingSpeaker() *blockingSpeaker {
	return &blockingSpeaker{gate: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (s *blockingSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *blockingSpeaker) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	ids    []string
	accept bool
}

func (a *recordingAnnouncer) Announce(_ context.Context, alert domain.Alert) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, alert.ID)
	return a.accept
}

func (a *recordingAnnouncer) announced() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.ids...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]domain.Alert
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, alerts []domain.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, alerts)
	return p.err
}

type predictFunc func(ctx context.Context, city domain.City, sim domain.SimulationParameters, weather *domain.WeatherSnapshot) (*domain.RiskAssessment, error)

func (f predictFunc) Predict(ctx context.Context, city domain.City, sim domain.SimulationParameters, weather *domain.WeatherSnapshot) (*domain.RiskAssessment, error) {
	return f(ctx, city, sim, weather)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func newTestEngine(announcer pipeline.Announcer, publisher pipeline.AlertPublisher) *pipeline.AlertEngine {
	return pipeline.NewAlertEngine(announcer, publisher, testRand(), observability.NewMetricsForTesting(), discardLogger())
}

func mustCity(t *testing.T, id string) domain.City {
	t.Helper()
	c, err := domain.CityByID(id)
	if err != nil {
		t.Fatalf("city %s: %v", id, err)
	}
	return c
}

// autoAdvance moves the fake clock forward whenever something waits on it.
func autoAdvance(t *testing.T, fc *clockwork.FakeClock, step time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := fc.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			fc.Advance(step)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}
