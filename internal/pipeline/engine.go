package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
)

// Announcer starts an asynchronous voice briefing for an alert and reports
// whether it was accepted.
type Announcer interface {
	Announce(ctx context.Context, a domain.Alert) bool
}

// AlertPublisher fans derived alerts out to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, alerts []domain.Alert) error
}

// AlertEngine owns a session's alert collection. It derives alerts from the
// latest conditions, merges them in, and announces each qualifying alert ID
// at most once.
type AlertEngine struct {
	announcer Announcer
	publisher AlertPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu        sync.Mutex
	alerts    []domain.Alert
	announced map[string]struct{}
	rng       *rand.Rand
}

// NewAlertEngine creates an engine seeded with the startup alerts. publisher
// may be nil when fan-out is disabled.
func NewAlertEngine(announcer Announcer, publisher AlertPublisher, rng *rand.Rand, metrics *observability.Metrics, logger *slog.Logger) *AlertEngine {
	e := &AlertEngine{
		announcer: announcer,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		alerts:    domain.SeedAlerts(),
		announced: make(map[string]struct{}),
		rng:       rng,
	}
	e.metrics.ActiveAlerts.Set(float64(countActive(e.alerts)))
	return e
}

// Evaluate derives alerts for c and merges them into the collection. It
// returns the newly derived alerts, or nil when no threshold was crossed.
func (e *AlertEngine) Evaluate(ctx context.Context, c domain.Conditions) []domain.Alert {
	e.mu.Lock()
	derived := domain.DeriveAlerts(c, e.rng)
	if len(derived) == 0 {
		e.mu.Unlock()
		return nil
	}

	e.alerts = domain.MergeDerived(e.alerts, c.City.ID, derived)
	e.metrics.ActiveAlerts.Set(float64(countActive(e.alerts)))

	var toAnnounce []domain.Alert
	for _, a := range derived {
		e.metrics.AlertsDerived.WithLabelValues(string(a.Type)).Inc()
		if !domain.ShouldAnnounce(a) {
			continue
		}
		if _, seen := e.announced[a.ID]; seen {
			continue
		}
		// Marked before announcing: a dropped announcement is not retried.
		e.announced[a.ID] = struct{}{}
		toAnnounce = append(toAnnounce, a)
	}
	e.mu.Unlock()

	e.logger.Info("alerts derived", "city", c.City.Name, "count", len(derived))

	for _, a := range toAnnounce {
		if e.announcer == nil {
			continue
		}
		if !e.announcer.Announce(ctx, a) {
			e.logger.Info("alert announcement dropped", "alert_id", a.ID)
		}
	}

	e.publish(ctx, derived)
	return derived
}

func (e *AlertEngine) publish(ctx context.Context, derived []domain.Alert) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, derived); err != nil {
		e.logger.Error("publish derived alerts failed", "error", err, "count", len(derived))
		return
	}
	e.metrics.AlertsPublished.Add(float64(len(derived)))
}

// Alerts returns a copy of the collection, most recent first.
func (e *AlertEngine) Alerts() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Alert looks up an alert by ID.
func (e *AlertEngine) Alert(id string) (domain.Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Alert{}, false
}

// Announced reports whether the alert ID has already been announced.
func (e *AlertEngine) Announced(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.announced[id]
	return ok
}

func countActive(alerts []domain.Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Active {
			n++
		}
	}
	return n
}
