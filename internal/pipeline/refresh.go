package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
)

// triggerBuffer bounds pending refresh requests. A request that finds the
// buffer full is dropped; the queued refreshes will read the newer state.
const triggerBuffer = 8

// Pipeline recomputes the assessment and alerts whenever the session's
// inputs change: predict first, then derive.
type Pipeline struct {
	session   *Session
	predictor domain.Predictor
	metrics   *observability.Metrics
	logger    *slog.Logger

	triggers chan struct{}
	wg       sync.WaitGroup
}

// New creates a Pipeline. predictor may be nil, in which case the session
// never gains an assessment and alerts derive from weather alone.
func New(session *Session, predictor domain.Predictor, metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		session:   session,
		predictor: predictor,
		metrics:   metrics,
		logger:    logger,
		triggers:  make(chan struct{}, triggerBuffer),
	}
}

// Trigger requests an asynchronous refresh. It never blocks.
func (p *Pipeline) Trigger() {
	select {
	case p.triggers <- struct{}{}:
	default:
		p.logger.Debug("refresh already pending, trigger coalesced")
	}
}

// Run starts a refresh for every trigger until ctx is cancelled, then waits
// for in-flight refreshes to finish. Refreshes may overlap; the most
// recently started one decides the stored assessment and derives last.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("refresh pipeline started")
	defer p.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("refresh pipeline stopping", "reason", ctx.Err())
			return nil
		case <-p.triggers:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.Refresh(ctx)
			}()
		}
	}
}

// Refresh runs one predict-then-derive pass over the session's current state.
func (p *Pipeline) Refresh(ctx context.Context) {
	in := p.session.beginRefresh()

	if in.simulation.Enabled || in.weather != nil {
		if !p.predict(ctx, in) {
			return
		}
	} else {
		p.metrics.Predictions.WithLabelValues("skipped").Inc()
	}

	if !p.derive(ctx, in) {
		p.logger.Debug("skipping derivation for superseded refresh", "city", in.city.Name, "generation", in.generation)
	}
}

// derive evaluates alerts for in. A refresh that has been superseded skips
// derivation so its older simulation inputs cannot land after a newer pass.
func (p *Pipeline) derive(ctx context.Context, in refreshInput) bool {
	return p.session.deriveIfLatest(in, func() {
		assessment := p.session.Assessment()
		if in.weather == nil && assessment == nil {
			return
		}

		p.session.engine.Evaluate(ctx, domain.Conditions{
			City:       in.city,
			Weather:    in.weather,
			Assessment: assessment,
			Simulation: in.simulation,
		})
	})
}

// predict stores a fresh assessment for in. It returns false when the result
// is stale or ctx ended, meaning derivation should not proceed.
func (p *Pipeline) predict(ctx context.Context, in refreshInput) bool {
	if p.predictor == nil {
		p.metrics.Predictions.WithLabelValues("skipped").Inc()
		return true
	}

	a, err := p.predictor.Predict(ctx, in.city, in.simulation, in.weather)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.metrics.Predictions.WithLabelValues("error").Inc()
		p.logger.Warn("prediction failed", "city", in.city.Name, "error", err)
		a = nil
	} else {
		p.metrics.Predictions.WithLabelValues("success").Inc()
	}

	if !p.session.storeAssessment(in, a) {
		p.metrics.Predictions.WithLabelValues("stale").Inc()
		p.logger.Debug("discarding superseded prediction", "city", in.city.Name, "generation", in.generation)
		return false
	}
	return true
}
