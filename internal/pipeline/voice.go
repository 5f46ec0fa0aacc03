package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
)

// ErrBriefingInProgress is returned when a briefing is requested while
// another one is still playing.
var ErrBriefingInProgress = errors.New("voice briefing already in progress")

// Speaker turns text into audio.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// VoiceBriefer reads alerts aloud, one at a time. Requests that arrive while
// a briefing is playing are dropped, not queued.
type VoiceBriefer struct {
	speaker Speaker
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger

	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewVoiceBriefer creates a VoiceBriefer. timeout bounds each synthesis call.
func NewVoiceBriefer(speaker Speaker, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *VoiceBriefer {
	return &VoiceBriefer{
		speaker: speaker,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Busy reports whether a briefing is currently playing.
func (v *VoiceBriefer) Busy() bool {
	return v.busy.Load()
}

// Brief speaks the alert and waits for synthesis to finish. It returns
// ErrBriefingInProgress without speaking when the gate is held.
func (v *VoiceBriefer) Brief(ctx context.Context, a domain.Alert) error {
	if !v.acquire(a) {
		return ErrBriefingInProgress
	}
	return v.speak(ctx, a)
}

// Announce starts speaking the alert in the background and reports whether
// the request was accepted. The briefing outlives ctx's cancellation but
// not its values; use Wait to drain in-flight briefings.
func (v *VoiceBriefer) Announce(ctx context.Context, a domain.Alert) bool {
	if !v.acquire(a) {
		return false
	}
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		_ = v.speak(context.WithoutCancel(ctx), a)
	}()
	return true
}

// Wait blocks until every announced briefing has finished.
func (v *VoiceBriefer) Wait() {
	v.wg.Wait()
}

func (v *VoiceBriefer) acquire(a domain.Alert) bool {
	if v.busy.CompareAndSwap(false, true) {
		return true
	}
	v.metrics.Briefings.WithLabelValues("dropped").Inc()
	v.logger.Debug("briefing dropped, gate busy", "alert_id", a.ID)
	return false
}

// speak runs one synthesis and releases the gate however it ends.
func (v *VoiceBriefer) speak(ctx context.Context, a domain.Alert) error {
	defer v.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.speaker.Speak(ctx, a.BriefingText()); err != nil {
		v.metrics.Briefings.WithLabelValues("failed").Inc()
		v.logger.Warn("voice briefing failed", "alert_id", a.ID, "error", err)
		return fmt.Errorf("brief alert %s: %w", a.ID, err)
	}
	v.metrics.Briefings.WithLabelValues("spoken").Inc()
	v.logger.Info("voice briefing delivered", "alert_id", a.ID, "city", a.City)
	return nil
}
