// Package retry holds the waiting primitive shared by the weather client's
// retry loop and the fleet sync's request pacing.
package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sleep blocks for d on clk, returning early with ctx.Err() if ctx is
// cancelled first. A non-positive d returns immediately.
func Sleep(ctx context.Context, clk clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
