// Package flow drives one assistant turn: scope gating, the tool dispatch
// loop against the reasoning backend, and structured payload extraction from
// the final assistant text.
package flow

import (
	"context"
	"time"
)

// Sleeper abstracts poll delays so tests can run without real time passing.
type Sleeper interface {
	// Sleep blocks for d or until the context is cancelled, returning the
	// context's error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper implements Sleeper using the standard time package.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
