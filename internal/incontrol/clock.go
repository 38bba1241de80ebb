package incontrol

import (
	"context"
	"time"
)

// Clock abstracts time operations so the wake-up poller and session
// expiry can be tested without real sleeps
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// Sleep blocks for d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock implements Clock using the real system time
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Clock = realClock{}
