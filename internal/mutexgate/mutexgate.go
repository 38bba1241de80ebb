package mutexgate

import (
	"context"
	"sync"
	"time"
)

// Gate is a mutual-exclusion gate with a time-to-live on each acquisition.
// At most one caller holds the gate at a time; contending callers block
// until the holder releases or until the holder's TTL elapses, whichever
// comes first. A holder that never releases therefore cannot wedge the
// gate past its TTL.
//
// The zero value is not usable; create gates with New.
type Gate struct {
	ttl time.Duration

	mu       sync.Mutex
	held     bool
	holder   uint64
	deadline time.Time
	nextGen  uint64
	waitCh   chan struct{}
}

// New creates a Gate whose acquisitions expire after ttl.
func New(ttl time.Duration) *Gate {
	return &Gate{
		ttl:    ttl,
		waitCh: make(chan struct{}),
	}
}

// Acquire blocks until the gate is free, then takes ownership. The
// returned release function is idempotent; calling it after the holder's
// TTL has already expired is a no-op and never disturbs a later holder.
// Acquire only fails when ctx is done.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	for {
		g.mu.Lock()
		now := time.Now()
		if !g.held || !now.Before(g.deadline) {
			g.nextGen++
			gen := g.nextGen
			g.held = true
			g.holder = gen
			g.deadline = now.Add(g.ttl)
			g.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() { g.release(gen) })
			}, nil
		}

		wait := g.waitCh
		untilExpiry := time.Until(g.deadline)
		g.mu.Unlock()

		timer := time.NewTimer(untilExpiry)
		select {
		case <-wait:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		timer.Stop()
	}
}

// release frees the gate if gen still owns it. A stale generation (one
// whose TTL expired and whose slot was re-acquired) is ignored.
func (g *Gate) release(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held || g.holder != gen {
		return
	}

	g.held = false
	close(g.waitCh)
	g.waitCh = make(chan struct{})
}
