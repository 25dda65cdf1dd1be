package proximity

import (
	"context"
	"fmt"
	"time"
)

// Scheduler fires a callback at a fixed rate, decoupled from the camera
// frame rate. Each tick reads the latest published snapshot; ticks before
// the first publish are silent no-ops. Scheduling is next-deadline based:
// a slow callback delays at most its own tick and never lowers the long-run
// frequency.
type Scheduler struct {
	latest *Latest
	period time.Duration
	emit   func(Snapshot)
}

// NewScheduler creates a scheduler emitting at the given rate in Hz.
func NewScheduler(latest *Latest, rateHz float64, emit func(Snapshot)) (*Scheduler, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("emission rate must be positive, got %g Hz", rateHz)
	}
	return &Scheduler{
		latest: latest,
		period: time.Duration(float64(time.Second) / rateHz),
		emit:   emit,
	}, nil
}

// Period returns the tick interval.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Run ticks until ctx is cancelled. It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.period)
	defer timer.Stop()

	deadline := time.Now().Add(s.period)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		s.tick()

		// Advance the deadline by whole periods so a long tick skips ahead
		// instead of accumulating lag.
		deadline = deadline.Add(s.period)
		for !deadline.After(time.Now()) {
			deadline = deadline.Add(s.period)
		}
		timer.Reset(time.Until(deadline))
	}
}

func (s *Scheduler) tick() {
	snap, ok := s.latest.Read()
	if !ok {
		return
	}
	s.emit(snap)
}
