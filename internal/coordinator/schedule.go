package coordinator

import (
	"context"
	"sync"
	"time"
)

// Handle controls a task started by Schedule.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Schedule runs task every interval until ctx is cancelled or the returned
// Handle is cancelled. Runs are serial: a tick that arrives while task is
// still running is dropped, never queued or overlapped. The first run
// happens one interval after Schedule is called.
func Schedule(ctx context.Context, interval time.Duration, task func(context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				task(ctx)
			}
		}
	}()
	return h
}

// Cancel stops the schedule and waits for an in-flight run to return.
// The run's context is cancelled, which aborts its request. Safe to call
// more than once.
func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the schedule has stopped.
func (h *Handle) Done() <-chan struct{} { return h.done }
