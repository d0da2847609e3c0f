package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

// ErrNotReady wraps the failure of the mandatory first refresh. An entry
// whose coordinator is not ready is retried later and is not loaded.
var ErrNotReady = errors.New("coordinator: first refresh failed")

// Poller fetches one normalized snapshot. *scraper.Fetcher implements it.
type Poller interface {
	Poll(ctx context.Context, ep config.EndpointConfig) (*scraper.Snapshot, error)
}

// Recorder observes every poll attempt. Implemented by metrics.Collector.
type Recorder interface {
	ObservePoll(entryID string, elapsed time.Duration, err error)
}

// Status describes the outcome of the most recent refresh.
type Status struct {
	// Success is false after a failed refresh, until the next success.
	Success             bool      `json:"last_update_success"`
	LastError           string    `json:"last_error,omitempty"`
	LastAttempt         time.Time `json:"last_attempt,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder reports every poll attempt to r.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// Coordinator owns the polling of one endpoint: it runs Poll on a fixed
// interval, keeps the latest snapshot and notifies listeners after every
// refresh.
//
// The snapshot slot is swapped atomically; Data never returns a partially
// updated snapshot. Failed refreshes keep the previous snapshot in place.
//
// All exported methods are safe for concurrent use.
type Coordinator struct {
	id       string
	endpoint config.EndpointConfig
	poller   Poller
	interval time.Duration
	recorder Recorder
	now      func() time.Time

	data   atomic.Pointer[scraper.Snapshot]
	status atomic.Pointer[Status]

	// refreshMu keeps scheduled and on-demand refreshes from overlapping.
	refreshMu sync.Mutex

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
	handle    *Handle
}

// New returns a Coordinator for the endpoint of entry id. ep is fixed for
// the coordinator's lifetime; a changed endpoint needs a new Coordinator.
func New(id string, ep config.EndpointConfig, poller Poller, interval time.Duration, opts ...Option) *Coordinator {
	if interval <= 0 {
		interval = config.DefaultScanInterval
	}
	c := &Coordinator{
		id:        id,
		endpoint:  ep,
		poller:    poller,
		interval:  interval,
		now:       time.Now,
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status.Store(&Status{})
	return c
}

// ID returns the entry ID this coordinator polls for.
func (c *Coordinator) ID() string { return c.id }

// Endpoint returns the immutable endpoint configuration.
func (c *Coordinator) Endpoint() config.EndpointConfig { return c.endpoint }

// Interval returns the polling interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Data returns the latest snapshot, or nil before the first success.
func (c *Coordinator) Data() *scraper.Snapshot { return c.data.Load() }

// Status returns the outcome of the most recent refresh.
func (c *Coordinator) Status() Status { return *c.status.Load() }

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool { return c.status.Load().Success }

// FirstRefresh performs the initial refresh that must succeed before the
// entry is considered loaded. On failure it returns ErrNotReady wrapping
// the fetch error.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// Refresh polls the endpoint once, stores the result and notifies listeners.
// The returned error is the poll failure, if any; previous data is kept.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := c.now()
	snap, err := c.poller.Poll(ctx, c.endpoint)
	elapsed := c.now().Sub(start)

	if c.recorder != nil {
		c.recorder.ObservePoll(c.id, elapsed, err)
	}

	prev := c.status.Load()
	next := &Status{
		Success:             err == nil,
		LastAttempt:         start.UTC(),
		LastSuccess:         prev.LastSuccess,
		ConsecutiveFailures: 0,
	}

	if err != nil {
		next.LastError = err.Error()
		next.ConsecutiveFailures = prev.ConsecutiveFailures + 1
		if next.ConsecutiveFailures == 1 {
			slog.Error("coordinator: update failed",
				"entry", c.id, "endpoint", c.endpoint.UniqueID(), "err", err)
		} else {
			slog.Debug("coordinator: update still failing",
				"entry", c.id, "failures", next.ConsecutiveFailures, "err", err)
		}
	} else {
		c.data.Store(snap)
		next.LastSuccess = snap.FetchedAt
		if prev.ConsecutiveFailures > 0 {
			slog.Info("coordinator: fetching data recovered",
				"entry", c.id, "endpoint", c.endpoint.UniqueID())
		}
		slog.Debug("coordinator: refreshed",
			"entry", c.id,
			"active_nodes", snap.ActiveNodes,
			"direct_connections", snap.DirectConnections,
			"scale_ratio", snap.ScaleRatio,
			"elapsed", elapsed,
		)
	}
	c.status.Store(next)

	c.notify()
	return err
}

// Start begins polling every interval. It is a no-op if already started.
// Polling stops when ctx is cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return
	}
	c.handle = Schedule(ctx, c.interval, func(ctx context.Context) {
		_ = c.Refresh(ctx) // failures are recorded in Status and logged
	})
}

// Stop halts polling and waits for an in-flight poll to be abandoned.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// AddListener registers fn to be called after every refresh, successful or
// not. The returned func removes the listener.
func (c *Coordinator) AddListener(fn func()) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
