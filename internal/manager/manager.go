package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/coordinator"
	"github.com/hypermind/hypermind-agent/internal/entries"
)

// State is the lifecycle state of an entry.
type State string

const (
	StateNotLoaded  State = "not_loaded"
	StateLoaded     State = "loaded"
	StateSetupRetry State = "setup_retry"
)

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder attaches r to every coordinator the manager builds.
func WithRecorder(r coordinator.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// run is the runtime half of one entry.
type run struct {
	entry  *entries.Entry
	coord  *coordinator.Coordinator
	state  State
	retry  *coordinator.Handle
	remove func()
}

// Manager sets up, reloads and unloads entries held in an entries.Store.
// It implements setup.Loader.
type Manager struct {
	store    *entries.Store
	poller   coordinator.Poller
	interval time.Duration
	recorder coordinator.Recorder

	// ctx parents every background poll and retry; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]*run

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

// New returns a Manager polling through poller every interval.
func New(st *entries.Store, poller coordinator.Poller, interval time.Duration, opts ...Option) *Manager {
	if interval <= 0 {
		interval = config.DefaultScanInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    st,
		poller:   poller,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		runs:     make(map[string]*run),
		subs:     make(map[int]func()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Setup builds the coordinator for e and performs its first refresh. On
// success the entry is loaded and polled every interval. On failure the
// entry enters setup_retry and the returned error wraps
// coordinator.ErrNotReady.
//
// A run already registered for e.ID is replaced and stopped. Concurrent
// Setup calls for one entry leave exactly one run behind.
func (m *Manager) Setup(ctx context.Context, e *entries.Entry) error {
	ep, err := e.Endpoint()
	if err != nil {
		return fmt.Errorf("manager: resolve %s: %w", e.ID, err)
	}

	var copts []coordinator.Option
	if m.recorder != nil {
		copts = append(copts, coordinator.WithRecorder(m.recorder))
	}
	r := &run{
		entry: e,
		coord: coordinator.New(e.ID, ep, m.poller, m.interval, copts...),
		state: StateNotLoaded,
	}
	r.remove = r.coord.AddListener(m.notify)

	m.mu.Lock()
	prev := m.runs[e.ID]
	m.runs[e.ID] = r
	m.mu.Unlock()
	if prev != nil {
		m.teardown(prev)
	}

	if err := r.coord.FirstRefresh(ctx); err != nil {
		m.scheduleRetry(r)
		slog.Warn("manager: entry not ready",
			"entry", e.ID, "endpoint", ep.UniqueID(), "err", err)
		return err
	}

	m.markLoaded(r)
	return nil
}

// scheduleRetry repeats the first refresh of r every interval until it
// succeeds.
func (m *Manager) scheduleRetry(r *run) {
	m.mu.Lock()
	if m.runs[r.entry.ID] != r {
		m.mu.Unlock()
		return
	}
	r.state = StateSetupRetry

	rctx, rcancel := context.WithCancel(m.ctx)
	r.retry = coordinator.Schedule(rctx, m.interval, func(ctx context.Context) {
		if err := r.coord.FirstRefresh(ctx); err != nil {
			slog.Debug("manager: setup retry failed", "entry", r.entry.ID, "err", err)
			return
		}
		rcancel()
		m.markLoaded(r)
	})
	done := r.retry.Done()
	m.mu.Unlock()

	go func() {
		<-done
		rcancel()
	}()
	m.notify()
}

func (m *Manager) markLoaded(r *run) {
	m.mu.Lock()
	if m.runs[r.entry.ID] != r {
		m.mu.Unlock()
		return
	}
	r.state = StateLoaded
	r.coord.Start(m.ctx)
	m.mu.Unlock()

	slog.Info("manager: entry loaded",
		"entry", r.entry.ID, "endpoint", r.coord.Endpoint().UniqueID())
	m.notify()
}

// Reload rebuilds the coordinator of entry id from its current data and
// options.
func (m *Manager) Reload(ctx context.Context, id string) error {
	e, ok := m.store.Get(id)
	if !ok {
		return entries.ErrNotFound
	}
	return m.Setup(ctx, e)
}

// Unload stops polling entry id and discards its data. Unknown ids are
// ignored.
func (m *Manager) Unload(id string) {
	m.mu.Lock()
	r, ok := m.runs[id]
	delete(m.runs, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.teardown(r)
}

// teardown stops a run that is no longer registered in m.runs. It must be
// called without m.mu held.
func (m *Manager) teardown(r *run) {
	// The retry must finish before Stop. markLoaded only starts runs that are
	// still registered, so nothing restarts r afterwards.
	if r.retry != nil {
		r.retry.Cancel()
	}
	r.coord.Stop()
	r.remove()
	if f, ok := m.recorder.(interface{ Forget(entryID string) }); ok {
		f.Forget(r.entry.ID)
	}

	slog.Info("manager: entry unloaded", "entry", r.entry.ID)
	m.notify()
}

// LoadAll sets up every entry in the store. Entries that fail their first
// refresh are left retrying; LoadAll never fails because of them.
func (m *Manager) LoadAll(ctx context.Context) {
	for _, e := range m.store.List() {
		_ = m.Setup(ctx, e) // logged by Setup
	}
}

// Close unloads every entry and stops all background work.
func (m *Manager) Close() {
	for _, id := range m.ids() {
		m.Unload(id)
	}
	m.cancel()
}

// State returns the lifecycle state of entry id.
func (m *Manager) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return r.state
	}
	return StateNotLoaded
}

// Coordinator returns the coordinator of entry id if the entry is loaded.
func (m *Manager) Coordinator(id string) (*coordinator.Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.state != StateLoaded {
		return nil, false
	}
	return r.coord, true
}

// Loaded returns the IDs of loaded entries, sorted.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.runs))
	for id, r := range m.runs {
		if r.state == StateLoaded {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.runs)
}

func sortedKeys[V any](mp map[string]V) []string {
	keys := make([]string, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers fn to be called after every refresh of a loaded
// entry and after every state change. The returned func unregisters it.
func (m *Manager) Subscribe(fn func()) (cancel func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Reconcile brings the file-declared entries in line with cfg.
func (m *Manager) Reconcile(ctx context.Context, cfg *config.Config) {
	desired := make(map[string]config.EndpointConfig, len(cfg.Entries))
	for _, spec := range cfg.Entries {
		ep, err := config.ResolveEndpoint(spec.Data, spec.Options)
		if err != nil {
			// Load already validated the file; skip rather than abort.
			slog.Warn("manager: skipping invalid entry", "err", err)
			continue
		}
		desired[ep.UniqueID()] = ep
	}

	for _, e := range m.store.List() {
		if e.Source != entries.SourceFile {
			continue
		}
		if _, keep := desired[e.UniqueID]; keep {
			continue
		}
		m.Unload(e.ID)
		m.store.Remove(e.ID)
		slog.Info("manager: file entry removed", "entry", e.ID, "endpoint", e.UniqueID)
	}

	for _, uid := range sortedKeys(desired) {
		ep := desired[uid]
		existing, ok := m.store.GetByUniqueID(uid)
		if !ok {
			e, err := AddFileEntry(m.store, ep)
			if err != nil {
				slog.Error("manager: add file entry", "endpoint", uid, "err", err)
				continue
			}
			_ = m.Setup(ctx, e) // logged by Setup
			continue
		}
		if existing.Source != entries.SourceFile {
			slog.Warn("manager: file entry shadowed by api entry",
				"entry", existing.ID, "endpoint", uid)
			continue
		}

		cur, err := existing.Endpoint()
		if err == nil && cur == ep {
			continue
		}
		if _, err := m.store.UpdateOptions(existing.ID, scaleOptions(ep)); err != nil {
			slog.Error("manager: update file entry", "entry", existing.ID, "err", err)
			continue
		}
		slog.Info("manager: file entry options changed",
			"entry", existing.ID, "scale_min", ep.ScaleMin, "scale_max", ep.ScaleMax)
		if err := m.Reload(ctx, existing.ID); err != nil && !errors.Is(err, coordinator.ErrNotReady) {
			slog.Error("manager: reload file entry", "entry", existing.ID, "err", err)
		}
	}
}

// AddFileEntry stores ep as an entry declared in the config file.
func AddFileEntry(st *entries.Store, ep config.EndpointConfig) (*entries.Entry, error) {
	return st.Add(&entries.Entry{
		UniqueID: ep.UniqueID(),
		Title:    ep.Title(),
		Data:     ep.Data(),
		Options:  scaleOptions(ep),
		Source:   entries.SourceFile,
	})
}

func scaleOptions(ep config.EndpointConfig) map[string]any {
	return map[string]any{
		config.KeyScaleMin: ep.ScaleMin,
		config.KeyScaleMax: ep.ScaleMax,
	}
}
