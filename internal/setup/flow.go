package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/entries"
)

// Loader sets up, reloads and unloads entries. *manager.Manager implements it.
type Loader interface {
	Setup(ctx context.Context, e *entries.Entry) error
	Reload(ctx context.Context, id string) error
	Unload(id string)
}

// Flow is the user-driven lifecycle of an entry: initial setup, option
// edits after setup, and removal.
type Flow struct {
	validator *Validator
	store     *entries.Store
	loader    Loader
}

// NewFlow wires a Flow to its validator, registry and loader.
func NewFlow(v *Validator, st *entries.Store, loader Loader) *Flow {
	return &Flow{validator: v, store: st, loader: loader}
}

// Validate resolves data and runs the connectivity check without storing
// anything.
func (f *Flow) Validate(ctx context.Context, data map[string]any) (Result, error) {
	ep, err := config.ResolveEndpoint(data, nil)
	if err != nil {
		return Result{}, reject(ReasonInvalidInput, err)
	}
	res, err := f.validator.Validate(ctx, ep)
	if err != nil && ReasonOf(err) == ReasonUnknown {
		slog.Error("setup: unexpected exception", "endpoint", ep.UniqueID(), "err", err)
	}
	return res, err
}

// Create validates data (host, port and optional scale bounds), rejects a
// host:port that is already configured, stores the entry and sets it up.
//
// The entry is kept even if its first refresh fails; the loader retries it.
func (f *Flow) Create(ctx context.Context, data map[string]any) (*entries.Entry, error) {
	res, err := f.Validate(ctx, data)
	if err != nil {
		return nil, err
	}

	if _, exists := f.store.GetByUniqueID(res.UniqueID); exists {
		return nil, reject(ReasonAlreadyConfigured, nil)
	}

	ep, _ := config.ResolveEndpoint(data, nil) // already resolved by Validate
	e, err := f.store.Add(&entries.Entry{
		UniqueID: res.UniqueID,
		Title:    res.Title,
		Data:     ep.Data(),
		Source:   entries.SourceAPI,
	})
	if errors.Is(err, entries.ErrAlreadyConfigured) {
		return nil, reject(ReasonAlreadyConfigured, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("setup: store entry: %w", err)
	}

	slog.Info("setup: entry created", "entry", e.ID, "title", e.Title)
	if err := f.loader.Setup(ctx, e); err != nil {
		slog.Warn("setup: entry not ready, will retry", "entry", e.ID, "err", err)
	}
	return e, nil
}

// UpdateOptions applies new scale bounds to entry id. Options are checked
// with the same range rule as setup; on success the entry is reloaded so
// its coordinator is rebuilt with the new bounds.
func (f *Flow) UpdateOptions(ctx context.Context, id string, options map[string]any) (*entries.Entry, error) {
	e, ok := f.store.Get(id)
	if !ok {
		return nil, entries.ErrNotFound
	}

	opts := make(map[string]any, 2)
	for _, k := range []string{config.KeyScaleMin, config.KeyScaleMax} {
		if v, ok := options[k]; ok && v != nil {
			opts[k] = v
		} else if v, ok := e.Options[k]; ok {
			opts[k] = v
		}
	}

	ep, err := config.ResolveEndpoint(e.Data, opts)
	if err != nil {
		return nil, reject(ReasonInvalidInput, err)
	}
	if err := ValidateScale(ep.ScaleMin, ep.ScaleMax); err != nil {
		return nil, err
	}
	// Store the normalized ints rather than raw form values.
	opts[config.KeyScaleMin] = ep.ScaleMin
	opts[config.KeyScaleMax] = ep.ScaleMax

	updated, err := f.store.UpdateOptions(id, opts)
	if err != nil {
		return nil, err
	}

	slog.Info("setup: options updated", "entry", id,
		"scale_min", ep.ScaleMin, "scale_max", ep.ScaleMax)
	if err := f.loader.Reload(ctx, id); err != nil {
		slog.Warn("setup: reload after options update not ready, will retry", "entry", id, "err", err)
	}
	return updated, nil
}

// Remove unloads entry id and deletes it from the registry.
func (f *Flow) Remove(id string) error {
	if _, ok := f.store.Get(id); !ok {
		return entries.ErrNotFound
	}
	f.loader.Unload(id)
	f.store.Remove(id)
	slog.Info("setup: entry removed", "entry", id)
	return nil
}
