package scraper

import (
	"context"
	"time"

	"github.com/hypermind/hypermind-agent/internal/config"
)

// Snapshot is the normalized result of one successful poll. A new Snapshot
// is built on every success and never modified afterwards.
type Snapshot struct {
	ActiveNodes       int       `json:"active_nodes"`
	DirectConnections int       `json:"direct_connections"`
	ScaleMin          int       `json:"scale_min"`
	ScaleMax          int       `json:"scale_max"`
	ScaleRatio        float64   `json:"scale_ratio"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// Poll fetches ep's stats once and normalizes them into a Snapshot.
//
// Missing count or direct fields read as zero. The scale bounds are taken
// from ep as-is; a degenerate window yields a ratio of 0 rather than an
// error. Failures are returned as *FetchError and never retried here.
func (f *Fetcher) Poll(ctx context.Context, ep config.EndpointConfig) (*Snapshot, error) {
	stats, err := f.FetchStats(ctx, ep)
	if err != nil {
		return nil, err
	}
	return Normalize(stats, ep, f.now().UTC()), nil
}

// Normalize turns a decoded payload into a Snapshot stamped with at.
func Normalize(stats *Stats, ep config.EndpointConfig, at time.Time) *Snapshot {
	active := stats.CountOrZero()
	return &Snapshot{
		ActiveNodes:       active,
		DirectConnections: stats.DirectOrZero(),
		ScaleMin:          ep.ScaleMin,
		ScaleMax:          ep.ScaleMax,
		ScaleRatio:        ScaleRatio(active, ep.ScaleMin, ep.ScaleMax),
		FetchedAt:         at,
	}
}
