package api

import (
	"time"

	"github.com/hypermind/hypermind-agent/internal/coordinator"
	"github.com/hypermind/hypermind-agent/internal/entries"
	"github.com/hypermind/hypermind-agent/internal/manager"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

// HealthResponse is the response body for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	EntryCount   int    `json:"entry_count"`
	LoadedCount  int    `json:"loaded_count"`
	RetryCount   int    `json:"setup_retry_count"`
	UnknownCount int    `json:"not_loaded_count"`
}

// EntryResponse is one entry with its runtime state.
type EntryResponse struct {
	ID        string              `json:"entry_id"`
	UniqueID  string              `json:"unique_id"`
	Title     string              `json:"title"`
	Source    entries.Source      `json:"source"`
	Data      map[string]any      `json:"data"`
	Options   map[string]any      `json:"options"`
	State     manager.State       `json:"state"`
	Status    *coordinator.Status `json:"status,omitempty"`
	Snapshot  *scraper.Snapshot   `json:"snapshot"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// setupErrorResponse reports a rejected setup or options form.
type setupErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// abortResponse reports a setup that was aborted rather than rejected.
type abortResponse struct {
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error string `json:"error"`
}
