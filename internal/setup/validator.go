package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

// Reason is the form-level error key reported for a rejected configuration.
type Reason string

const (
	ReasonInvalidInput      Reason = "invalid_input"
	ReasonInvalidScale      Reason = "invalid_scale"
	ReasonCannotConnect     Reason = "cannot_connect"
	ReasonUnknown           Reason = "unknown"
	ReasonAlreadyConfigured Reason = "already_configured"
)

// RejectError reports why a configuration was not accepted. Nothing is
// stored when a RejectError is returned.
type RejectError struct {
	Reason Reason
	Err    error
}

func (e *RejectError) Error() string {
	if e.Err == nil {
		return "setup: " + string(e.Reason)
	}
	return fmt.Sprintf("setup: %s: %v", e.Reason, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

func reject(reason Reason, err error) *RejectError {
	return &RejectError{Reason: reason, Err: err}
}

// ReasonOf returns the Reason carried by err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// errMissingCount is the cause for a 200 response without a count field.
var errMissingCount = errors.New("invalid api response: missing count")

// StatsFetcher performs the one-shot stats request. *scraper.Fetcher
// implements it.
type StatsFetcher interface {
	FetchStats(ctx context.Context, ep config.EndpointConfig) (*scraper.Stats, error)
}

// Result is returned for an accepted configuration.
type Result struct {
	Title    string `json:"title"`
	UniqueID string `json:"unique_id"`
}

// Validator checks a candidate endpoint configuration before it is stored.
type Validator struct {
	fetcher StatsFetcher
}

// NewValidator returns a Validator that probes endpoints through fetcher.
func NewValidator(fetcher StatsFetcher) *Validator {
	return &Validator{fetcher: fetcher}
}

// Validate accepts ep if its scale window is valid and its stats endpoint
// answers 200 with a body that contains count.
//
// An invalid window is rejected with ReasonInvalidScale before any request
// is made. Timeouts, transport errors, non-200 statuses and a missing count
// are ReasonCannotConnect. Anything else is ReasonUnknown.
func (v *Validator) Validate(ctx context.Context, ep config.EndpointConfig) (res Result, err error) {
	if err := ValidateScale(ep.ScaleMin, ep.ScaleMax); err != nil {
		return Result{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, reject(ReasonUnknown, fmt.Errorf("panic: %v", r))
		}
	}()

	stats, err := v.fetcher.FetchStats(ctx, ep)
	if err != nil {
		var fe *scraper.FetchError
		if errors.As(err, &fe) {
			return Result{}, reject(ReasonCannotConnect, err)
		}
		return Result{}, reject(ReasonUnknown, err)
	}
	if !stats.HasCount() {
		return Result{}, reject(ReasonCannotConnect, errMissingCount)
	}

	return Result{Title: ep.Title(), UniqueID: ep.UniqueID()}, nil
}

// ValidateScale is the range rule shared by setup and option edits.
func ValidateScale(scaleMin, scaleMax int) error {
	if err := config.ValidateScale(scaleMin, scaleMax); err != nil {
		return reject(ReasonInvalidScale, err)
	}
	return nil
}
