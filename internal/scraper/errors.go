package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies why a poll failed.
type Kind int

const (
	// KindTimeout means the request deadline elapsed before the body was read.
	KindTimeout Kind = iota + 1
	// KindTransport covers DNS, connect, reset and body decode failures.
	KindTransport
	// KindBadStatus means a response arrived with a status other than 200.
	KindBadStatus
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport_error"
	case KindBadStatus:
		return "bad_status"
	default:
		return "unknown"
	}
}

// Sentinels matched by FetchError.Is, so callers can write
// errors.Is(err, scraper.ErrTimeout).
var (
	ErrTimeout   = errors.New("timeout")
	ErrTransport = errors.New("transport error")
	ErrBadStatus = errors.New("bad status")
)

// FetchError is the only error type returned by Fetcher. Failures are
// transient: the caller keeps its previous data and tries again next cycle.
type FetchError struct {
	Kind Kind
	// StatusCode is set when Kind is KindBadStatus.
	StatusCode int
	// Err is the underlying cause, if any.
	Err error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "timeout communicating with hypermind"
	case KindBadStatus:
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	default:
		return fmt.Sprintf("error communicating with hypermind: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets the kind sentinels match a FetchError.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrBadStatus:
		return e.Kind == KindBadStatus
	}
	return false
}

// classify maps a transport-level failure to Timeout or Transport.
// ctx is the per-request context carrying the deadline.
func classify(ctx context.Context, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindTransport, Err: err}
}
