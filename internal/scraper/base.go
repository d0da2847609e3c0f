package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hypermind/hypermind-agent/internal/config"
)

// maxBodyBytes caps how much of a stats response is read.
const maxBodyBytes = 1 << 20

var errNotObject = errors.New("decode stats: body is not a JSON object")

// Fetcher polls Hypermind stats endpoints. One Fetcher, and the
// *http.Client inside it, is shared by every coordinator and the validator.
//
// All exported methods are safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New returns a Fetcher whose requests are bounded by timeout, covering
// connect, headers and body read.
func New(timeout time.Duration) *Fetcher {
	return NewWithClient(buildHTTPClient(), timeout)
}

// NewWithClient returns a Fetcher that issues requests through client.
func NewWithClient(client *http.Client, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return &Fetcher{client: client, timeout: timeout, now: time.Now}
}

// Timeout returns the per-request bound.
func (f *Fetcher) Timeout() time.Duration { return f.timeout }

// buildHTTPClient constructs the shared client. The overall deadline is
// carried by the request context, not http.Client.Timeout.
func buildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DefaultRequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: config.DefaultRequestTimeout,
	}
	return &http.Client{Transport: transport}
}

// Stats is the decoded body of GET /api/stats. A nil field was absent (or
// null) in the payload. The node's "id" field is not consumed.
type Stats struct {
	Count  *json.Number `json:"count"`
	Direct *json.Number `json:"direct"`
}

// HasCount reports whether the payload carried a count field.
func (s *Stats) HasCount() bool { return s != nil && s.Count != nil }

// CountOrZero returns count, or 0 when absent. Negative values read as 0.
func (s *Stats) CountOrZero() int { return numberOrZero(s.Count) }

// DirectOrZero returns direct, or 0 when absent. Negative values read as 0.
func (s *Stats) DirectOrZero() int { return numberOrZero(s.Direct) }

// numberOrZero truncates n toward zero and saturates at math.MaxInt, so an
// oversized count still reads as a large one.
func numberOrZero(n *json.Number) int {
	if n == nil {
		return 0
	}
	if v, err := strconv.ParseInt(n.String(), 10, 0); err == nil {
		return max(int(v), 0)
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	}
	return int(f)
}

// FetchStats performs exactly one bounded GET against ep's stats URL and
// decodes the body. Every failure is a *FetchError.
//
// The request and the body read share one deadline; when it fires the
// in-flight request is cancelled and its connection released.
func (f *Fetcher) FetchStats(ctx context.Context, ep config.EndpointConfig) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.StatsURL(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{Kind: KindBadStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read body: %w", err))
	}

	var stats *Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("decode stats: %w", err)}
	}
	if stats == nil {
		return nil, &FetchError{Kind: KindTransport, Err: errNotObject}
	}
	slog.Debug("scraper: api response", "url", ep.StatsURL(), "body", string(body))
	return stats, nil
}
