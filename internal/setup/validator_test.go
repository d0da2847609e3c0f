package setup

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

// node is a fake Hypermind node that counts requests.
type node struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newNode(t *testing.T, status int, body string) *node {
	t.Helper()
	n := &node{}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n.hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *node) data(t *testing.T) map[string]any {
	t.Helper()
	u, err := url.Parse(n.srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return map[string]any{"host": host, "port": p}
}

func (n *node) endpoint(t *testing.T, scaleMin, scaleMax int) config.EndpointConfig {
	t.Helper()
	d := n.data(t)
	return config.EndpointConfig{Host: d["host"].(string), Port: d["port"].(int), ScaleMin: scaleMin, ScaleMax: scaleMax}
}

func (n *node) validator() *Validator {
	return NewValidator(scraper.NewWithClient(n.srv.Client(), time.Second))
}

func TestValidate_Success(t *testing.T) {
	n := newNode(t, http.StatusOK, `{"count": 12, "direct": 3, "id": "x"}`)
	ep := n.endpoint(t, 0, 10000)

	res, err := n.validator().Validate(context.Background(), ep)
	require.NoError(t, err)
	assert.Equal(t, "Hypermind ("+ep.Host+":"+strconv.Itoa(ep.Port)+")", res.Title)
	assert.Equal(t, ep.UniqueID(), res.UniqueID)
	assert.EqualValues(t, 1, n.hits.Load())
}

func TestValidate_InvalidScaleMakesNoRequest(t *testing.T) {
	n := newNode(t, http.StatusOK, `{"count": 1}`)

	_, err := n.validator().Validate(context.Background(), n.endpoint(t, 5000, 100))
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidScale, ReasonOf(err))
	assert.ErrorIs(t, err, config.ErrInvalidScale)
	assert.Zero(t, n.hits.Load(), "no request may be attempted for an invalid scale")

	_, err = n.validator().Validate(context.Background(), n.endpoint(t, 100, 100))
	assert.Equal(t, ReasonInvalidScale, ReasonOf(err))
	assert.Zero(t, n.hits.Load())
}

func TestValidate_CannotConnect(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"missing count", http.StatusOK, `{"direct": 3}`},
		{"null count", http.StatusOK, `{"count": null}`},
		{"service unavailable", http.StatusServiceUnavailable, `{"count": 1}`},
		{"not found", http.StatusNotFound, ``},
		{"not json", http.StatusOK, `hello`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := newNode(t, tc.status, tc.body)
			_, err := n.validator().Validate(context.Background(), n.endpoint(t, 0, 10))
			require.Error(t, err)
			assert.Equal(t, ReasonCannotConnect, ReasonOf(err))
		})
	}
}

func TestValidate_UnreachableIsCannotConnect(t *testing.T) {
	v := NewValidator(scraper.NewWithClient(&http.Client{}, time.Second))
	_, err := v.Validate(context.Background(), config.EndpointConfig{Host: "127.0.0.1", Port: 1, ScaleMax: 10})
	assert.Equal(t, ReasonCannotConnect, ReasonOf(err))
}

func TestValidate_TimeoutIsCannotConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()
	n := &node{srv: srv}

	v := NewValidator(scraper.NewWithClient(srv.Client(), 50*time.Millisecond))
	_, err := v.Validate(context.Background(), n.endpoint(t, 0, 10))
	assert.Equal(t, ReasonCannotConnect, ReasonOf(err))
	assert.ErrorIs(t, err, scraper.ErrTimeout)
}

type stubFetcher struct {
	stats *scraper.Stats
	err   error
	panic bool
}

func (s stubFetcher) FetchStats(context.Context, config.EndpointConfig) (*scraper.Stats, error) {
	if s.panic {
		panic("boom")
	}
	return s.stats, s.err
}

func TestValidate_Unknown(t *testing.T) {
	ep := config.EndpointConfig{Host: "h", Port: 1, ScaleMax: 10}

	_, err := NewValidator(stubFetcher{err: errors.New("weird")}).Validate(context.Background(), ep)
	assert.Equal(t, ReasonUnknown, ReasonOf(err))

	_, err = NewValidator(stubFetcher{panic: true}).Validate(context.Background(), ep)
	assert.Equal(t, ReasonUnknown, ReasonOf(err))
}

func TestValidateScale_SharedRule(t *testing.T) {
	assert.NoError(t, ValidateScale(0, 10000))
	assert.Equal(t, ReasonInvalidScale, ReasonOf(ValidateScale(10, 10)))
	assert.Equal(t, ReasonInvalidScale, ReasonOf(ValidateScale(5000, 100)))
}

func TestRejectError_Message(t *testing.T) {
	assert.Equal(t, "setup: already_configured", reject(ReasonAlreadyConfigured, nil).Error())
	assert.Equal(t, "setup: cannot_connect: x", reject(ReasonCannotConnect, errors.New("x")).Error())
}
