package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/entries"
	"github.com/hypermind/hypermind-agent/internal/manager"
	"github.com/hypermind/hypermind-agent/internal/setup"
)

// maxBodyBytes bounds setup and options request bodies.
const maxBodyBytes = 64 << 10

// Options configures optional parts of the handler.
type Options struct {
	// SetupRatePerMinute and SetupBurst bound POST /api/v1/entries and
	// POST /api/v1/validate. Zero means the config defaults.
	SetupRatePerMinute int
	SetupBurst         int

	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
	// Stream is mounted at /ws/stream when non-nil.
	Stream http.Handler
}

// Handler serves the REST API over an entry store, the setup flow and the
// manager that runs the entries.
type Handler struct {
	store *entries.Store
	flow  *setup.Flow
	mgr   *manager.Manager
}

// New creates the router and registers all routes.
func New(st *entries.Store, flow *setup.Flow, mgr *manager.Manager, opts Options) http.Handler {
	if opts.SetupRatePerMinute <= 0 {
		opts.SetupRatePerMinute = config.DefaultSetupRatePerMinute
	}
	if opts.SetupBurst <= 0 {
		opts.SetupBurst = config.DefaultSetupBurst
	}
	h := &Handler{store: st, flow: flow, mgr: mgr}
	probe := newRateLimiter(opts.SetupRatePerMinute, opts.SetupBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/sensors", h.listSensors)
		r.With(probe.Limit).Post("/validate", h.validate)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.listEntries)
			r.With(probe.Limit).Post("/", h.createEntry)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getEntry)
				r.Delete("/", h.deleteEntry)
				r.Put("/options", h.updateOptions)
				r.Post("/refresh", h.refresh)
				r.Get("/sensors", h.entrySensors)
			})
		})
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Stream != nil {
		r.Handle("/ws/stream", opts.Stream)
	}
	return r
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	list := h.store.List()
	resp := HealthResponse{Status: "ok", EntryCount: len(list)}
	for _, e := range list {
		switch h.mgr.State(e.ID) {
		case manager.StateLoaded:
			resp.LoadedCount++
		case manager.StateSetupRetry:
			resp.RetryCount++
		default:
			resp.UnknownCount++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

func (h *Handler) listEntries(w http.ResponseWriter, _ *http.Request) {
	list := h.store.List()
	out := make([]EntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, BuildEntry(e, h.mgr))
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "entry not found")
		return
	}
	jsonResp(w, http.StatusOK, BuildEntry(e, h.mgr))
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeForm(w, r)
	if !ok {
		return
	}
	e, err := h.flow.Create(r.Context(), data)
	if err != nil {
		rejectResp(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, BuildEntry(e, h.mgr))
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeForm(w, r)
	if !ok {
		return
	}
	res, err := h.flow.Validate(r.Context(), data)
	if err != nil {
		rejectResp(w, err)
		return
	}
	jsonResp(w, http.StatusOK, res)
}

func (h *Handler) updateOptions(w http.ResponseWriter, r *http.Request) {
	opts, ok := decodeForm(w, r)
	if !ok {
		return
	}
	e, err := h.flow.UpdateOptions(r.Context(), chi.URLParam(r, "id"), opts)
	switch {
	case errors.Is(err, entries.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "entry not found")
	case err != nil:
		rejectResp(w, err)
	default:
		jsonResp(w, http.StatusOK, BuildEntry(e, h.mgr))
	}
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Remove(chi.URLParam(r, "id")); err != nil {
		jsonErr(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "entry not found")
		return
	}
	c, ok := h.mgr.Coordinator(id)
	if !ok {
		jsonErr(w, http.StatusConflict, "entry not loaded")
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, BuildEntry(e, h.mgr))
}

func (h *Handler) entrySensors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Get(id); !ok {
		jsonErr(w, http.StatusNotFound, "entry not found")
		return
	}
	jsonResp(w, http.StatusOK, entrySensors(id, h.mgr))
}

func (h *Handler) listSensors(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, BuildSensors(h.store, h.mgr))
}

// --- helpers ----------------------------------------------------------------

// decodeForm reads a JSON object body. It writes a 400 and returns false
// when the body is not an object.
func decodeForm(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var form map[string]any
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form == nil {
		jsonResp(w, http.StatusBadRequest, setupErrorResponse{
			Errors: map[string]string{"base": string(setup.ReasonInvalidInput)},
		})
		return nil, false
	}
	return form, true
}

func rejectResp(w http.ResponseWriter, err error) {
	reason := setup.ReasonOf(err)
	if reason == setup.ReasonAlreadyConfigured {
		jsonResp(w, http.StatusConflict, abortResponse{Reason: string(reason)})
		return
	}
	jsonResp(w, http.StatusBadRequest, setupErrorResponse{
		Errors: map[string]string{"base": string(reason)},
	})
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// logRequests logs one line per request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
