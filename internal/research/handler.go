package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/httpx"
	"github.com/ayush/whattobuild/internal/middleware"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

const heartbeatEvery = 15 * time.Second

// Subscriber streams status events for one request.
type Subscriber interface {
	Subscribe(ctx context.Context, requestID string) (<-chan models.StatusEvent, error)
}

// Handler holds research HTTP handlers.
type Handler struct {
	svc    *Service
	events Subscriber
	log    zerolog.Logger
}

func NewHandler(svc *Service, events Subscriber, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, events: events, log: log.With().Str("component", "research_http").Logger()}
}

// Create validates the request and starts a research run. The response is
// the pending request; progress is polled or streamed.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := h.svc.Start(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, req)
}

// List returns the latest research requests of the current user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if reqs == nil {
		reqs = []models.ResearchRequest{}
	}
	httpx.WriteJSON(w, http.StatusOK, reqs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Result(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Retry(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, req)
}

func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Regenerate(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Export streams the CSV report. A stored copy is linked in X-Export-URL.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.Export(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if exp.URL != "" {
		w.Header().Set("X-Export-URL", exp.URL)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.Write(exp.Data)
}

// Events streams status changes as server-sent events. The current status is
// sent first; the stream ends once a terminal status has been sent.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	req, err := h.svc.Get(ctx, middleware.UserID(ctx), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var events <-chan models.StatusEvent
	if !req.Status.Terminal() {
		if events, err = h.events.Subscribe(ctx, id); err != nil {
			h.log.Error().Err(err).Str("request_id", id).Msg("subscribe failed")
			httpx.Error(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		// re-read after subscribing; transitions before this point were not delivered
		if req, err = h.svc.Get(ctx, middleware.UserID(ctx), id); err != nil {
			h.fail(w, err)
			return
		}
		if req.Status.Terminal() {
			events = nil
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	current := models.StatusEvent{RequestID: id, Status: req.Status, Error: req.Error, At: req.UpdatedAt}
	writeEvent(w, current)
	flusher.Flush()
	if events == nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Status.Rank() >= 0 && ev.Status.Rank() <= current.Status.Rank() {
				continue
			}
			current = ev
			writeEvent(w, ev)
			flusher.Flush()
			if ev.Status.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev models.StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, billing.ErrInsufficientCredits):
		httpx.Error(w, http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, store.ErrInvalidTransition):
		httpx.Error(w, http.StatusConflict, "only failed research can be retried")
	case errors.Is(err, ErrNotReady):
		httpx.Error(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("research request failed")
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}
