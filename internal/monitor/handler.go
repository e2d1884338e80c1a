package monitor

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/httpx"
	"github.com/ayush/whattobuild/internal/middleware"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/research"
	"github.com/ayush/whattobuild/internal/store"
)

// Handler holds monitor HTTP handlers.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if ms == nil {
		ms = []models.MonitoredNiche{}
	}
	httpx.WriteJSON(w, http.StatusOK, ms)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateMonitorRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Pause(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Resume(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, research.ErrInvalidInput):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyMonitoring):
		httpx.Error(w, http.StatusConflict, ErrAlreadyMonitoring.Error())
	case errors.Is(err, store.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not found")
	default:
		h.log.Error().Err(err).Msg("monitor request failed")
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}
