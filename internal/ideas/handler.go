// Package ideas lets users bookmark pain points and solutions from their
// research and track them.
package ideas

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/httpx"
	"github.com/ayush/whattobuild/internal/middleware"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

// Store persists saved ideas.
type Store interface {
	CreateIdea(ctx context.Context, idea *models.SavedIdea) error
	ListIdeas(ctx context.Context, userID string) ([]models.SavedIdea, error)
	UpdateIdea(ctx context.Context, id, userID string, status *models.IdeaStatus, notes *string) (*models.SavedIdea, error)
	DeleteIdea(ctx context.Context, id, userID string) error
}

// RequestLookup confirms the research an idea points at exists.
type RequestLookup interface {
	GetRequest(ctx context.Context, id string) (*models.ResearchRequest, error)
}

type Handler struct {
	ideas    Store
	requests RequestLookup
	log      zerolog.Logger
}

func NewHandler(ideas Store, requests RequestLookup, log zerolog.Logger) *Handler {
	return &Handler{ideas: ideas, requests: requests, log: log}
}

type createRequest struct {
	RequestID            string              `json:"request_id"`
	PainPointTitle       string              `json:"pain_point_title"`
	PainPointDescription string              `json:"pain_point_description"`
	SolutionTitle        string              `json:"solution_title"`
	SolutionDescription  string              `json:"solution_description"`
	SolutionType         models.SolutionType `json:"solution_type"`
}

type updateRequest struct {
	Status *models.IdeaStatus `json:"status"`
	Notes  *string            `json:"notes"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.ideas.ListIdeas(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if list == nil {
		list = []models.SavedIdea{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// Create saves a pain point from one of the user's own research results.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var in createRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.PainPointTitle = strings.TrimSpace(in.PainPointTitle)
	if in.RequestID == "" || in.PainPointTitle == "" {
		httpx.Error(w, http.StatusBadRequest, "request_id and pain_point_title are required")
		return
	}
	switch in.SolutionType {
	case "", models.SolutionSaaS, models.SolutionEcommerce, models.SolutionService, models.SolutionContent:
	default:
		httpx.Error(w, http.StatusBadRequest, "unknown solution_type")
		return
	}

	req, err := h.requests.GetRequest(r.Context(), in.RequestID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if req.UserID != userID {
		h.fail(w, store.ErrNotFound)
		return
	}

	idea := &models.SavedIdea{
		UserID:               userID,
		RequestID:            in.RequestID,
		PainPointTitle:       in.PainPointTitle,
		PainPointDescription: in.PainPointDescription,
		SolutionTitle:        in.SolutionTitle,
		SolutionDescription:  in.SolutionDescription,
		SolutionType:         in.SolutionType,
		Status:               models.IdeaSaved,
	}
	if err := h.ideas.CreateIdea(r.Context(), idea); err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, idea)
}

// Update changes the status and/or notes of an idea.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in updateRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Status != nil && !in.Status.Valid() {
		httpx.Error(w, http.StatusBadRequest, "unknown status")
		return
	}

	idea, err := h.ideas.UpdateIdea(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()), in.Status, in.Notes)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, idea)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ideas.DeleteIdea(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "idea not found")
		return
	}
	h.log.Error().Err(err).Msg("ideas request failed")
	httpx.Error(w, http.StatusInternalServerError, "internal error")
}
