package ideas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/whattobuild/internal/auth"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

type memIdeas struct {
	ideas []*models.SavedIdea
}

func (m *memIdeas) CreateIdea(_ context.Context, idea *models.SavedIdea) error {
	idea.ID = primitive.NewObjectID()
	cp := *idea
	m.ideas = append(m.ideas, &cp)
	return nil
}

func (m *memIdeas) ListIdeas(_ context.Context, userID string) ([]models.SavedIdea, error) {
	var out []models.SavedIdea
	for _, i := range m.ideas {
		if i.UserID == userID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *memIdeas) UpdateIdea(_ context.Context, id, userID string, status *models.IdeaStatus, notes *string) (*models.SavedIdea, error) {
	for _, i := range m.ideas {
		if i.ID.Hex() == id && i.UserID == userID {
			if status != nil {
				i.Status = *status
			}
			if notes != nil {
				i.Notes = *notes
			}
			cp := *i
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memIdeas) DeleteIdea(_ context.Context, id, userID string) error {
	for n, i := range m.ideas {
		if i.ID.Hex() == id && i.UserID == userID {
			m.ideas = append(m.ideas[:n], m.ideas[n+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type requests map[string]*models.ResearchRequest

func (r requests) GetRequest(_ context.Context, id string) (*models.ResearchRequest, error) {
	if req, ok := r[id]; ok {
		return req, nil
	}
	return nil, store.ErrNotFound
}

func router(st *memIdeas, reqs requests, userID string) http.Handler {
	h := NewHandler(st, reqs, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	})
	r.Get("/api/ideas", h.List)
	r.Post("/api/ideas", h.Create)
	r.Patch("/api/ideas/{id}", h.Update)
	r.Delete("/api/ideas/{id}", h.Delete)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestIdeas_Lifecycle(t *testing.T) {
	st := &memIdeas{}
	reqs := requests{"r1": {UserID: "u1"}, "r2": {UserID: "u2"}}
	h := router(st, reqs, "u1")

	assert.JSONEq(t, `[]`, do(h, http.MethodGet, "/api/ideas", "").Body.String())

	rec := do(h, http.MethodPost, "/api/ideas", `{"request_id":"r1","pain_point_title":"Cost","pain_point_description":"too expensive","solution_title":"RackShare","solution_type":"saas"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"saved"`)
	require.Len(t, st.ideas, 1)
	id := st.ideas[0].ID.Hex()

	rec = do(h, http.MethodPatch, "/api/ideas/"+id, `{"status":"building","notes":"call suppliers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.IdeaBuilding, st.ideas[0].Status)
	assert.Equal(t, "call suppliers", st.ideas[0].Notes)

	rec = do(h, http.MethodPatch, "/api/ideas/"+id, `{"notes":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.IdeaBuilding, st.ideas[0].Status)
	assert.Empty(t, st.ideas[0].Notes)

	other := router(st, reqs, "u2")
	assert.Equal(t, http.StatusNotFound, do(other, http.MethodPatch, "/api/ideas/"+id, `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(other, http.MethodDelete, "/api/ideas/"+id, "").Code)

	assert.Equal(t, http.StatusOK, do(h, http.MethodDelete, "/api/ideas/"+id, "").Code)
	assert.Empty(t, st.ideas)
}

func TestIdeas_CreateValidation(t *testing.T) {
	st := &memIdeas{}
	reqs := requests{"r1": {UserID: "u1"}, "r2": {UserID: "u2"}}
	h := router(st, reqs, "u1")

	cases := map[string]struct {
		body string
		code int
	}{
		"missing title":     {`{"request_id":"r1"}`, http.StatusBadRequest},
		"bad solution type": {`{"request_id":"r1","pain_point_title":"x","solution_type":"crypto"}`, http.StatusBadRequest},
		"unknown field":     {`{"request_id":"r1","pain_point_title":"x","user_id":"u2"}`, http.StatusBadRequest},
		"foreign request":   {`{"request_id":"r2","pain_point_title":"x"}`, http.StatusNotFound},
		"missing request":   {`{"request_id":"r9","pain_point_title":"x"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, do(h, http.MethodPost, "/api/ideas", tc.body).Code)
		})
	}
	assert.Empty(t, st.ideas)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/api/ideas/abc", `{"status":"famous"}`).Code)
}
