package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/whattobuild/internal/auth"
	"github.com/ayush/whattobuild/internal/models"
)

func newTestRouter(sr *serviceRig, userID string) http.Handler {
	h := NewHandler(sr.svc, sr.bus, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	})
	r.Post("/api/research", h.Create)
	r.Get("/api/research", h.List)
	r.Get("/api/research/{id}", h.Get)
	r.Get("/api/research/{id}/result", h.Result)
	r.Get("/api/research/{id}/events", h.Events)
	r.Post("/api/research/{id}/retry", h.Retry)
	r.Post("/api/research/{id}/regenerate", h.Regenerate)
	r.Get("/api/research/{id}/export.csv", h.Export)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Create(t *testing.T) {
	sr := newServiceRig(1)
	h := newTestRouter(sr, testUser)

	rec := serve(h, http.MethodPost, "/api/research", `{"niche":"home gym","categories":["saas"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	sr.svc.Wait()

	rec = serve(h, http.MethodPost, "/api/research", `{"niche":"home gym"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = serve(h, http.MethodPost, "/api/research", `{"niche":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPost, "/api/research", `{"niche":"x","depth":"deep"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListEmptyIsArray(t *testing.T) {
	sr := newServiceRig(1)
	rec := serve(newTestRouter(sr, testUser), http.MethodGet, "/api/research", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_NotFoundAndOwnership(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)
	id := req.ID.Hex()

	other := newTestRouter(sr, "intruder")
	for _, path := range []string{"/api/research/" + id, "/api/research/" + id + "/result", "/api/research/" + id + "/export.csv"} {
		assert.Equal(t, http.StatusNotFound, serve(other, http.MethodGet, path, "").Code, path)
	}

	owner := newTestRouter(sr, testUser)
	assert.Equal(t, http.StatusNotFound, serve(owner, http.MethodGet, "/api/research/000000000000000000000000", "").Code)

	rec := serve(owner, http.MethodGet, "/api/research/"+id+"/result", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pain_points"`)
}

func TestHandler_RetryDoneConflicts(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)
	rec := serve(newTestRouter(sr, testUser), http.MethodPost, "/api/research/"+req.ID.Hex()+"/retry", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Export(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)

	rec := serve(newTestRouter(sr, testUser), http.MethodGet, "/api/research/"+req.ID.Hex()+"/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="home-gym-research.csv"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Export-URL"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Research Report,home gym"))
}

func TestHandler_EventsTerminalSnapshot(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)

	rec := serve(newTestRouter(sr, testUser), http.MethodGet, "/api/research/"+req.ID.Hex()+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "event: status"))
	assert.Contains(t, rec.Body.String(), `"status":"done"`)
}

func TestHandler_EventsStreamsForwardOnly(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "x", Status: models.StatusScraping, UpdatedAt: time.Now()})
	id := req.ID.Hex()

	sr.bus.ch = make(chan models.StatusEvent, 4)
	sr.bus.ch <- models.StatusEvent{RequestID: id, Status: models.StatusPending}
	sr.bus.ch <- models.StatusEvent{RequestID: id, Status: models.StatusAnalyzing}
	sr.bus.ch <- models.StatusEvent{RequestID: id, Status: models.StatusFailed, Error: "boom"}
	sr.bus.ch <- models.StatusEvent{RequestID: id, Status: models.StatusDone}

	rec := serve(newTestRouter(sr, testUser), http.MethodGet, "/api/research/"+id+"/events", "")
	body := rec.Body.String()

	assert.Equal(t, 3, strings.Count(body, "event: status"))
	scraping := strings.Index(body, `"status":"scraping"`)
	analyzing := strings.Index(body, `"status":"analyzing"`)
	failed := strings.Index(body, `"status":"failed"`)
	assert.True(t, scraping >= 0 && scraping < analyzing && analyzing < failed)
	assert.NotContains(t, body, `"status":"pending"`)
	assert.NotContains(t, body, `"status":"done"`)
}

func TestHandler_EventsSubscribeFailure(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "x", Status: models.StatusPending, UpdatedAt: time.Now()})

	rec := serve(newTestRouter(sr, testUser), http.MethodGet, "/api/research/"+req.ID.Hex()+"/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_EventsRunFinishesWhileSubscribing(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "x", Status: models.StatusPending, UpdatedAt: time.Now()})
	id := req.ID.Hex()

	sr.bus.ch = make(chan models.StatusEvent)
	sr.bus.onSubscribe = func() {
		require.NoError(t, sr.store.Transition(context.Background(), id, models.StatusDone, ""))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	httpReq := httptest.NewRequest(http.MethodGet, "/api/research/"+id+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	start := time.Now()
	newTestRouter(sr, testUser).ServeHTTP(rec, httpReq)

	assert.Less(t, time.Since(start), time.Second)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: status"))
	assert.Contains(t, body, `"status":"done"`)
	assert.NotContains(t, body, `"status":"pending"`)
}
