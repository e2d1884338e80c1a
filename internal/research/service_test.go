package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

type serviceRig struct {
	*rig
	sols    *fakeSolutions
	exports *fakeExports
	svc     *Service
}

func newServiceRig(balance int) *serviceRig {
	r := newRig(balance)
	r.disc.sources = sources(3)
	r.ext.batch = contents(3)
	r.an.painPoints = []models.PainPoint{
		{Title: "Cost", Description: "too expensive", Frequency: 9, Sentiment: models.SentimentNegative,
			Keywords: []string{"cheap gym"}, Solutions: []models.Solution{{Title: "old"}}},
		{Title: "Space", Description: "small flats", Frequency: 4, Sentiment: models.SentimentMixed},
	}
	sr := &serviceRig{rig: r, sols: &fakeSolutions{}, exports: &fakeExports{}}
	sr.svc = NewService(r.store, r.p, r.ledger, sr.sols, sr.exports, 30*time.Minute, zerolog.Nop())
	return sr
}

func (sr *serviceRig) startDone(t *testing.T) *models.ResearchRequest {
	t.Helper()
	req, err := sr.svc.Start(context.Background(), testUser, models.CreateRequest{Niche: "home gym"})
	require.NoError(t, err)
	sr.svc.Wait()
	require.Equal(t, models.StatusDone, sr.store.status(req.ID.Hex()))
	return req
}

func TestValidate(t *testing.T) {
	in := models.CreateRequest{
		Niche:      "  email tools ",
		Categories: []models.Category{models.CategorySaaS, models.CategorySaaS, models.CategoryWebsite},
	}
	require.NoError(t, Validate(&in))
	assert.Equal(t, "email tools", in.Niche)
	assert.Equal(t, []models.Category{models.CategorySaaS, models.CategoryWebsite}, in.Categories)

	for name, bad := range map[string]models.CreateRequest{
		"empty niche":  {Niche: "   "},
		"category":     {Niche: "x", Categories: []models.Category{"crypto"}},
		"url scheme":   {Niche: "x", SourceURL: "ftp://example.com"},
		"niche length": {Niche: string(make([]byte, 201))},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(&bad), ErrInvalidInput)
		})
	}
}

func TestService_StartRunsAndCharges(t *testing.T) {
	sr := newServiceRig(3)
	req, err := sr.svc.Start(context.Background(), testUser, models.CreateRequest{Niche: "home gym"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, testUser, req.UserID)

	sr.svc.Wait()
	got, err := sr.svc.Get(context.Background(), testUser, req.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, 1, got.CreditsUsed)
	assert.Equal(t, 2, sr.ledger.balance[testUser])
}

func TestService_StartRequiresCredit(t *testing.T) {
	sr := newServiceRig(0)
	_, err := sr.svc.Start(context.Background(), testUser, models.CreateRequest{Niche: "home gym"})
	assert.ErrorIs(t, err, billing.ErrInsufficientCredits)

	reqs, _ := sr.svc.List(context.Background(), testUser)
	assert.Empty(t, reqs)
}

func TestService_OwnershipIsHidden(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)

	_, err := sr.svc.Get(context.Background(), "someone-else", req.ID.Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = sr.svc.Result(context.Background(), "someone-else", req.ID.Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_RetryFailedOnly(t *testing.T) {
	sr := newServiceRig(3)
	sr.disc.sources = nil
	req, err := sr.svc.Start(context.Background(), testUser, models.CreateRequest{Niche: "home gym"})
	require.NoError(t, err)
	sr.svc.Wait()
	id := req.ID.Hex()
	require.Equal(t, models.StatusFailed, sr.store.status(id))
	assert.Zero(t, sr.ledger.calls)

	sr.disc.sources = sources(2)
	retried, err := sr.svc.Retry(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, retried.Status)
	assert.Empty(t, retried.Error)
	sr.svc.Wait()
	assert.Equal(t, models.StatusDone, sr.store.status(id))
	assert.Equal(t, 2, sr.ledger.balance[testUser])

	_, err = sr.svc.Retry(context.Background(), testUser, id)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestService_RegenerateReplacesOnlySolutions(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)
	id := req.ID.Hex()
	before, err := sr.svc.Result(context.Background(), testUser, id)
	require.NoError(t, err)

	sr.sols.sols = [][]models.Solution{
		{{Title: "new A", Type: models.SolutionSaaS}},
		{{Title: "new B", Type: models.SolutionContent}},
	}
	res, err := sr.svc.Regenerate(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Equal(t, "new A", res.PainPoints[0].Solutions[0].Title)

	after, err := sr.svc.Result(context.Background(), testUser, id)
	require.NoError(t, err)
	for i := range after.PainPoints {
		assert.Equal(t, before.PainPoints[i].Title, after.PainPoints[i].Title)
		assert.Equal(t, *before.PainPoints[i].OpportunityScore, *after.PainPoints[i].OpportunityScore)
		assert.Equal(t, sr.sols.sols[i], after.PainPoints[i].Solutions)
	}
	// regeneration is free
	assert.Equal(t, 2, sr.ledger.balance[testUser])

	sr.sols.err = errors.New("model overloaded")
	_, err = sr.svc.Regenerate(context.Background(), testUser, id)
	assert.Error(t, err)
}

func TestService_RegenerateNeedsDone(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "x", Status: models.StatusAnalyzing, UpdatedAt: time.Now()})

	_, err := sr.svc.Regenerate(context.Background(), testUser, req.ID.Hex())
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = sr.svc.Export(context.Background(), testUser, req.ID.Hex())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestService_Export(t *testing.T) {
	sr := newServiceRig(3)
	req := sr.startDone(t)
	id := req.ID.Hex()

	exp, err := sr.svc.Export(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Equal(t, "home-gym-research.csv", exp.Filename)
	assert.Contains(t, string(exp.Data), "PAIN POINTS")
	assert.Equal(t, "exports/"+id+"/report.csv", exp.Key)
	assert.Equal(t, "https://files.example.com/"+exp.Key, exp.URL)
	assert.Equal(t, exp.Data, sr.exports.saved[exp.Key])

	sr.exports.err = errors.New("bucket missing")
	exp, err = sr.svc.Export(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Empty(t, exp.Key)
	assert.NotEmpty(t, exp.Data)
}

func TestService_SweepStale(t *testing.T) {
	sr := newServiceRig(3)
	old := time.Now().Add(-time.Hour)
	stale := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "a", Status: models.StatusScraping, UpdatedAt: old})
	fresh := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "b", Status: models.StatusPending, UpdatedAt: time.Now()})
	done := sr.store.seed(models.ResearchRequest{UserID: testUser, Niche: "c", Status: models.StatusDone, UpdatedAt: old})

	n, err := sr.svc.SweepStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := sr.store.GetRequest(context.Background(), stale.ID.Hex())
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "research timed out", got.Error)
	assert.Equal(t, models.StatusPending, sr.store.status(fresh.ID.Hex()))
	assert.Equal(t, models.StatusDone, sr.store.status(done.ID.Hex()))
}
