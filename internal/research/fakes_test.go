package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/discovery"
	"github.com/ayush/whattobuild/internal/extract"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

// memStore mirrors the conditional-update rules of the Mongo store.
type memStore struct {
	mu       sync.Mutex
	requests map[string]*models.ResearchRequest
	results  map[string]*models.ResearchResult
	history  map[string][]models.Status
	saveErr  error
	failOn   models.Status
}

func newMemStore() *memStore {
	return &memStore{
		requests: map[string]*models.ResearchRequest{},
		results:  map[string]*models.ResearchResult{},
		history:  map[string][]models.Status{},
	}
}

func (m *memStore) CreateRequest(_ context.Context, req *models.ResearchRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.Status = models.StatusPending
	req.CreditsUsed = 0
	req.CreatedAt, req.UpdatedAt = now, now
	cp := *req
	m.requests[req.ID.Hex()] = &cp
	return req.ID.Hex(), nil
}

// seed stores a request as-is, keeping its status and timestamps.
func (m *memStore) seed(req models.ResearchRequest) *models.ResearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	m.requests[req.ID.Hex()] = &req
	cp := req
	return &cp
}

func (m *memStore) GetRequest(_ context.Context, id string) (*models.ResearchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memStore) ListRequests(_ context.Context, userID string, _ int64) ([]models.ResearchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ResearchRequest
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) Transition(_ context.Context, id string, to models.Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	if !models.CanTransition(req.Status, to) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, req.Status, to)
	}
	if m.failOn != "" && to == m.failOn {
		return errors.New("write conflict")
	}
	req.Status = to
	req.UpdatedAt = time.Now().UTC()
	if errMsg != "" {
		req.Error = errMsg
	}
	m.history[id] = append(m.history[id], to)
	return nil
}

func (m *memStore) ResetFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	if req.Status != models.StatusFailed {
		return fmt.Errorf("%w: %s -> pending", store.ErrInvalidTransition, req.Status)
	}
	req.Status = models.StatusPending
	req.Error = ""
	delete(m.results, id)
	return nil
}

func (m *memStore) MarkCharged(_ context.Context, id string, credits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.requests[id]; ok && req.CreditsUsed == 0 {
		req.CreditsUsed = credits
	}
	return nil
}

func (m *memStore) ListStale(_ context.Context, before time.Time) ([]models.ResearchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ResearchRequest
	for _, r := range m.requests {
		if !r.Status.Terminal() && r.UpdatedAt.Before(before) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) SaveResult(_ context.Context, res *models.ResearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.results[res.RequestID]; ok {
		return store.ErrResultExists
	}
	cp := *res
	m.results[res.RequestID] = &cp
	return nil
}

func (m *memStore) GetResult(_ context.Context, requestID string) (*models.ResearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *res
	cp.PainPoints = append([]models.PainPoint(nil), res.PainPoints...)
	return &cp, nil
}

func (m *memStore) ReplaceSolutions(_ context.Context, requestID string, solutions [][]models.Solution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[requestID]
	if !ok {
		return store.ErrNotFound
	}
	for i, sols := range solutions {
		if i < len(res.PainPoints) {
			res.PainPoints[i].Solutions = sols
		}
	}
	return nil
}

func (m *memStore) status(id string) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

func (m *memStore) transitions(id string) []models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Status(nil), m.history[id]...)
}

type fakeDiscoverer struct {
	sources []discovery.Source
	calls   int
}

func (f *fakeDiscoverer) Discover(context.Context, string, []models.Category) []discovery.Source {
	f.calls++
	return f.sources
}

type fakeExtractor struct {
	single   *extract.Content
	batch    []extract.Content
	gotURLs  []string
	extracts int
}

func (f *fakeExtractor) Extract(context.Context, string) *extract.Content {
	f.extracts++
	return f.single
}

func (f *fakeExtractor) ExtractBatch(_ context.Context, urls []string, _ int) []extract.Content {
	f.gotURLs = urls
	return f.batch
}

type fakeAnalyzer struct {
	painPoints []models.PainPoint
	err        error
	panicWith  any
}

func (f *fakeAnalyzer) Analyze(context.Context, string, []extract.Content, []models.Category) ([]models.PainPoint, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.painPoints, f.err
}

type fakeDemand struct {
	demand []models.KeywordDemand
	got    []string
}

func (f *fakeDemand) Estimate(_ context.Context, keywords []string) []models.KeywordDemand {
	f.got = keywords
	return f.demand
}

// fakeLedger charges at most once per request, like the Postgres ledger.
type fakeLedger struct {
	mu       sync.Mutex
	balance  map[string]int
	charged  map[string]bool
	calls    int
	failWith error
}

func newFakeLedger(user string, balance int) *fakeLedger {
	return &fakeLedger{balance: map[string]int{user: balance}, charged: map[string]bool{}}
}

func (l *fakeLedger) Balance(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance[userID], nil
}

func (l *fakeLedger) Charge(_ context.Context, userID, requestID, _ string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.failWith != nil {
		return false, l.failWith
	}
	if l.charged[requestID] {
		return false, nil
	}
	if l.balance[userID] < billing.ResearchCost {
		return false, billing.ErrInsufficientCredits
	}
	l.charged[requestID] = true
	l.balance[userID] -= billing.ResearchCost
	return true, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []models.StatusEvent
	ch     chan models.StatusEvent
	err    error
	// onSubscribe runs inside Subscribe, before the channel is returned.
	onSubscribe func()
}

func (b *fakeBus) Publish(_ context.Context, ev models.StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return b.err
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan models.StatusEvent, error) {
	if b.ch == nil {
		return nil, errors.New("bus down")
	}
	if b.onSubscribe != nil {
		b.onSubscribe()
	}
	return b.ch, nil
}

type fakeSolutions struct {
	sols [][]models.Solution
	err  error
}

func (f *fakeSolutions) Regenerate(context.Context, string, []models.PainPoint) ([][]models.Solution, error) {
	return f.sols, f.err
}

type fakeExports struct {
	saved map[string][]byte
	err   error
}

func (f *fakeExports) SaveCSV(_ context.Context, requestID string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	key := "exports/" + requestID + "/report.csv"
	f.saved[key] = data
	return key, nil
}

func (f *fakeExports) DownloadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + key, nil
}

func intPtr(v int) *int { return &v }
