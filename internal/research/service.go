package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

const (
	maxNicheLen    = 200
	listLimit      = 50
	exportURLValid = 15 * time.Minute
)

var (
	// ErrInvalidInput is returned for a malformed create request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotReady is returned when an operation needs a completed result.
	ErrNotReady = errors.New("research not finished")
)

// Store is everything the service reads and writes for research requests.
type Store interface {
	PipelineStore
	CreateRequest(ctx context.Context, req *models.ResearchRequest) (string, error)
	GetRequest(ctx context.Context, id string) (*models.ResearchRequest, error)
	ListRequests(ctx context.Context, userID string, limit int64) ([]models.ResearchRequest, error)
	ResetFailed(ctx context.Context, id string) error
	ListStale(ctx context.Context, before time.Time) ([]models.ResearchRequest, error)
	GetResult(ctx context.Context, requestID string) (*models.ResearchResult, error)
	ReplaceSolutions(ctx context.Context, requestID string, solutions [][]models.Solution) error
}

// BalanceChecker reports a user's credit balance.
type BalanceChecker interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// SolutionGenerator proposes fresh solutions for existing pain points.
type SolutionGenerator interface {
	Regenerate(ctx context.Context, niche string, painPoints []models.PainPoint) ([][]models.Solution, error)
}

// ExportStore keeps generated reports.
type ExportStore interface {
	SaveCSV(ctx context.Context, requestID string, data []byte) (string, error)
	DownloadURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
}

// Export is a stored CSV report.
type Export struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"-"`
}

// Service is the entry point for user-facing research operations.
type Service struct {
	store      Store
	pipeline   *Pipeline
	balances   BalanceChecker
	solutions  SolutionGenerator
	exports    ExportStore
	staleAfter time.Duration
	log        zerolog.Logger

	wg sync.WaitGroup
}

func NewService(st Store, pipeline *Pipeline, balances BalanceChecker, solutions SolutionGenerator, exports ExportStore, staleAfter time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:      st,
		pipeline:   pipeline,
		balances:   balances,
		solutions:  solutions,
		exports:    exports,
		staleAfter: staleAfter,
		log:        log.With().Str("component", "research").Logger(),
	}
}

// Validate normalizes and checks a create request.
func Validate(in *models.CreateRequest) error {
	in.Niche = strings.TrimSpace(in.Niche)
	in.SourceURL = strings.TrimSpace(in.SourceURL)
	if in.Niche == "" {
		return fmt.Errorf("%w: niche is required", ErrInvalidInput)
	}
	if len(in.Niche) > maxNicheLen {
		return fmt.Errorf("%w: niche is longer than %d characters", ErrInvalidInput, maxNicheLen)
	}
	if in.SourceURL != "" && !strings.HasPrefix(in.SourceURL, "http://") && !strings.HasPrefix(in.SourceURL, "https://") {
		return fmt.Errorf("%w: source_url must be an http(s) URL", ErrInvalidInput)
	}
	seen := make(map[models.Category]bool)
	cats := in.Categories[:0]
	for _, c := range in.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, c)
		}
		if !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	in.Categories = cats
	return nil
}

// Start checks the balance, records a pending request and runs the pipeline
// in the background. The credit itself is only charged on success.
func (s *Service) Start(ctx context.Context, userID string, in models.CreateRequest) (*models.ResearchRequest, error) {
	if err := Validate(&in); err != nil {
		return nil, err
	}
	balance, err := s.balances.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	if balance < billing.ResearchCost {
		return nil, billing.ErrInsufficientCredits
	}

	req := &models.ResearchRequest{
		UserID:     userID,
		Niche:      in.Niche,
		SourceURL:  in.SourceURL,
		Categories: in.Categories,
	}
	if _, err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info().Str("request_id", req.ID.Hex()).Str("user_id", userID).Str("niche", req.Niche).Msg("research started")

	s.runAsync(ctx, req)
	return req, nil
}

// Retry resets a failed request and runs it again.
func (s *Service) Retry(ctx context.Context, userID, id string) (*models.ResearchRequest, error) {
	req, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.ResetFailed(ctx, id); err != nil {
		return nil, err
	}
	req.Status = models.StatusPending
	req.Error = ""
	s.log.Info().Str("request_id", id).Msg("research retried")

	s.runAsync(ctx, req)
	return req, nil
}

func (s *Service) runAsync(ctx context.Context, req *models.ResearchRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pipeline.Run(context.WithoutCancel(ctx), req)
	}()
}

// Wait blocks until background runs started by this service have finished.
func (s *Service) Wait() { s.wg.Wait() }

// Get returns a request owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.ResearchRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, store.ErrNotFound
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.ResearchRequest, error) {
	return s.store.ListRequests(ctx, userID, listLimit)
}

// Result returns the result of a request owned by userID.
func (s *Service) Result(ctx context.Context, userID, id string) (*models.ResearchResult, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.GetResult(ctx, id)
}

// Regenerate replaces the solutions of every pain point with fresh ones.
// Everything else in the result is left as it was.
func (s *Service) Regenerate(ctx context.Context, userID, id string) (*models.ResearchResult, error) {
	req, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusDone {
		return nil, ErrNotReady
	}
	res, err := s.store.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}

	sols, err := s.solutions.Regenerate(ctx, req.Niche, res.PainPoints)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceSolutions(ctx, id, sols); err != nil {
		return nil, err
	}
	for i := range res.PainPoints {
		if i < len(sols) {
			res.PainPoints[i].Solutions = sols[i]
		}
	}
	s.log.Info().Str("request_id", id).Msg("solutions regenerated")
	return res, nil
}

// Export renders the result as CSV and stores it.
func (s *Service) Export(ctx context.Context, userID, id string) (*Export, error) {
	req, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusDone {
		return nil, ErrNotReady
	}
	res, err := s.store.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := BuildCSV(req.Niche, res, time.Now())
	if err != nil {
		return nil, err
	}
	exp := &Export{Filename: ExportFilename(req.Niche), Data: data}
	if s.exports == nil {
		return exp, nil
	}

	key, err := s.exports.SaveCSV(ctx, id, data)
	if err != nil {
		// the report can still be served inline
		s.log.Error().Err(err).Str("request_id", id).Msg("export upload failed")
		return exp, nil
	}
	exp.Key = key
	if u, err := s.exports.DownloadURL(ctx, key, exp.Filename, exportURLValid); err == nil {
		exp.URL = u
	}
	return exp, nil
}

// SweepStale fails requests stuck in a non-terminal status for longer than
// the stale threshold, so a crashed run does not stay pending forever.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	stale, err := s.store.ListStale(ctx, time.Now().UTC().Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, req := range stale {
		id := req.ID.Hex()
		if err := s.pipeline.transition(ctx, id, models.StatusFailed, "research timed out"); err != nil {
			if !errors.Is(err, store.ErrInvalidTransition) {
				s.log.Error().Err(err).Str("request_id", id).Msg("stale sweep failed")
			}
			continue
		}
		n++
	}
	if n > 0 {
		s.log.Warn().Int("count", n).Msg("stale requests marked failed")
	}
	return n, nil
}
