// Package research runs the niche research pipeline and serves it over HTTP.
package research

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/demand"
	"github.com/ayush/whattobuild/internal/discovery"
	"github.com/ayush/whattobuild/internal/extract"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/scoring"
)

// RunDeadline bounds one pipeline run end to end.
const RunDeadline = 10 * time.Minute

// finalizeTimeout bounds the failed-status write, which runs after the run
// context may already be done.
const finalizeTimeout = 10 * time.Second

var (
	ErrNoSources         = errors.New("no results found for this niche")
	ErrNoContent         = errors.New("failed to extract content")
	ErrSourceUnreachable = errors.New("failed to extract content from URL")
)

// Discoverer finds candidate discussion URLs for a niche.
type Discoverer interface {
	Discover(ctx context.Context, niche string, categories []models.Category) []discovery.Source
}

// Extractor turns URLs into plain text.
type Extractor interface {
	Extract(ctx context.Context, target string) *extract.Content
	ExtractBatch(ctx context.Context, urls []string, concurrency int) []extract.Content
}

// Analyzer infers pain points from extracted text.
type Analyzer interface {
	Analyze(ctx context.Context, niche string, contents []extract.Content, categories []models.Category) ([]models.PainPoint, error)
}

// DemandEstimator attaches search demand to keywords. It never fails.
type DemandEstimator interface {
	Estimate(ctx context.Context, keywords []string) []models.KeywordDemand
}

// Charger debits the credit for a completed request, at most once.
type Charger interface {
	Charge(ctx context.Context, userID, requestID, description string) (bool, error)
}

// EventPublisher broadcasts status transitions to watchers.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.StatusEvent) error
}

// PipelineStore is the persistence the pipeline writes to.
type PipelineStore interface {
	Transition(ctx context.Context, id string, to models.Status, errMsg string) error
	MarkCharged(ctx context.Context, id string, credits int) error
	SaveResult(ctx context.Context, res *models.ResearchResult) error
}

// Outcome reports how a run ended.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Pipeline drives one request from pending to a terminal status.
type Pipeline struct {
	store    PipelineStore
	discover Discoverer
	extract  Extractor
	analyze  Analyzer
	demand   DemandEstimator
	charger  Charger
	events   EventPublisher
	deadline time.Duration
	log      zerolog.Logger
}

// PipelineDeps groups the collaborators of a Pipeline.
type PipelineDeps struct {
	Store    PipelineStore
	Discover Discoverer
	Extract  Extractor
	Analyze  Analyzer
	Demand   DemandEstimator
	Charger  Charger
	Events   EventPublisher
	Deadline time.Duration
}

func NewPipeline(d PipelineDeps, log zerolog.Logger) *Pipeline {
	deadline := d.Deadline
	if deadline <= 0 {
		deadline = RunDeadline
	}
	return &Pipeline{
		store:    d.Store,
		discover: d.Discover,
		extract:  d.Extract,
		analyze:  d.Analyze,
		demand:   d.Demand,
		charger:  d.Charger,
		events:   d.Events,
		deadline: deadline,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the pipeline for a pending request. Whatever happens after the
// first transition, the request ends in done or failed.
func (p *Pipeline) Run(ctx context.Context, req *models.ResearchRequest) Outcome {
	id := req.ID.Hex()
	log := p.log.With().Str("request_id", id).Str("niche", req.Niche).Logger()
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	err := p.execute(runCtx, req, log)
	if err == nil {
		log.Info().Dur("took", time.Since(start)).Msg("research finished")
		return Outcome{Success: true}
	}

	msg := err.Error()
	log.Error().Err(err).Dur("took", time.Since(start)).Msg("research failed")

	failCtx, cancelFail := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelFail()
	if terr := p.transition(failCtx, id, models.StatusFailed, msg); terr != nil {
		log.Error().Err(terr).Msg("could not mark request failed")
	}
	return Outcome{Success: false, Error: msg}
}

func (p *Pipeline) execute(ctx context.Context, req *models.ResearchRequest, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	id := req.ID.Hex()

	var contents []extract.Content
	if req.SourceURL != "" {
		if err := p.transition(ctx, id, models.StatusAnalyzing, ""); err != nil {
			return err
		}
		c := p.extract.Extract(ctx, req.SourceURL)
		if c == nil {
			return ErrSourceUnreachable
		}
		contents = []extract.Content{*c}
	} else {
		if err := p.transition(ctx, id, models.StatusScraping, ""); err != nil {
			return err
		}
		sources := p.discover.Discover(ctx, req.Niche, req.Categories)
		if len(sources) == 0 {
			return ErrNoSources
		}

		if err := p.transition(ctx, id, models.StatusAnalyzing, ""); err != nil {
			return err
		}
		urls := make([]string, 0, len(sources))
		for _, s := range sources {
			urls = append(urls, s.URL)
		}
		contents = p.extract.ExtractBatch(ctx, urls, extract.DefaultConcurrency)
		if len(contents) == 0 {
			return ErrNoContent
		}
	}
	log.Info().Int("documents", len(contents)).Msg("content extracted")

	painPoints, err := p.analyze.Analyze(ctx, req.Niche, contents, req.Categories)
	if err != nil {
		return err
	}

	if err := p.transition(ctx, id, models.StatusFetchingVolume, ""); err != nil {
		return err
	}
	kd := p.demand.Estimate(ctx, demand.UniqueKeywords(painPoints))
	if len(kd) == 0 {
		kd = nil
	}

	result := &models.ResearchResult{
		RequestID:    id,
		PainPoints:   scoring.Rank(painPoints, kd),
		SearchVolume: kd,
		AdLinks:      AdLinks(req.Niche),
	}
	if err := p.store.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	if err := p.transition(ctx, id, models.StatusDone, ""); err != nil {
		return err
	}
	p.charge(ctx, req, log)
	return nil
}

// charge debits a run that reached done. A failed charge is logged for
// reconciliation and does not change the outcome.
func (p *Pipeline) charge(ctx context.Context, req *models.ResearchRequest, log zerolog.Logger) {
	id := req.ID.Hex()
	charged, err := p.charger.Charge(ctx, req.UserID, id, "Research: "+req.Niche)
	switch {
	case errors.Is(err, billing.ErrInsufficientCredits):
		log.Warn().Str("user_id", req.UserID).Msg("balance exhausted before charge, result delivered uncharged")
		return
	case err != nil:
		log.Error().Err(err).Str("user_id", req.UserID).Msg("credit charge failed")
		return
	case !charged:
		log.Debug().Msg("request already charged")
	}
	if err := p.store.MarkCharged(ctx, id, billing.ResearchCost); err != nil {
		log.Error().Err(err).Msg("could not record charge on request")
	}
}

func (p *Pipeline) transition(ctx context.Context, id string, to models.Status, errMsg string) error {
	if err := p.store.Transition(ctx, id, to, errMsg); err != nil {
		return fmt.Errorf("status %s: %w", to, err)
	}
	if p.events != nil {
		ev := models.StatusEvent{RequestID: id, Status: to, Error: errMsg, At: time.Now().UTC()}
		if err := p.events.Publish(ctx, ev); err != nil {
			p.log.Warn().Err(err).Str("request_id", id).Msg("status event not published")
		}
	}
	return nil
}

// AdLinks returns ad-library and competitor-intelligence search links for a niche.
func AdLinks(niche string) map[string]string {
	q := url.QueryEscape(niche)
	p := url.PathEscape(niche)
	return map[string]string{
		"facebook":   "https://www.facebook.com/ads/library/?active_status=active&ad_type=all&country=ALL&q=" + q,
		"tiktok":     "https://library.tiktok.com/ads?region=all&keyword=" + q,
		"google":     "https://adstransparency.google.com/?query=" + q,
		"pinterest":  "https://ads.pinterest.com/advertiser/ads/?query=" + q,
		"spyfu":      "https://www.spyfu.com/overview/domain?query=" + q,
		"similarweb": "https://www.similarweb.com/website/" + p + "/",
	}
}
