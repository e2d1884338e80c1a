// Package monitor re-runs research for niches users subscribe to and mails
// them the new findings.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/notify"
	"github.com/ayush/whattobuild/internal/research"
)

var errNoCredits = errors.New("no credits left")

// RunStore is the persistence the runner reads and writes.
type RunStore interface {
	ListActiveMonitors(ctx context.Context) ([]models.MonitoredNiche, error)
	RecordMonitorRun(ctx context.Context, id primitive.ObjectID, requestID string, at time.Time) error
	CreateRequest(ctx context.Context, req *models.ResearchRequest) (string, error)
	GetResult(ctx context.Context, requestID string) (*models.ResearchResult, error)
}

// UserLookup resolves the owner of a monitor.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type BalanceChecker interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// PipelineRunner executes one research request to completion.
type PipelineRunner interface {
	Run(ctx context.Context, req *models.ResearchRequest) research.Outcome
}

// Notifier accepts email for background delivery.
type Notifier interface {
	Enqueue(msg notify.Message)
}

// Summary counts what one RunAll pass did.
type Summary struct {
	Monitors int `json:"monitors"`
	Ran      int `json:"ran"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Runner processes every active monitor once per call.
type Runner struct {
	store     RunStore
	users     UserLookup
	balances  BalanceChecker
	pipeline  PipelineRunner
	notifier  Notifier
	templates notify.Templates
	log       zerolog.Logger
}

func NewRunner(st RunStore, users UserLookup, balances BalanceChecker, pipeline PipelineRunner, notifier Notifier, templates notify.Templates, log zerolog.Logger) *Runner {
	return &Runner{
		store:     st,
		users:     users,
		balances:  balances,
		pipeline:  pipeline,
		notifier:  notifier,
		templates: templates,
		log:       log.With().Str("component", "monitor").Logger(),
	}
}

// RunAll runs research for each active monitor in turn. A failing monitor is
// logged and never stops the others.
func (r *Runner) RunAll(ctx context.Context) (Summary, error) {
	monitors, err := r.store.ListActiveMonitors(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list monitors: %w", err)
	}

	sum := Summary{Monitors: len(monitors)}
	for _, m := range monitors {
		if ctx.Err() != nil {
			break
		}
		err := r.runOne(ctx, m)
		switch {
		case err == nil:
			sum.Ran++
		case errors.Is(err, errNoCredits):
			sum.Skipped++
		default:
			sum.Failed++
			r.log.Error().Err(err).Str("monitor_id", m.ID.Hex()).Str("niche", m.Niche).Msg("monitor run failed")
		}
	}
	r.log.Info().Int("monitors", sum.Monitors).Int("ran", sum.Ran).Int("skipped", sum.Skipped).Int("failed", sum.Failed).Msg("monitor pass finished")
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, m models.MonitoredNiche) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("monitor panic: %v", p)
		}
	}()

	user, err := r.users.GetUserByID(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("user %s: %w", m.UserID, err)
	}
	balance, err := r.balances.Balance(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if balance < billing.ResearchCost {
		r.notifier.Enqueue(r.templates.NoCredits(user.Email, m.Niche))
		r.log.Info().Str("monitor_id", m.ID.Hex()).Str("user_id", m.UserID).Msg("monitor skipped, no credits")
		return errNoCredits
	}

	req := &models.ResearchRequest{
		UserID:     m.UserID,
		Niche:      m.Niche,
		SourceURL:  m.SourceURL,
		Categories: m.Categories,
	}
	id, err := r.store.CreateRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	out := r.pipeline.Run(ctx, req)
	if !out.Success {
		return fmt.Errorf("request %s: %s", id, out.Error)
	}

	if err := r.store.RecordMonitorRun(ctx, m.ID, id, time.Now().UTC()); err != nil {
		r.log.Warn().Err(err).Str("monitor_id", m.ID.Hex()).Msg("could not record monitor run")
	}

	res, err := r.store.GetResult(ctx, id)
	if err != nil {
		return fmt.Errorf("result %s: %w", id, err)
	}
	if len(res.PainPoints) > 0 {
		r.notifier.Enqueue(r.templates.MonitoringDigest(user.Email, m.Niche, id, res.PainPoints))
	}
	return nil
}
