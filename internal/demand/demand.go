// Package demand attaches coarse search-demand signals to keywords.
//
// Volumes are NOT real search volumes: they are a fixed log-bucket ladder over
// the total result count a search engine reports, kept only as a relative
// signal for scoring.
package demand

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/models"
)

const (
	// SerpAPIKeywordCap bounds the keywords looked up through the keyword API.
	SerpAPIKeywordCap = 20
	// ProxyKeywordCap is lower because proxy lookups are billed per page.
	ProxyKeywordCap = 10
)

// Signals are the raw result-page features demand is derived from.
type Signals struct {
	TotalResults      int64
	Ads               int
	HasShopping       bool
	HasAnswerBox      bool
	HasKnowledgePanel bool
	Related           int
}

// Provider looks up the result-page signals for one keyword.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, keyword string) (Signals, error)
}

// Estimator runs keyword lookups through the provider chosen at startup.
type Estimator struct {
	provider Provider
	limit    int
	log      zerolog.Logger
}

// NewEstimator picks the provider chain once: the keyword API if configured,
// else the unlocking proxy, else nothing. Nil providers count as unconfigured.
func NewEstimator(serp *SerpAPIProvider, proxy *ProxyProvider, log zerolog.Logger) *Estimator {
	e := &Estimator{log: log.With().Str("component", "demand").Logger()}
	switch {
	case serp != nil && serp.Configured():
		e.provider, e.limit = serp, SerpAPIKeywordCap
	case proxy != nil && proxy.Configured():
		e.provider, e.limit = proxy, ProxyKeywordCap
	}
	if e.provider == nil {
		e.log.Warn().Msg("no demand provider configured, search volume disabled")
	} else {
		e.log.Info().Str("provider", e.provider.Name()).Int("keyword_cap", e.limit).Msg("demand provider selected")
	}
	return e
}

// NewEstimatorWith uses an explicit provider and keyword limit.
func NewEstimatorWith(p Provider, limit int, log zerolog.Logger) *Estimator {
	return &Estimator{provider: p, limit: limit, log: log.With().Str("component", "demand").Logger()}
}

// Enabled reports whether any provider is configured.
func (e *Estimator) Enabled() bool { return e.provider != nil }

// Estimate looks up each keyword in order, up to the provider's cap.
// Keywords that fail are skipped; it never returns an error.
func (e *Estimator) Estimate(ctx context.Context, keywords []string) []models.KeywordDemand {
	if e.provider == nil {
		return nil
	}
	if len(keywords) > e.limit {
		keywords = keywords[:e.limit]
	}

	out := make([]models.KeywordDemand, 0, len(keywords))
	for _, kw := range keywords {
		if ctx.Err() != nil {
			break
		}
		sig, err := e.provider.Lookup(ctx, kw)
		if err != nil {
			e.log.Debug().Err(err).Str("keyword", kw).Msg("keyword lookup failed")
			continue
		}
		out = append(out, models.KeywordDemand{
			Keyword:     kw,
			Volume:      EstimateVolume(sig.TotalResults),
			Competition: EstimateCompetition(sig),
		})
	}

	e.log.Info().Str("provider", e.provider.Name()).Int("requested", len(keywords)).Int("estimated", len(out)).Msg("demand estimated")
	return out
}

// UniqueKeywords flattens the keywords of all pain points, first occurrence wins.
func UniqueKeywords(painPoints []models.PainPoint) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, pp := range painPoints {
		for _, kw := range pp.Keywords {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// EstimateVolume maps a total result count onto the volume ladder.
func EstimateVolume(totalResults int64) int {
	switch {
	case totalResults > 1_000_000_000:
		return 100000
	case totalResults > 100_000_000:
		return 50000
	case totalResults > 10_000_000:
		return 10000
	case totalResults > 1_000_000:
		return 5000
	case totalResults > 100_000:
		return 1000
	case totalResults > 10_000:
		return 500
	default:
		return 100
	}
}

// EstimateCompetition sums weighted result-page signals into 0..100.
func EstimateCompetition(s Signals) int {
	score := min(s.Ads*15, 45)
	if s.HasShopping {
		score += 20
	}
	if s.HasAnswerBox {
		score += 15
	}
	if s.HasKnowledgePanel {
		score += 10
	}
	score += min(s.Related*2, 10)
	return min(score, 100)
}
