// Package analysis turns extracted discussion text into structured pain points
// using a generative model.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/extract"
	"github.com/ayush/whattobuild/internal/models"
)

const (
	analysisTemperature   float32 = 0.3
	regenerateTemperature float32 = 0.8
)

// ErrMalformedOutput is returned when the model response is not the expected JSON.
var ErrMalformedOutput = errors.New("malformed model output")

// maxEvidence caps the source count a reply may claim.
const maxEvidence = 1000

// painPointOut is the pain point shape the prompt asks the model to return.
// Numbers decode as float64 so fractional replies are rounded, not rejected.
type painPointOut struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Frequency     float64           `json:"frequency"`
	Confidence    *float64          `json:"confidence"`
	EvidenceCount *float64          `json:"evidenceCount"`
	Sentiment     models.Sentiment  `json:"sentiment"`
	Quotes        []models.Quote    `json:"quotes"`
	Keywords      []string          `json:"keywords"`
	Solutions     []models.Solution `json:"solutions"`
}

func (o painPointOut) painPoint() models.PainPoint {
	pp := models.PainPoint{
		Title:       o.Title,
		Description: o.Description,
		Frequency:   roundClamp(o.Frequency, 1, 10),
		Sentiment:   o.Sentiment,
		Quotes:      o.Quotes,
		Keywords:    o.Keywords,
		Solutions:   o.Solutions,
	}
	if o.Confidence != nil {
		v := roundClamp(*o.Confidence, 0, 100)
		pp.Confidence = &v
	}
	if o.EvidenceCount != nil {
		v := roundClamp(*o.EvidenceCount, 0, maxEvidence)
		pp.EvidenceCount = &v
	}
	return pp
}

// Analyzer builds prompts, calls the completer and decodes its output.
type Analyzer struct {
	llm Completer
	log zerolog.Logger
}

func New(llm Completer, log zerolog.Logger) *Analyzer {
	return &Analyzer{llm: llm, log: log.With().Str("component", "analysis").Logger()}
}

// Analyze returns the sanitized pain points for the extracted content, in model order.
func (a *Analyzer) Analyze(ctx context.Context, niche string, contents []extract.Content, categories []models.Category) ([]models.PainPoint, error) {
	prompt := BuildPrompt(niche, contents, categories)

	text, err := a.llm.Complete(ctx, prompt, analysisTemperature)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var out struct {
		PainPoints []painPointOut `json:"painPoints"`
	}
	if err := decodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if out.PainPoints == nil {
		return nil, fmt.Errorf("analyze: %w: missing painPoints", ErrMalformedOutput)
	}

	painPoints := make([]models.PainPoint, 0, len(out.PainPoints))
	for _, o := range out.PainPoints {
		painPoints = append(painPoints, o.painPoint())
	}
	a.log.Info().Str("niche", niche).Int("sources", len(contents)).Int("pain_points", len(painPoints)).Msg("analysis finished")
	return Sanitize(painPoints), nil
}

// Regenerate asks for fresh solutions for each pain point. The returned slice
// is aligned with painPoints; an entry the model skipped keeps the old solutions.
func (a *Analyzer) Regenerate(ctx context.Context, niche string, painPoints []models.PainPoint) ([][]models.Solution, error) {
	text, err := a.llm.Complete(ctx, BuildRegeneratePrompt(niche, painPoints), regenerateTemperature)
	if err != nil {
		return nil, fmt.Errorf("regenerate: %w", err)
	}

	var out struct {
		Solutions []struct {
			PainPointIndex int               `json:"painPointIndex"`
			Solutions      []models.Solution `json:"solutions"`
		} `json:"solutions"`
	}
	if err := decodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("regenerate: %w", err)
	}
	if out.Solutions == nil {
		return nil, fmt.Errorf("regenerate: %w: missing solutions", ErrMalformedOutput)
	}

	merged := make([][]models.Solution, len(painPoints))
	for i, pp := range painPoints {
		merged[i] = pp.Solutions
	}
	for _, s := range out.Solutions {
		if s.PainPointIndex < 0 || s.PainPointIndex >= len(painPoints) || s.Solutions == nil {
			continue
		}
		merged[s.PainPointIndex] = sanitizeSolutions(s.Solutions)
	}
	return merged, nil
}

// cleanJSON strips an optional markdown code fence around the payload.
func cleanJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(cleanJSON(text)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// Sanitize clamps the numeric fields the model produced and normalizes
// enumerations. Model output is untrusted.
func Sanitize(in []models.PainPoint) []models.PainPoint {
	out := make([]models.PainPoint, 0, len(in))
	for _, pp := range in {
		pp.Frequency = clamp(pp.Frequency, 1, 10)
		if pp.Confidence != nil {
			v := clamp(*pp.Confidence, 0, 100)
			pp.Confidence = &v
		}
		if pp.EvidenceCount != nil {
			v := max(*pp.EvidenceCount, 0)
			pp.EvidenceCount = &v
		}
		// scores are computed locally, never taken from the model
		pp.OpportunityScore = nil

		switch pp.Sentiment {
		case models.SentimentNegative, models.SentimentNeutral, models.SentimentMixed:
		default:
			pp.Sentiment = models.SentimentMixed
		}
		if pp.Quotes == nil {
			pp.Quotes = []models.Quote{}
		}
		pp.Keywords = cleanKeywords(pp.Keywords)
		pp.Solutions = sanitizeSolutions(pp.Solutions)
		out = append(out, pp)
	}
	return out
}

func sanitizeSolutions(in []models.Solution) []models.Solution {
	if in == nil {
		return nil
	}
	out := make([]models.Solution, 0, len(in))
	for _, s := range in {
		switch s.Type {
		case models.SolutionSaaS, models.SolutionEcommerce, models.SolutionService, models.SolutionContent:
		default:
			s.Type = models.SolutionSaaS
		}
		switch s.Difficulty {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		default:
			s.Difficulty = models.DifficultyMedium
		}
		out = append(out, s)
	}
	return out
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func roundClamp(v float64, lo, hi int) int {
	return int(math.Round(math.Min(math.Max(v, float64(lo)), float64(hi))))
}
