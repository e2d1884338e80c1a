// Package scoring combines pain-point and demand signals into one 0-100
// opportunity score.
package scoring

import (
	"math"
	"sort"

	"github.com/ayush/whattobuild/internal/models"
)

const (
	weightFrequency   = 0.30
	weightVolume      = 0.25
	weightCompetition = 0.20
	weightSentiment   = 0.15
	weightSolutions   = 0.10

	// defaultVolumeScore applies when no keyword has a known volume.
	defaultVolumeScore = 20.0
	// unknownCompetition stands in for keywords without demand data.
	unknownCompetition = 50.0
)

// Score is a pure function of the pain point and the demand table.
func Score(pp models.PainPoint, demand map[string]models.KeywordDemand) int {
	frequency := float64(pp.Frequency) / 10 * 100

	volume := defaultVolumeScore
	if avg, ok := averageVolume(pp.Keywords, demand); ok {
		volume = math.Min(math.Log10(avg)/5*100, 100)
	}

	competition := 100 - averageCompetition(pp.Keywords, demand)

	var sentiment float64
	switch pp.Sentiment {
	case models.SentimentNegative:
		sentiment = 100
	case models.SentimentMixed:
		sentiment = 60
	default:
		sentiment = 30
	}

	var solutions float64
	switch n := len(pp.Solutions); {
	case n <= 1:
		solutions = 100
	case n <= 3:
		solutions = 60
	default:
		solutions = 30
	}

	total := frequency*weightFrequency +
		volume*weightVolume +
		competition*weightCompetition +
		sentiment*weightSentiment +
		solutions*weightSolutions

	return clamp(int(math.Round(total)), 0, 100)
}

func averageVolume(keywords []string, demand map[string]models.KeywordDemand) (float64, bool) {
	var sum float64
	var n int
	for _, kw := range keywords {
		if d, ok := demand[kw]; ok && d.Volume > 0 {
			sum += float64(d.Volume)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// averageCompetition averages per-keyword competition, counting unknown
// keywords as 50 and ignoring zero values. No usable values means 50.
func averageCompetition(keywords []string, demand map[string]models.KeywordDemand) float64 {
	var sum float64
	var n int
	for _, kw := range keywords {
		c := unknownCompetition
		if d, ok := demand[kw]; ok {
			c = float64(d.Competition)
		}
		if c <= 0 {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return unknownCompetition
	}
	return sum / float64(n)
}

// Index keys the demand list by keyword.
func Index(demand []models.KeywordDemand) map[string]models.KeywordDemand {
	m := make(map[string]models.KeywordDemand, len(demand))
	for _, d := range demand {
		m[d.Keyword] = d
	}
	return m
}

// Rank scores a copy of each pain point and sorts them by score, highest
// first. Equal scores keep their input order.
func Rank(painPoints []models.PainPoint, demand []models.KeywordDemand) []models.PainPoint {
	idx := Index(demand)
	out := make([]models.PainPoint, len(painPoints))
	for i, pp := range painPoints {
		s := Score(pp, idx)
		pp.OpportunityScore = &s
		out[i] = pp
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].OpportunityScore > *out[j].OpportunityScore
	})
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
