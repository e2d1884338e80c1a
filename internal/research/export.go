package research

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ayush/whattobuild/internal/models"
)

// BuildCSV renders a result as a sectioned CSV report.
func BuildCSV(niche string, res *models.ResearchResult, generated time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Research Report", niche},
		{"Generated", generated.UTC().Format("2006-01-02")},
		{},
		{"PAIN POINTS"},
		{"Rank", "Title", "Description", "Frequency", "Confidence", "Evidence Count", "Opportunity Score", "Sentiment", "Keywords", "Solutions"},
	}
	for i, pp := range res.PainPoints {
		sols := make([]string, 0, len(pp.Solutions))
		for _, s := range pp.Solutions {
			sols = append(sols, fmt.Sprintf("%s (%s/%s)", s.Title, s.Type, s.Difficulty))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			pp.Title,
			pp.Description,
			strconv.Itoa(pp.Frequency),
			optInt(pp.Confidence),
			optInt(pp.EvidenceCount),
			optInt(pp.OpportunityScore),
			string(pp.Sentiment),
			strings.Join(pp.Keywords, "; "),
			strings.Join(sols, "; "),
		})
	}

	if len(res.SearchVolume) > 0 {
		rows = append(rows, []string{}, []string{"SEARCH VOLUME"}, []string{"Keyword", "Monthly Volume (estimate)", "Competition"})
		for _, kd := range res.SearchVolume {
			rows = append(rows, []string{kd.Keyword, strconv.Itoa(kd.Volume), strconv.Itoa(kd.Competition)})
		}
	}

	if len(res.AdLinks) > 0 {
		rows = append(rows, []string{}, []string{"AD LIBRARIES"}, []string{"Platform", "URL"})
		names := make([]string, 0, len(res.AdLinks))
		for name := range res.AdLinks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []string{name, res.AdLinks[name]})
		}
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFilename derives a download name from the niche.
func ExportFilename(niche string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(niche), "-"), "-")
	if slug == "" {
		slug = "niche"
	}
	return slug + "-research.csv"
}
