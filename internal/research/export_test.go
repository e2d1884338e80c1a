package research

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/whattobuild/internal/models"
)

func TestBuildCSV(t *testing.T) {
	res := &models.ResearchResult{
		PainPoints: []models.PainPoint{{
			Title:            "Cost, mostly",
			Description:      `cables "wear out"`,
			Frequency:        7,
			Confidence:       intPtr(80),
			OpportunityScore: intPtr(71),
			Sentiment:        models.SentimentNegative,
			Keywords:         []string{"cable gym", "cheap rack"},
			Solutions:        []models.Solution{{Title: "RackShare", Type: models.SolutionSaaS, Difficulty: models.DifficultyEasy}},
		}},
		SearchVolume: []models.KeywordDemand{{Keyword: "cable gym", Volume: 5000, Competition: 40}},
		AdLinks:      map[string]string{"tiktok": "https://t", "facebook": "https://f"},
	}

	data, err := BuildCSV("home gym", res, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Research Report", "home gym"}, rows[0])
	assert.Equal(t, []string{"Generated", "2026-03-01"}, rows[1])
	// blank separator lines are skipped by the reader
	assert.Equal(t, []string{"PAIN POINTS"}, rows[2])
	assert.Equal(t, []string{"1", "Cost, mostly", `cables "wear out"`, "7", "80", "", "71", "negative", "cable gym; cheap rack", "RackShare (saas/easy)"}, rows[4])

	text := string(data)
	assert.Contains(t, text, "SEARCH VOLUME\nKeyword,Monthly Volume (estimate),Competition\ncable gym,5000,40\n")
	assert.Less(t, bytes.Index(data, []byte("facebook")), bytes.Index(data, []byte("tiktok")))
}

func TestBuildCSV_OmitsEmptySections(t *testing.T) {
	data, err := BuildCSV("x", &models.ResearchResult{}, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "SEARCH VOLUME")
	assert.NotContains(t, string(data), "AD LIBRARIES")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "email-tools-for-b2b-research.csv", ExportFilename("  Email Tools for B2B!"))
	assert.Equal(t, "niche-research.csv", ExportFilename("???"))
}
