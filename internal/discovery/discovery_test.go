package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/unlocker"
)

type fakeSearcher struct {
	calls   []string
	results func(query string) (*unlocker.SERP, error)
}

func (f *fakeSearcher) Search(_ context.Context, query string, num int) (*unlocker.SERP, error) {
	f.calls = append(f.calls, query)
	return f.results(query)
}

func serpOf(links ...string) *unlocker.SERP {
	s := &unlocker.SERP{}
	for _, l := range links {
		s.Organic = append(s.Organic, unlocker.Organic{Link: l, Title: "t " + l})
	}
	return s
}

func TestBuildQueries_NoCategories(t *testing.T) {
	qs := BuildQueries("home gym equipment", nil)
	require.Len(t, qs, 8)
	assert.True(t, strings.HasPrefix(qs[0], `site:reddit.com "home gym equipment"`))
	assert.Contains(t, qs[1], "site:quora.com")
	assert.Contains(t, qs[3], "site:trustpilot.com")
}

func TestBuildQueries_Categories(t *testing.T) {
	qs := BuildQueries("email tools", []models.Category{models.CategorySaaS})
	require.Len(t, qs, 3+6)
	for _, q := range qs {
		assert.NotContains(t, q, "site:amazon.com")
	}

	all := BuildQueries("x", []models.Category{models.CategorySaaS, models.CategoryEcommerce, models.CategoryDirectory, models.CategoryWebsite})
	require.Len(t, all, 3+6+6+5+5)
}

func TestBuildQueries_NicheQuotedVerbatim(t *testing.T) {
	qs := BuildQueries(`say "hi" \ café`, nil)
	require.NotEmpty(t, qs)
	assert.Equal(t, `site:reddit.com "say "hi" \ café" complaints OR problems OR frustrated`, qs[0])
	for _, q := range qs {
		assert.NotContains(t, q, `\"`)
	}
}

func TestBuildQueries_Dedupe(t *testing.T) {
	qs := BuildQueries("x", []models.Category{models.CategoryWebsite, models.CategoryWebsite})
	require.Len(t, qs, 3+5)
}

func TestDiscover_DedupeAndCap(t *testing.T) {
	f := &fakeSearcher{results: func(q string) (*unlocker.SERP, error) {
		var links []string
		for i := 0; i < 10; i++ {
			links = append(links, fmt.Sprintf("https://www.reddit.com/r/x/comments/%d", i))
		}
		// every query overlaps on the same first links and adds one unique link
		links = append(links, "https://example.com/"+fmt.Sprint(len(q)))
		return serpOf(links...), nil
	}}

	out := New(f, zerolog.Nop()).Discover(context.Background(), "home gym", nil)
	require.LessOrEqual(t, len(out), MaxSources)

	seen := map[string]bool{}
	for _, s := range out {
		require.False(t, seen[s.URL], "duplicate %s", s.URL)
		seen[s.URL] = true
	}
	assert.Equal(t, TagReddit, out[0].Tag)
}

func TestDiscover_FirstOccurrenceWinsAndCapAt20(t *testing.T) {
	n := 0
	f := &fakeSearcher{results: func(q string) (*unlocker.SERP, error) {
		var links []string
		for i := 0; i < 10; i++ {
			n++
			links = append(links, fmt.Sprintf("https://forum.example.com/t/%d", n))
		}
		return serpOf(links...), nil
	}}
	out := New(f, zerolog.Nop()).Discover(context.Background(), "niche", nil)
	require.Len(t, out, MaxSources)
	assert.Equal(t, "https://forum.example.com/t/1", out[0].URL)
	assert.Equal(t, TagForum, out[0].Tag)
}

func TestDiscover_FailedQueriesSkipped(t *testing.T) {
	f := &fakeSearcher{results: func(q string) (*unlocker.SERP, error) {
		if strings.Contains(q, "quora") {
			return serpOf("https://www.quora.com/What-is-x"), nil
		}
		return nil, errors.New("upstream 502")
	}}
	out := New(f, zerolog.Nop()).Discover(context.Background(), "niche", nil)
	require.Len(t, out, 1)
	assert.Equal(t, TagQuora, out[0].Tag)
	assert.Len(t, f.calls, 8)
}

func TestDiscover_AllEmpty(t *testing.T) {
	f := &fakeSearcher{results: func(q string) (*unlocker.SERP, error) { return serpOf(), nil }}
	out := New(f, zerolog.Nop()).Discover(context.Background(), "home gym equipment", nil)
	assert.Empty(t, out)
}

func TestDetectSource(t *testing.T) {
	cases := map[string]Tag{
		"https://www.reddit.com/r/fitness/comments/1":      TagReddit,
		"https://old.reddit.com/r/x":                        TagReddit,
		"https://www.trustpilot.com/review/x":               TagTrustpilot,
		"https://www.amazon.com/dp/B00":                     TagAmazon,
		"https://www.quora.com/Why":                         TagQuora,
		"https://news.ycombinator.com/item?id=1":            TagHackerNews,
		"https://www.producthunt.com/products/x":            TagProductHunt,
		"https://community.example.org/thread/1":            TagForum,
		"https://notreddit.com.example.org/x":               TagForum,
	}
	for in, want := range cases {
		assert.Equal(t, want, DetectSource(in), in)
	}
}
