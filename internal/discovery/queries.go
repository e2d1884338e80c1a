package discovery

import (
	"fmt"

	"github.com/ayush/whattobuild/internal/models"
)

// BuildQueries returns the deduplicated search queries for a niche. Baseline
// queries always run; broad exploration queries only run when no category
// was requested.
func BuildQueries(niche string, categories []models.Category) []string {
	q := `"` + niche + `"`

	queries := []string{
		fmt.Sprintf(`site:reddit.com %s complaints OR problems OR frustrated`, q),
		fmt.Sprintf(`%s problems OR issues site:quora.com`, q),
		fmt.Sprintf(`%s complaints OR problems OR "bad experience" -site:reddit.com -site:quora.com`, q),
	}

	if len(categories) == 0 {
		queries = append(queries,
			fmt.Sprintf(`%s review site:trustpilot.com`, q),
			fmt.Sprintf(`%s review OR complaint site:amazon.com`, q),
			fmt.Sprintf(`%s site:news.ycombinator.com`, q),
			fmt.Sprintf(`%s problems OR complaints site:producthunt.com`, q),
			fmt.Sprintf(`%s frustrating OR annoying OR "wish there was" site:quora.com`, q),
		)
	}

	for _, c := range categories {
		for _, tmpl := range categoryTemplates[c] {
			queries = append(queries, fmt.Sprintf(tmpl, q))
		}
	}

	return dedupe(queries)
}

var categoryTemplates = map[models.Category][]string{
	models.CategorySaaS: {
		`%s software alternatives OR "better than" site:reddit.com`,
		`%s site:producthunt.com`,
		`%s SaaS OR tool OR platform site:news.ycombinator.com`,
		`%s software review site:g2.com OR site:capterra.com`,
		`%s SaaS problems OR "wish it could" site:quora.com`,
		`%s software OR tool review OR complaint site:trustpilot.com`,
	},
	models.CategoryEcommerce: {
		`%s review "1 star" OR "2 stars" OR "disappointed" site:amazon.com`,
		`site:trustpilot.com %s review`,
		`%s product quality OR defective OR "broke after" site:amazon.com`,
		`%s dropshipping OR supplier OR wholesale site:quora.com`,
		`%s product review OR unboxing OR comparison -site:reddit.com -site:amazon.com`,
		`%s "not worth" OR "waste of money" OR "returned" site:reddit.com`,
	},
	models.CategoryDirectory: {
		`%s "hard to find" OR "where to find" OR "no good list"`,
		`%s directory OR comparison OR aggregator site:producthunt.com`,
		`%s marketplace OR listing OR "best list" site:quora.com`,
		`%s directory OR catalog OR comparison site:news.ycombinator.com`,
		`%s "there should be" OR "someone should build" site:reddit.com`,
	},
	models.CategoryWebsite: {
		`%s guide OR tutorial OR course problems site:quora.com`,
		`%s blog OR content OR resource "hard to find"`,
		`%s online course OR tutorial review site:trustpilot.com`,
		`%s learning OR education site:news.ycombinator.com`,
		`%s information OR advice OR tips site:reddit.com`,
	},
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
