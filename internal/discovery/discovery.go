// Package discovery finds candidate discussion URLs for a niche via search-engine scraping.
package discovery

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/unlocker"
)

const (
	// MaxSources bounds downstream extraction and prompt cost.
	MaxSources      = 20
	resultsPerQuery = 10
)

// Tag is the provenance of a discovered URL.
type Tag string

const (
	TagReddit      Tag = "reddit"
	TagTrustpilot  Tag = "trustpilot"
	TagAmazon      Tag = "amazon"
	TagQuora       Tag = "quora"
	TagHackerNews  Tag = "hackernews"
	TagProductHunt Tag = "producthunt"
	TagForum       Tag = "forum"
)

// Source is one discovered candidate URL.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Tag     Tag    `json:"tag"`
}

// Searcher issues one search-engine query.
type Searcher interface {
	Search(ctx context.Context, query string, num int) (*unlocker.SERP, error)
}

// Discoverer runs the query set for a niche and aggregates organic results.
type Discoverer struct {
	search Searcher
	log    zerolog.Logger
}

func New(search Searcher, log zerolog.Logger) *Discoverer {
	return &Discoverer{search: search, log: log.With().Str("component", "discovery").Logger()}
}

// Discover returns up to MaxSources deduplicated URLs. Failed queries are
// skipped; an empty result means nothing could be found.
func (d *Discoverer) Discover(ctx context.Context, niche string, categories []models.Category) []Source {
	queries := BuildQueries(niche, categories)

	var out []Source
	seen := make(map[string]struct{})
	for _, q := range queries {
		serp, err := d.search.Search(ctx, q, resultsPerQuery)
		if err != nil {
			d.log.Warn().Err(err).Str("query", q).Msg("search query failed")
			continue
		}
		for _, r := range serp.Organic {
			if r.Link == "" {
				continue
			}
			if _, ok := seen[r.Link]; ok {
				continue
			}
			seen[r.Link] = struct{}{}
			out = append(out, Source{
				URL:     r.Link,
				Title:   r.Title,
				Snippet: r.Description,
				Tag:     DetectSource(r.Link),
			})
		}
	}

	d.log.Info().Str("niche", niche).Int("queries", len(queries)).Int("urls", len(out)).Msg("discovery finished")
	if len(out) > MaxSources {
		out = out[:MaxSources]
	}
	return out
}

var hostTags = []struct {
	host string
	tag  Tag
}{
	{"reddit.com", TagReddit},
	{"trustpilot.com", TagTrustpilot},
	{"amazon.com", TagAmazon},
	{"quora.com", TagQuora},
	{"news.ycombinator.com", TagHackerNews},
	{"producthunt.com", TagProductHunt},
}

// DetectSource tags a URL by hostname, first match in precedence order wins.
func DetectSource(raw string) Tag {
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = strings.ToLower(u.Hostname())
	}
	for _, ht := range hostTags {
		if host == ht.host || strings.HasSuffix(host, "."+ht.host) {
			return ht.tag
		}
	}
	if strings.Contains(raw, "hacker-news") {
		return TagHackerNews
	}
	return TagForum
}
