// Package extract turns discovered URLs into normalized plain text. Each
// source type has its own strategy; every strategy returns nil instead of an
// error so one bad URL never affects the rest of a batch.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxBatch is the number of URLs considered per batch.
	MaxBatch = 20
	// DefaultConcurrency is the window size for ExtractBatch.
	DefaultConcurrency = 5

	maxComments = 15
	cacheSize   = 1024
	cacheTTL    = 6 * time.Hour
)

// Content is one extracted document.
type Content struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// PageFetcher fetches raw pages through the unlocking proxy.
type PageFetcher interface {
	Configured() bool
	FetchPage(ctx context.Context, target string) (string, error)
}

// Options configures an Extractor.
type Options struct {
	ReaderEndpoint string
	ReaderAPIKey   string
	HNEndpoint     string
	Timeout        time.Duration
}

// Extractor dispatches URLs to source-specific strategies.
type Extractor struct {
	proxy     PageFetcher
	reader    *resty.Client
	readerKey string
	hn        *resty.Client
	cache     *expirable.LRU[string, *Content]
	log       zerolog.Logger
}

func New(proxy PageFetcher, opts Options, log zerolog.Logger) *Extractor {
	reader := resty.New().
		SetBaseURL(strings.TrimRight(opts.ReaderEndpoint, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("X-Return-Format", "text")
	hn := resty.New().SetBaseURL(strings.TrimRight(opts.HNEndpoint, "/"))
	if opts.Timeout > 0 {
		reader.SetTimeout(opts.Timeout)
		hn.SetTimeout(opts.Timeout)
	}
	if opts.ReaderAPIKey != "" {
		reader.SetAuthToken(opts.ReaderAPIKey)
	}

	return &Extractor{
		proxy:     proxy,
		reader:    reader,
		readerKey: opts.ReaderAPIKey,
		hn:        hn,
		cache:     expirable.NewLRU[string, *Content](cacheSize, nil, cacheTTL),
		log:       log.With().Str("component", "extract").Logger(),
	}
}

func (e *Extractor) proxyReady() bool {
	return e.proxy != nil && e.proxy.Configured()
}

// Extract returns the normalized content of target, or nil if every
// applicable strategy failed.
func (e *Extractor) Extract(ctx context.Context, target string) *Content {
	if c, ok := e.cache.Get(target); ok {
		return c
	}

	var c *Content
	switch {
	case strings.Contains(target, "reddit.com"):
		c = e.reddit(ctx, target)
	case strings.Contains(target, "quora.com"):
		c = e.quora(ctx, target)
	case strings.Contains(target, "news.ycombinator.com"):
		c = e.hackerNews(ctx, target)
	case strings.Contains(target, "producthunt.com"):
		c = e.productHunt(ctx, target)
	default:
		c = e.readURL(ctx, target)
	}

	if c == nil {
		e.log.Debug().Str("url", target).Msg("extraction failed")
		return nil
	}
	c.Content = Truncate(c.Content, MaxContentChars)
	e.cache.Add(target, c)
	return c
}

// ExtractBatch extracts up to MaxBatch URLs in windows of concurrency and
// returns only the successes. Order within a window is not significant.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string, concurrency int) []Content {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if len(urls) > MaxBatch {
		urls = urls[:MaxBatch]
	}

	var out []Content
	for start := 0; start < len(urls); start += concurrency {
		end := min(start+concurrency, len(urls))
		window := urls[start:end]
		got := make([]*Content, len(window))

		var g errgroup.Group
		g.SetLimit(concurrency)
		for i, u := range window {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						e.log.Error().Interface("panic", r).Str("url", u).Msg("extraction panicked")
					}
				}()
				got[i] = e.Extract(ctx, u)
				return nil
			})
		}
		g.Wait()

		for _, c := range got {
			if c != nil {
				out = append(out, *c)
			}
		}
	}

	e.log.Info().Int("requested", len(urls)).Int("extracted", len(out)).Msg("batch extraction finished")
	return out
}

// ---------------------------------------------------------------------------
// Reddit: structured JSON listing through the proxy
// ---------------------------------------------------------------------------

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Body     string `json:"body"`
				Author   string `json:"author"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (e *Extractor) reddit(ctx context.Context, target string) *Content {
	if !e.proxyReady() {
		return nil
	}
	jsonURL := target + "/.json"
	if strings.HasSuffix(target, "/") {
		jsonURL = target + ".json"
	}

	body, err := e.proxy.FetchPage(ctx, jsonURL)
	if err != nil {
		e.log.Debug().Err(err).Str("url", target).Msg("reddit fetch failed")
		return nil
	}

	var listings []redditListing
	if err := json.Unmarshal([]byte(body), &listings); err != nil || len(listings) == 0 {
		return nil
	}
	if len(listings[0].Data.Children) == 0 {
		return nil
	}
	post := listings[0].Data.Children[0].Data

	var comments []string
	if len(listings) > 1 {
		for _, c := range listings[1].Data.Children {
			if c.Kind != "t1" {
				continue
			}
			comments = append(comments, fmt.Sprintf("[%s]: %s", c.Data.Author, c.Data.Body))
			if len(comments) == maxComments {
				break
			}
		}
	}

	return &Content{
		URL:     target,
		Title:   post.Title,
		Content: threadText(post.Title, post.Selftext, comments),
		Source:  "reddit.com",
	}
}

func threadText(title, body string, comments []string) string {
	return title + "\n\n" + body + "\n\n--- Comments ---\n\n" + strings.Join(comments, "\n\n")
}

// ---------------------------------------------------------------------------
// Generic reader service
// ---------------------------------------------------------------------------

func (e *Extractor) readURL(ctx context.Context, target string) *Content {
	if e.readerKey == "" {
		return nil
	}

	var out struct {
		Data struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"data"`
	}
	res, err := e.reader.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/" + target)
	if err != nil || res.IsError() {
		e.log.Debug().Err(err).Str("url", target).Msg("reader fetch failed")
		return nil
	}
	if out.Data.Content == "" {
		return nil
	}

	return &Content{
		URL:     target,
		Title:   out.Data.Title,
		Content: out.Data.Content,
		Source:  hostname(target),
	}
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

// ---------------------------------------------------------------------------
// Quora and Product Hunt: raw HTML through the proxy, regex stripped
// ---------------------------------------------------------------------------

const minPageChars = 100

func (e *Extractor) strippedPage(ctx context.Context, target, titleSuffix, source string) *Content {
	if !e.proxyReady() {
		return nil
	}
	html, err := e.proxy.FetchPage(ctx, target)
	if err != nil {
		e.log.Debug().Err(err).Str("url", target).Msg("page fetch failed")
		return nil
	}

	text := StripHTML(html)
	if len(text) < minPageChars {
		return nil
	}
	return &Content{
		URL:     target,
		Title:   pageTitle(html, titleSuffix),
		Content: text,
		Source:  source,
	}
}

func (e *Extractor) quora(ctx context.Context, target string) *Content {
	return e.strippedPage(ctx, target, " - Quora", "quora")
}

func (e *Extractor) productHunt(ctx context.Context, target string) *Content {
	if !e.proxyReady() {
		return e.readURL(ctx, target)
	}
	return e.strippedPage(ctx, target, " | Product Hunt", "producthunt")
}

// ---------------------------------------------------------------------------
// Hacker News: public Algolia items API
// ---------------------------------------------------------------------------

var hnIDRe = regexp.MustCompile(`id=(\d+)`)

const minThreadChars = 50

type hnItem struct {
	Title     string   `json:"title"`
	StoryText string   `json:"story_text"`
	Children  []hnItem `json:"children"`
	Author    string   `json:"author"`
	Text      string   `json:"text"`
	// search hits use comment_text, the items endpoint uses text
	CommentText string `json:"comment_text"`
}

func (e *Extractor) hackerNews(ctx context.Context, target string) *Content {
	m := hnIDRe.FindStringSubmatch(target)
	if m == nil {
		return nil
	}

	var item hnItem
	res, err := e.hn.R().
		SetContext(ctx).
		SetResult(&item).
		Get("/items/" + m[1])
	if err != nil || res.IsError() {
		e.log.Debug().Err(err).Str("url", target).Msg("hn fetch failed")
		return nil
	}

	children := item.Children
	if len(children) > maxComments {
		children = children[:maxComments]
	}
	var comments []string
	for _, c := range children {
		text := c.CommentText
		if text == "" {
			text = c.Text
		}
		if text == "" {
			continue
		}
		author := c.Author
		if author == "" {
			author = "anon"
		}
		comments = append(comments, fmt.Sprintf("[%s]: %s", author, stripTags(text)))
	}

	content := threadText(item.Title, item.StoryText, comments)
	if len(content) < minThreadChars {
		return nil
	}
	return &Content{
		URL:     target,
		Title:   item.Title,
		Content: content,
		Source:  "hackernews",
	}
}
