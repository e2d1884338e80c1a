// Package unlocker is a client for the BrightData "web unlocker" request API,
// used both for Google SERPs and for fetching pages that block plain scrapers.
package unlocker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned when no API token was supplied.
var ErrNotConfigured = errors.New("unlocker: missing BRIGHTDATA_API_TOKEN")

// Organic is one organic search result.
type Organic struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
}

// SERP is the parsed search-results page returned in the response body.
type SERP struct {
	General struct {
		ResultsCount int64 `json:"results_cnt"`
	} `json:"general"`
	Organic         []Organic         `json:"organic"`
	Ads             []json.RawMessage `json:"ads"`
	ShoppingResults json.RawMessage   `json:"shopping_results"`
	AnswerBox       json.RawMessage   `json:"answer_box"`
	KnowledgeGraph  json.RawMessage   `json:"knowledge_graph"`
	Related         []json.RawMessage `json:"related"`
}

type response struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	Error      string `json:"error"`
}

// Client calls the unlocker over HTTP.
type Client struct {
	http         *resty.Client
	token        string
	searchZone   string
	unlockerZone string
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	Token        string
	SearchZone   string
	UnlockerZone string
	Timeout      time.Duration
}

func New(opts Options) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.Endpoint, "/"))
	client.SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}
	return &Client{
		http:         client,
		token:        opts.Token,
		searchZone:   opts.SearchZone,
		unlockerZone: opts.UnlockerZone,
	}
}

// Configured reports whether the client has a credential.
func (c *Client) Configured() bool { return c != nil && c.token != "" }

// Fetch requests target through the given zone and returns the inner body.
func (c *Client) Fetch(ctx context.Context, zone, target string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	var out response
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"zone": zone, "url": target, "format": "json"}).
		SetResult(&out).
		Post("/request")
	if err != nil {
		return "", fmt.Errorf("unlocker /request: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("unlocker /request returned %d: %s", res.StatusCode(), res.String())
	}
	if out.StatusCode != 200 || out.Body == "" {
		return "", fmt.Errorf("unlocker upstream status %d for %s", out.StatusCode, target)
	}
	return out.Body, nil
}

// FetchPage fetches an arbitrary page through the unlocking zone.
func (c *Client) FetchPage(ctx context.Context, target string) (string, error) {
	return c.Fetch(ctx, c.unlockerZone, target)
}

// Search runs a Google search through the search zone, asking for num results.
func (c *Client) Search(ctx context.Context, query string, num int) (*SERP, error) {
	target := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d", url.QueryEscape(query), num)
	body, err := c.Fetch(ctx, c.searchZone, target)
	if err != nil {
		return nil, err
	}

	// the body is itself a JSON document
	var serp SERP
	if err := json.Unmarshal([]byte(body), &serp); err != nil {
		return nil, fmt.Errorf("unlocker serp: decode: %w", err)
	}
	return &serp, nil
}

// Present reports whether a raw SERP block carries data.
func Present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
