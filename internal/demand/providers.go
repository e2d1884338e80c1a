package demand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ayush/whattobuild/internal/unlocker"
)

// SerpAPIProvider reads result-page signals from serpapi.com.
type SerpAPIProvider struct {
	http   *resty.Client
	apiKey string
}

func NewSerpAPIProvider(endpoint, apiKey string, timeout time.Duration) *SerpAPIProvider {
	client := resty.New().SetBaseURL(strings.TrimRight(endpoint, "/"))
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &SerpAPIProvider{http: client, apiKey: apiKey}
}

func (p *SerpAPIProvider) Name() string { return "serpapi" }

func (p *SerpAPIProvider) Configured() bool { return p.apiKey != "" }

type serpAPIResponse struct {
	SearchInformation struct {
		TotalResults int64 `json:"total_results"`
	} `json:"search_information"`
	Ads             []json.RawMessage `json:"ads"`
	ShoppingResults json.RawMessage   `json:"shopping_results"`
	AnswerBox       json.RawMessage   `json:"answer_box"`
	KnowledgeGraph  json.RawMessage   `json:"knowledge_graph"`
	RelatedSearches []json.RawMessage `json:"related_searches"`
}

func (p *SerpAPIProvider) Lookup(ctx context.Context, keyword string) (Signals, error) {
	var out serpAPIResponse
	res, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": p.apiKey,
			"engine":  "google",
			"q":       keyword,
			"gl":      "us",
		}).
		SetResult(&out).
		Get("/search.json")
	if err != nil {
		return Signals{}, fmt.Errorf("serpapi search: %w", err)
	}
	if res.IsError() {
		return Signals{}, fmt.Errorf("serpapi search returned %d", res.StatusCode())
	}

	return Signals{
		TotalResults:      out.SearchInformation.TotalResults,
		Ads:               len(out.Ads),
		HasShopping:       unlocker.Present(out.ShoppingResults),
		HasAnswerBox:      unlocker.Present(out.AnswerBox),
		HasKnowledgePanel: unlocker.Present(out.KnowledgeGraph),
		Related:           len(out.RelatedSearches),
	}, nil
}

// SERPSearcher is the subset of the unlocker client the proxy provider needs.
type SERPSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string, num int) (*unlocker.SERP, error)
}

// ProxyProvider derives signals from a raw Google result page fetched through
// the unlocking proxy.
type ProxyProvider struct {
	search SERPSearcher
}

func NewProxyProvider(search SERPSearcher) *ProxyProvider {
	return &ProxyProvider{search: search}
}

const proxyResultsPerKeyword = 5

func (p *ProxyProvider) Name() string { return "proxy" }

func (p *ProxyProvider) Configured() bool { return p.search != nil && p.search.Configured() }

func (p *ProxyProvider) Lookup(ctx context.Context, keyword string) (Signals, error) {
	serp, err := p.search.Search(ctx, keyword, proxyResultsPerKeyword)
	if err != nil {
		return Signals{}, err
	}
	return Signals{
		TotalResults:      serp.General.ResultsCount,
		Ads:               len(serp.Ads),
		HasShopping:       unlocker.Present(serp.ShoppingResults),
		HasAnswerBox:      unlocker.Present(serp.AnswerBox),
		HasKnowledgePanel: unlocker.Present(serp.KnowledgeGraph),
		Related:           len(serp.Related),
	}, nil
}
