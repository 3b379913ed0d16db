package tool

import (
	"context"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// WebSearchResult is a single hit returned by the search backend.
type WebSearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// WebSearchResponse is the payload the web_search tool returns to callers.
type WebSearchResponse struct {
	Query        string            `json:"query"`
	Results      []WebSearchResult `json:"results"`
	TotalResults int               `json:"total_results"`
}

// WebSearchTool searches the web through the Tavily API, constrained to a
// curated list of security publications and vendor advisories when the caller
// does not pin domains explicitly.
type WebSearchTool struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

// trustedSecurityDomains anchors general queries to authoritative sources.
var trustedSecurityDomains = []string{
	"bleepingcomputer.com",
	"darkreading.com",
	"krebsonsecurity.com",
	"thehackernews.com",
	"cisa.gov",
	"nist.gov",
	"sans.org",
	"mitre.org",
}

// WebSearchOptions configures the web search backend.
type WebSearchOptions struct {
	// Client defaults to a 30s-timeout http.Client.
	Client HTTPDoer
	// BaseURL overrides the Tavily endpoint, mainly for tests.
	BaseURL string
}

// NewWebSearchTool constructs the web_search tool.
func NewWebSearchTool(apiKey string, optFns ...func(o *WebSearchOptions)) *WebSearchTool {
	opts := WebSearchOptions{BaseURL: tavilyEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &WebSearchTool{client: opts.Client, apiKey: apiKey, baseURL: opts.BaseURL}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for current cybersecurity information: news, advisories, vendor bulletins, and research. Results favor authoritative security sources."
}

func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (default 10)",
			},
			"search_type": map[string]any{
				"type":        "string",
				"enum":        []string{"general", "news", "research"},
				"description": "Kind of search to run",
			},
			"include_domains": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Restrict results to these domains",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	maxResults := intArg(args, "max_results", 10)

	domains := stringSliceArg(args, "include_domains")
	if len(domains) == 0 && stringArg(args, "search_type") != "news" {
		domains = trustedSecurityDomains
	}

	body := map[string]any{
		"api_key":     t.apiKey,
		"query":       query,
		"max_results": maxResults,
	}
	if len(domains) > 0 {
		body["include_domains"] = domains
	}
	if stringArg(args, "search_type") == "news" {
		body["topic"] = "news"
	}

	var raw struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"published_date"`
		} `json:"results"`
	}
	if err := postJSON(ctx, t.client, t.Name(), t.baseURL, nil, body, &raw); err != nil {
		return nil, err
	}

	out := WebSearchResponse{Query: query}
	for _, r := range raw.Results {
		out.Results = append(out.Results, WebSearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	out.TotalResults = len(out.Results)
	return out, nil
}
