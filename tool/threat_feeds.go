package tool

import (
	"context"
	"fmt"
	"net/url"
)

const otxEndpoint = "https://otx.alienvault.com/api/v1"

// ThreatReport is one pulse returned by the threat intelligence backend.
type ThreatReport struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Created     string   `json:"created"`
	Tags        []string `json:"tags,omitempty"`
	TLP         string   `json:"tlp,omitempty"`
}

// ThreatFeedsResponse is the payload the threat_feeds tool returns.
type ThreatFeedsResponse struct {
	Query        string         `json:"query"`
	Results      []ThreatReport `json:"results"`
	TotalResults int            `json:"total_results"`
}

// ThreatFeedsTool searches AlienVault OTX pulses for campaigns, malware
// families, and threat actors.
type ThreatFeedsTool struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

// ThreatFeedsOptions configures the OTX backend.
type ThreatFeedsOptions struct {
	Client  HTTPDoer
	BaseURL string
}

// NewThreatFeedsTool constructs the threat_feeds tool.
func NewThreatFeedsTool(apiKey string, optFns ...func(o *ThreatFeedsOptions)) *ThreatFeedsTool {
	opts := ThreatFeedsOptions{BaseURL: otxEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &ThreatFeedsTool{client: opts.Client, apiKey: apiKey, baseURL: opts.BaseURL}
}

func (t *ThreatFeedsTool) Name() string { return "threat_feeds" }

func (t *ThreatFeedsTool) Description() string {
	return "Search threat intelligence feeds for campaigns, malware families, and threat actors, returning recent community pulse reports."
}

func (t *ThreatFeedsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Malware family, threat actor, or campaign name",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of reports (default 10)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *ThreatFeedsTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	limit := intArg(args, "limit", 10)

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))

	headers := map[string]string{"X-OTX-API-KEY": t.apiKey}

	var raw struct {
		Count   int `json:"count"`
		Results []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			AuthorName  string   `json:"author_name"`
			Created     string   `json:"created"`
			Tags        []string `json:"tags"`
			TLP         string   `json:"tlp"`
		} `json:"results"`
	}
	endpoint := t.baseURL + "/search/pulses?" + params.Encode()
	if err := getJSON(ctx, t.client, t.Name(), endpoint, headers, &raw); err != nil {
		return nil, err
	}

	out := ThreatFeedsResponse{Query: query, TotalResults: raw.Count}
	for _, r := range raw.Results {
		out.Results = append(out.Results, ThreatReport{
			Name:        r.Name,
			Description: r.Description,
			Author:      r.AuthorName,
			Created:     r.Created,
			Tags:        r.Tags,
			TLP:         r.TLP,
		})
	}
	return out, nil
}
