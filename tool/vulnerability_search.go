package tool

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const nvdEndpoint = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// Vulnerability is one CVE record in a vulnerability_search response.
type Vulnerability struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	CVSSScore   float64 `json:"cvss_score"`
	Published   string  `json:"published"`
}

// VulnerabilitySearchResponse is the payload returned to callers.
type VulnerabilitySearchResponse struct {
	Query        string          `json:"query"`
	Results      []Vulnerability `json:"results"`
	TotalResults int             `json:"total_results"`
}

// VulnerabilitySearchTool queries the NVD CVE API by keyword, optionally
// filtering on severity.
type VulnerabilitySearchTool struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

// VulnerabilitySearchOptions configures the NVD backend.
type VulnerabilitySearchOptions struct {
	Client  HTTPDoer
	BaseURL string
}

// NewVulnerabilitySearchTool constructs the vulnerability_search tool. The
// NVD API works without a key at a reduced rate limit, so apiKey may be empty.
func NewVulnerabilitySearchTool(apiKey string, optFns ...func(o *VulnerabilitySearchOptions)) *VulnerabilitySearchTool {
	opts := VulnerabilitySearchOptions{BaseURL: nvdEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &VulnerabilitySearchTool{client: opts.Client, apiKey: apiKey, baseURL: opts.BaseURL}
}

func (t *VulnerabilitySearchTool) Name() string { return "vulnerability_search" }

func (t *VulnerabilitySearchTool) Description() string {
	return "Search CVE databases for vulnerabilities affecting specific products or technologies, with severity and CVSS details."
}

func (t *VulnerabilitySearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Product name, CVE identifier, or technology keyword",
			},
			"severity_filter": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Only return these severities (LOW, MEDIUM, HIGH, CRITICAL)",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of CVEs to return (default 20)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *VulnerabilitySearchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	limit := intArg(args, "limit", 20)

	params := url.Values{}
	params.Set("keywordSearch", query)
	params.Set("resultsPerPage", fmt.Sprintf("%d", limit))

	headers := map[string]string{}
	if t.apiKey != "" {
		headers["apiKey"] = t.apiKey
	}

	var raw struct {
		TotalResults    int `json:"totalResults"`
		Vulnerabilities []struct {
			CVE struct {
				ID           string `json:"id"`
				Published    string `json:"published"`
				Descriptions []struct {
					Lang  string `json:"lang"`
					Value string `json:"value"`
				} `json:"descriptions"`
				Metrics struct {
					CVSSMetricV31 []struct {
						CVSSData struct {
							BaseScore    float64 `json:"baseScore"`
							BaseSeverity string  `json:"baseSeverity"`
						} `json:"cvssData"`
					} `json:"cvssMetricV31"`
				} `json:"metrics"`
			} `json:"cve"`
		} `json:"vulnerabilities"`
	}
	if err := getJSON(ctx, t.client, t.Name(), t.baseURL+"?"+params.Encode(), headers, &raw); err != nil {
		return nil, err
	}

	severities := map[string]bool{}
	for _, s := range stringSliceArg(args, "severity_filter") {
		severities[strings.ToUpper(s)] = true
	}

	out := VulnerabilitySearchResponse{Query: query}
	for _, v := range raw.Vulnerabilities {
		record := Vulnerability{ID: v.CVE.ID, Published: v.CVE.Published}
		for _, d := range v.CVE.Descriptions {
			if d.Lang == "en" {
				record.Description = d.Value
				break
			}
		}
		if metrics := v.CVE.Metrics.CVSSMetricV31; len(metrics) > 0 {
			record.CVSSScore = metrics[0].CVSSData.BaseScore
			record.Severity = metrics[0].CVSSData.BaseSeverity
		}
		if len(severities) > 0 && !severities[record.Severity] {
			continue
		}
		out.Results = append(out.Results, record)
	}
	out.TotalResults = len(out.Results)
	return out, nil
}
