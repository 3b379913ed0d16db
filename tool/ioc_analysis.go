package tool

import (
	"context"
	"net/url"
)

const virusTotalEndpoint = "https://www.virustotal.com/api/v3"

// IOCVerdict is the analysis outcome for a single indicator.
type IOCVerdict struct {
	Indicator      string `json:"indicator"`
	Classification string `json:"classification"`
	Malicious      int    `json:"malicious"`
	Suspicious     int    `json:"suspicious"`
	Harmless       int    `json:"harmless"`
	Undetected     int    `json:"undetected"`
}

// IOCAnalysisResponse is the payload the ioc_analysis tool returns.
type IOCAnalysisResponse struct {
	TotalIndicators int          `json:"total_indicators"`
	Results         []IOCVerdict `json:"results"`
}

// IOCAnalysisTool checks indicators of compromise (IPs, domains, hashes,
// URLs) against VirusTotal reputation data.
type IOCAnalysisTool struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

// IOCAnalysisOptions configures the VirusTotal backend.
type IOCAnalysisOptions struct {
	Client  HTTPDoer
	BaseURL string
}

// NewIOCAnalysisTool constructs the ioc_analysis tool.
func NewIOCAnalysisTool(apiKey string, optFns ...func(o *IOCAnalysisOptions)) *IOCAnalysisTool {
	opts := IOCAnalysisOptions{BaseURL: virusTotalEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &IOCAnalysisTool{client: opts.Client, apiKey: apiKey, baseURL: opts.BaseURL}
}

func (t *IOCAnalysisTool) Name() string { return "ioc_analysis" }

func (t *IOCAnalysisTool) Description() string {
	return "Analyze indicators of compromise (IP addresses, domains, file hashes, URLs) against threat reputation data and classify each as malicious, suspicious, or clean."
}

func (t *IOCAnalysisTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"indicators": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "IOCs to analyze: IPs, domains, hashes, or URLs",
			},
		},
		"required": []string{"indicators"},
	}
}

func (t *IOCAnalysisTool) Call(ctx context.Context, args map[string]any) (any, error) {
	indicators := stringSliceArg(args, "indicators")
	headers := map[string]string{"x-apikey": t.apiKey}

	out := IOCAnalysisResponse{TotalIndicators: len(indicators)}
	for _, indicator := range indicators {
		var raw struct {
			Data []struct {
				Attributes struct {
					LastAnalysisStats struct {
						Malicious  int `json:"malicious"`
						Suspicious int `json:"suspicious"`
						Harmless   int `json:"harmless"`
						Undetected int `json:"undetected"`
					} `json:"last_analysis_stats"`
				} `json:"attributes"`
			} `json:"data"`
		}
		endpoint := t.baseURL + "/search?query=" + url.QueryEscape(indicator)
		if err := getJSON(ctx, t.client, t.Name(), endpoint, headers, &raw); err != nil {
			return nil, err
		}

		verdict := IOCVerdict{Indicator: indicator, Classification: "unknown"}
		if len(raw.Data) > 0 {
			stats := raw.Data[0].Attributes.LastAnalysisStats
			verdict.Malicious = stats.Malicious
			verdict.Suspicious = stats.Suspicious
			verdict.Harmless = stats.Harmless
			verdict.Undetected = stats.Undetected
			switch {
			case stats.Malicious > 0:
				verdict.Classification = "malicious"
			case stats.Suspicious > 0:
				verdict.Classification = "suspicious"
			default:
				verdict.Classification = "clean"
			}
		}
		out.Results = append(out.Results, verdict)
	}
	return out, nil
}
