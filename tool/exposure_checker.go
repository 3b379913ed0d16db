package tool

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

const xposedOrNotEndpoint = "https://api.xposedornot.com/v1"

// ExposureCheckResponse is the payload the exposure_checker tool returns.
type ExposureCheckResponse struct {
	Query         string   `json:"query"`
	IsExposed     bool     `json:"is_exposed"`
	ExposureCount int      `json:"exposure_count"`
	BreachNames   []string `json:"breach_names,omitempty"`
}

// ExposureCheckerTool checks whether an email address appears in known data
// breaches via the XposedOrNot API. The API needs no key; a 404 from the
// check endpoint means the address was not found in any breach.
type ExposureCheckerTool struct {
	client  HTTPDoer
	baseURL string
}

// ExposureCheckerOptions configures the XposedOrNot backend.
type ExposureCheckerOptions struct {
	Client  HTTPDoer
	BaseURL string
}

// NewExposureCheckerTool constructs the exposure_checker tool.
func NewExposureCheckerTool(optFns ...func(o *ExposureCheckerOptions)) *ExposureCheckerTool {
	opts := ExposureCheckerOptions{BaseURL: xposedOrNotEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &ExposureCheckerTool{client: opts.Client, baseURL: opts.BaseURL}
}

func (t *ExposureCheckerTool) Name() string { return "exposure_checker" }

func (t *ExposureCheckerTool) Description() string {
	return "Check whether an email address has been exposed in known data breaches."
}

func (t *ExposureCheckerTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"email": map[string]any{
				"type":        "string",
				"description": "Email address to check for breach exposure",
			},
		},
		"required": []string{"email"},
	}
}

func (t *ExposureCheckerTool) Call(ctx context.Context, args map[string]any) (any, error) {
	email := stringArg(args, "email")

	var raw struct {
		Breaches [][]string `json:"breaches"`
	}
	endpoint := t.baseURL + "/check-email/" + url.PathEscape(email)
	if err := getJSON(ctx, t.client, t.Name(), endpoint, nil, &raw); err != nil {
		var toolErr *ToolError
		// Not-found means no recorded exposure, not a failure.
		if errors.As(err, &toolErr) && toolErr.Status == http.StatusNotFound {
			return ExposureCheckResponse{Query: email, IsExposed: false}, nil
		}
		return nil, err
	}

	out := ExposureCheckResponse{Query: email}
	for _, group := range raw.Breaches {
		out.BreachNames = append(out.BreachNames, group...)
	}
	out.ExposureCount = len(out.BreachNames)
	out.IsExposed = out.ExposureCount > 0
	return out, nil
}
