package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPDoer abstracts *http.Client so backends can be stubbed in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// statusErr converts an unexpected HTTP status into a ToolError so the
// executor can classify it. 429 is rate limiting, 401/403 are auth problems,
// and 5xx responses are retryable upstream failures.
func statusErr(tool string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))

	var err *ToolError
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		err = NewToolError(tool, msg, CodeRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err = NewToolError(tool, msg, CodeAuth)
	case resp.StatusCode >= 500:
		err = NewToolError(tool, msg, CodeUpstream)
		err.Retryable = true
	default:
		err = NewToolError(tool, msg, CodeUpstream)
	}
	err.Status = resp.StatusCode
	return err
}

// getJSON performs a GET against url and decodes the JSON body into out.
func getJSON(ctx context.Context, client HTTPDoer, tool, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewToolError(tool, err.Error(), CodeUpstream)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(client, tool, req, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func postJSON(ctx context.Context, client HTTPDoer, tool, url string, headers map[string]string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return NewToolError(tool, fmt.Sprintf("encode request: %v", err), CodeUpstream)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return NewToolError(tool, err.Error(), CodeUpstream)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(client, tool, req, out)
}

func doJSON(client HTTPDoer, tool string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		// Context errors surface unchanged so the executor classifies
		// timeouts correctly.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		upErr := NewToolError(tool, err.Error(), CodeUpstream)
		upErr.Retryable = true
		return upErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(tool, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewToolError(tool, fmt.Sprintf("decode response: %v", err), CodeUpstream)
	}
	return nil
}

// stringArg reads an optional string argument.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an optional integer argument, accepting the float64 values
// JSON decoding produces.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// stringSliceArg reads an optional list-of-strings argument.
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
