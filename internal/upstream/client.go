// Package upstream talks to OpenAI-compatible chat completion endpoints.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aitex/internal/config"
	"aitex/internal/core"
	"aitex/internal/util"
)

// Client sends chat requests to the endpoint named by a RecognitionConfig.
// One attempt is made per call; retrying is left to the caller.
type Client struct {
	httpClient *http.Client
	metrics    core.MetricsCollector
	logger     core.Logger
}

// NewClient creates a client. Nil metrics or logger fall back to no-ops.
func NewClient(httpClient *http.Client, metrics core.MetricsCollector, logger core.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(config.DefaultHTTPClientSettings())
	}
	if metrics == nil {
		metrics = &core.NopMetrics{}
	}
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Client{httpClient: httpClient, metrics: metrics, logger: logger}
}

// NewHTTPClient builds a pooled client whose overall timeout bounds every call.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
		DisableCompression:    false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}

// Endpoint joins the configured base URL with the chat completions path.
// A single trailing slash on the base is dropped.
func Endpoint(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + core.ChatCompletionsPath
}

// Send posts request and returns the text of the first choice.
//
// Transport failures yield NETWORK_ERROR, non-2xx statuses HTTP_ERROR and
// undecodable bodies PARSE_ERROR. A well-formed body without a string at
// choices[0].message.content yields an empty reply and no error.
func (c *Client) Send(ctx context.Context, cfg core.RecognitionConfig, request *core.ChatRequest) (string, error) {
	body, err := util.MarshalJSON(request)
	if err != nil {
		return "", core.ErrEncode("chat request", err)
	}

	endpoint := Endpoint(cfg.APIBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", core.ErrNetwork(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+cfg.APIKey)
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)

	c.logger.Debug("POST %s model=%s key=%s size=%d", endpoint, request.Model, util.MaskSecret(cfg.APIKey), len(body))

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // Endpoint is operator configuration.
	c.metrics.RecordHTTPRequest(time.Since(start))
	if err != nil {
		c.metrics.RecordHTTPError()
		return "", core.ErrNetwork(err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))

	c.logger.Debug("Recognition endpoint response status: %d", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.RecordHTTPError()
		errorBody := ""
		if readErr == nil {
			errorBody = string(payload)
		}
		c.logger.Error("Recognition endpoint error: status %d, body: %s", resp.StatusCode, util.TruncateString(errorBody, 200, 0, "..."))
		return "", core.ErrHTTPStatus(resp.StatusCode, errorBody)
	}
	if readErr != nil {
		return "", core.ErrNetwork(fmt.Errorf("failed to read response body: %w", readErr))
	}

	var decoded any
	if err := util.UnmarshalJSON(payload, &decoded); err != nil {
		return "", core.ErrParse(err)
	}

	content, ok := ExtractReplyContent(decoded)
	if !ok {
		c.logger.Warn("Response from %s has no choices[0].message.content string, treating reply as empty", endpoint)
	}
	return content, nil
}

// ExtractReplyContent looks up choices[0].message.content in a decoded JSON value.
// The bool reports whether a string was found there.
func ExtractReplyContent(payload any) (string, bool) {
	root, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	choices, ok := root["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := message["content"].(string)
	return content, ok
}
