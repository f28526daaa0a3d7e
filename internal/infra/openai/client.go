package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
	headerAPIKey      = "api-key"
	headerUserAgent   = "x-ms-useragent"

	// correlationHeader is the gateway request-tracing id echoed back to clients.
	correlationHeader = "apim-request-id"

	userAgent = "GitHubSampleWebApp/AsyncAzureOpenAI/1.0.0"
)

// Client talks to one Azure OpenAI deployment over plain HTTP.
// No timeout is set on the underlying http.Client: streaming responses stay
// open for the duration of the chunk sequence. Use the request context to
// bound single-shot calls.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a completions client for the given resource endpoint.
func NewClient(endpoint, apiKey, apiVersion string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: &http.Client{},
	}
}

// Complete performs a single-shot chat completion.
func (c *Client) Complete(ctx context.Context, args ModelArguments) (*ChatCompletion, error) {
	completion, _, err := c.CompleteRaw(ctx, args)
	return completion, err
}

// CompleteRaw performs a single-shot chat completion and also returns the
// gateway correlation id read from the raw response headers.
func (c *Client) CompleteRaw(ctx context.Context, args ModelArguments) (*ChatCompletion, string, error) {
	args.Stream = false
	resp, err := c.post(ctx, args)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	correlationID := resp.Header.Get(correlationHeader)

	var completion ChatCompletion
	if decodeErr := json.NewDecoder(resp.Body).Decode(&completion); decodeErr != nil {
		return nil, correlationID, fmt.Errorf("openai: decode completion: %w", decodeErr)
	}
	return &completion, correlationID, nil
}

// Stream starts a streaming chat completion and returns a channel of chunks
// plus the gateway correlation id. The channel is closed when the provider
// signals the end of the sequence or the connection drops; the sequence is
// finite, forward-only, and not restartable. Consumers must drain the channel
// (or cancel ctx) so the underlying connection is released.
func (c *Client) Stream(ctx context.Context, args ModelArguments) (<-chan ChatCompletionChunk, string, error) {
	args.Stream = true
	resp, err := c.post(ctx, args)
	if err != nil {
		return nil, "", err
	}

	correlationID := resp.Header.Get(correlationHeader)

	ch := make(chan ChatCompletionChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close() //nolint:errcheck

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			if strings.TrimSpace(data) == "[DONE]" {
				return
			}
			var chunk ChatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, correlationID, nil
}

// post sends the completion request and returns the raw response on 2xx.
// Non-2xx responses become an *APIError carrying the provider status code.
func (c *Client) post(ctx context.Context, args ModelArguments) (*http.Response, error) {
	payload, err := args.payload()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, args.Model, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerUserAgent, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp),
		}
	}
	return resp, nil
}

// payload flattens ModelArguments into the wire body, merging ExtraBody keys
// (data_sources) into the top level the way the provider expects.
func (a ModelArguments) payload() (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal arguments: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("openai: flatten arguments: %w", err)
	}
	for k, v := range a.ExtraBody {
		m[k] = v
	}
	return m, nil
}

// readErrorMessage extracts the provider's error text from a rejection body.
func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("provider returned status %d", resp.StatusCode)
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
