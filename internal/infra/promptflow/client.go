// Package promptflow is the HTTP client for the flow-execution collaborator.
// A flow endpoint accepts one question plus the prior chat history and returns
// a structured reply with a separate citations field. Calls are always
// single-shot; streaming is not supported on this path.
package promptflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TurnMessage is the minimal message shape the flow envelope is built from.
type TurnMessage struct {
	Role    string
	Content string
}

// Exchange is one question/answer pair in the flow wire format: a user message
// opens a pair under "inputs", the following assistant message closes it under
// "outputs".
type Exchange struct {
	Inputs  map[string]string `json:"inputs"`
	Outputs map[string]string `json:"outputs"`
}

// Client posts flow-execution requests with a bearer credential and a
// configurable timeout. Endpoint and key are per-call: the resolver hands out
// a different pair per prompt category.
type Client struct {
	requestField  string
	responseField string
	httpClient    *http.Client
}

// New creates a flow client. The timeout bounds the whole request; flow
// replies can take much longer than direct completions.
func New(requestField, responseField string, timeout time.Duration) *Client {
	return &Client{
		requestField:  requestField,
		responseField: responseField,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// ConvertTurn folds a turn's messages into the flow exchange list.
func (c *Client) ConvertTurn(messages []TurnMessage) []Exchange {
	var out []Exchange
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, Exchange{
				Inputs:  map[string]string{c.requestField: m.Content},
				Outputs: map[string]string{c.responseField: ""},
			})
		case "assistant":
			if len(out) > 0 {
				out[len(out)-1].Outputs[c.responseField] = m.Content
			}
		}
	}
	return out
}

// Invoke posts the turn to endpoint and returns the parsed JSON reply.
// The request field carries only the last exchange's question; chat_history
// carries every exchange before it.
func (c *Client) Invoke(ctx context.Context, endpoint, key string, messages []TurnMessage) (map[string]any, error) {
	exchanges := c.ConvertTurn(messages)
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("promptflow: no user message to submit")
	}

	payload := map[string]any{
		c.requestField: exchanges[len(exchanges)-1].Inputs[c.requestField],
		"chat_history": exchanges[:len(exchanges)-1],
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("promptflow: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("promptflow: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("promptflow: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("promptflow: endpoint returned status %d", resp.StatusCode)
	}

	var reply map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("promptflow: decode reply: %w", err)
	}
	return reply, nil
}
