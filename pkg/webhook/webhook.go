// Package webhook is the HTTP log connector: it posts pipeline events as JSON
// to a configured endpoint. Requests are bounded by a client timeout and at
// most one retry; a connector that cannot be reached reports ErrLog and the
// dispatcher isolates it from the cycle.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/yugent/yugent/agent/contract"
)

const maxRetries = 1

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	Retries int           `envconfig:"RETRIES" split_words:"true" default:"1"`
}

// Client implements contract.LogLayer over an HTTP webhook.
type Client struct {
	endpoint   string
	token      string
	retries    int
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("webhook url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	if retries > maxRetries {
		retries = maxRetries
	}

	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		retries:  retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type eventPayload struct {
	CycleID   string `json:"cycle_id"`
	Event     string `json:"event"`
	Iteration int    `json:"iteration"`
	Content   string `json:"content,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func (c *Client) Execute(ctx context.Context, event contractx.Event) error {
	payload := eventPayload{
		CycleID:   event.CycleID,
		Event:     string(event.Type),
		Iteration: event.Iteration,
		Detail:    event.Detail,
	}
	if event.Message != nil {
		payload.Content = event.Message.Content
		if event.Message.ToolCall != nil {
			payload.Tool = event.Message.ToolCall.Tool
		}
	}
	if event.ToolResult != nil {
		payload.Tool = event.ToolResult.Tool
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", contractx.ErrLog, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrLog, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook status=%d", resp.StatusCode)
	}
	return nil
}
