// Package model talks to an OpenAI-compatible chat-completions gateway.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/logger"
)

const maxResponseBytes = 1 << 20 // 1 MiB

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClientConfig configures the gateway client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Client posts chat-completion requests and returns the raw response body.
// It deliberately does not parse the body: upstream gateways have been seen
// returning HTML error pages with status 200, so classification and text
// extraction belong to the sanitizer.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *logger.Logger
}

func NewClient(cfg ClientConfig, lgr *logger.Logger) repository.ModelGateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: lgr,
	}
}

// Complete sends one chat request and returns the raw body as text.
// A non-2xx status is an error, but the body still comes back with it so the
// caller can inspect what the gateway said.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(raw), fmt.Errorf("chat gateway status %d", resp.StatusCode)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return "", fmt.Errorf("empty chat response body")
	}

	return string(raw), nil
}
