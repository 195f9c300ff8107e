// Package genai is a minimal text-generation client for OpenAI-compatible
// chat completion servers (vLLM, Ollama, OpenAI).
//
// The model-based extraction strategy sends a page of office listings plus
// instructions and expects a JSON array back. Only a prompt-in/text-out
// surface is needed, so that is all this package exposes.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Generator produces a completion for a prompt.
type Generator interface {
	// Generate returns the model's text completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the generation client.
type Config struct {
	// Endpoint is the base URL of the chat-completions server.
	// Empty means no model is available and New returns ErrNoModel
	// from every Generate call.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent in each request.
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps the completion length. Default: 4096.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature for sampling. Extraction wants determinism; default 0.
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// Timeout per HTTP request. Default: 120s — a full page of listings
	// can take a while on CPU-served models.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ErrNoModel is returned when no generation endpoint is configured.
var ErrNoModel = fmt.Errorf("genai: no generation endpoint configured")

// New creates a Generator from config.
func New(cfg Config) Generator {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return unavailable{}
	}
	return &client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type unavailable struct{}

func (unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrNoModel
}

type client struct {
	endpoint string
	cfg      Config
	http     *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", url)
	}

	c.cfg.Logger.Debug("genai: completion received",
		"model", result.Model,
		"duration", time.Since(start),
		"tokens", result.Usage.TotalTokens,
		"finish_reason", result.Choices[0].FinishReason)

	return result.Choices[0].Message.Content, nil
}
