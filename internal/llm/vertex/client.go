// Package vertex generates through the Vertex AI Gemini SDK using
// application default credentials.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

type Config struct {
	Project     string
	Location    string // e.g., "us-central1"
	Model       string
	Temperature float32
	JSONMode    bool
}

type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	gc, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("vertex: new client: %w", err)
	}
	m := gc.GenerativeModel(cfg.Model)
	m.SetTemperature(cfg.Temperature)
	if cfg.JSONMode {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	return &Client{cfg: cfg, client: gc, model: m, logger: logger}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			c.logger.Warn("llm.vertex.blocked", "model", c.cfg.Model, "error", err)
		}
		return "", fmt.Errorf("vertex: generate: %w", err)
	}
	c.logger.Info("llm.vertex.response",
		"model", c.cfg.Model,
		"candidates", len(resp.Candidates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("vertex: no candidates in response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
