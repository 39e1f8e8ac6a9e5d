// Package provider builds the configured llm.Generator.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm/gemini"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm/openai"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm/vertex"
)

// New returns the generator for cfg.Provider and a close func for its resources.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), noop, nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    true,
		}, logger), noop, nil
	case "vertex":
		c, err := vertex.NewClient(ctx, vertex.Config{
			Project:     cfg.Project,
			Location:    cfg.Location,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
