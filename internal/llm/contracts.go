package llm

import "context"

// Generator is a generative-language capability: prompt in, raw text out.
// Implementations must not retry or post-process the model's answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ExtractResult is what FieldExtractor hands back to the pipeline.
type ExtractResult struct {
	Prompt   string            // exact text sent to the model
	Fields   map[string]string // parsed key-value pairs
	Raw      string            // model answer before fence stripping
	Model    string
	Warnings []string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f GeneratorFunc) Model() string { return "func" }
