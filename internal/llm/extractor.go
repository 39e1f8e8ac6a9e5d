package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
)

// FieldExtractor prompts a Generator and parses its answer into string fields.
// It performs no retries.
type FieldExtractor struct {
	gen    Generator
	schema *jsonschema.Schema
	strict bool
	logger *slog.Logger
}

// NewFieldExtractor wires gen. With strict set, nested objects or arrays in
// the answer are rejected instead of being kept as compact JSON text.
func NewFieldExtractor(gen Generator, strict bool, logger *slog.Logger) (*FieldExtractor, error) {
	if gen == nil {
		return nil, fmt.Errorf("llm: generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := CompileSchema(FieldMapSchema(strict))
	if err != nil {
		return nil, err
	}
	return &FieldExtractor{gen: gen, schema: schema, strict: strict, logger: logger}, nil
}

func (x *FieldExtractor) ExtractFields(ctx context.Context, text string) (ExtractResult, error) {
	start := time.Now()
	log := common.LoggerFromContext(ctx, x.logger)
	prompt := BuildPrompt(text)
	res := ExtractResult{Prompt: prompt, Model: x.gen.Model()}

	log.Info("llm.extract.start",
		"model", res.Model,
		"text_len", len(text),
		"prompt_len", len(prompt),
		"strict", x.strict,
	)

	raw, err := x.gen.Generate(ctx, prompt)
	if err != nil {
		log.Error("llm.extract.invocation_failed", "model", res.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return res, common.AIInvocationError(fmt.Sprintf("generate with %s", res.Model), err)
	}
	res.Raw = raw

	fields, warns, err := x.parse(raw)
	res.Warnings = warns
	if err != nil {
		log.Error("llm.extract.parse_failed",
			"model", res.Model,
			"error", err,
			"raw", truncate(raw, 2048),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, &common.ParseError{Raw: raw, Err: err}
	}
	if len(warns) > 0 {
		log.Warn("llm.extract.coerced", "model", res.Model, "fields", warns)
	}
	res.Fields = fields

	log.Info("llm.extract.ok",
		"model", res.Model,
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (x *FieldExtractor) parse(raw string) (map[string]string, []string, error) {
	m, err := decodeObject(StripFences(raw))
	if err != nil {
		return nil, nil, err
	}
	if err := x.schema.Validate(m); err != nil {
		return nil, nil, fmt.Errorf("json does not match schema: %w", err)
	}
	return coerceFields(m, x.strict)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
