package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path, ext string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE"
	Method     string // "pdf-text" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
}

// FieldExtractor is Stage 2: text -> prompt + string fields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (llm.ExtractResult, error)
}
