package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
)

type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg    Config
	pdf    PDFReader
	engine Engine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithEngine replaces the tesseract engine.
func WithEngine(engine Engine) Option {
	return func(e *Extractor) { e.engine = engine }
}

// WithPDFReader replaces the PDF text-layer reader.
func WithPDFReader(r PDFReader) Option {
	return func(e *Extractor) { e.pdf = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = constants.DefaultOCRLanguage
	}
	e := &Extractor{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.pdf == nil {
		e.pdf = NewTextLayerReader(logger)
	}
	if e.engine == nil {
		e.engine = NewTesseractEngine(cfg, newExecRunner(logger))
	}
	return e
}

// Extract dispatches on the declared extension. Unsupported extensions are
// rejected before the file is touched.
func (e *Extractor) Extract(ctx context.Context, path, ext string) (ExtractionResult, error) {
	start := time.Now()
	ext = constants.NormalizeExt(ext)
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Warn("ocr.extract.unsupported", "path", path, "ext", ext)
		return ExtractionResult{}, common.UnsupportedFormatError(ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", path, "method", res.Method, "kind", common.KindOf(err), "error", err)
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
