package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/extract"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/metrics"
)

// Processor runs one file through text extraction, field extraction,
// persistence and cleanup, strictly in that order.
type Processor struct {
	text         extract.TextExtractor
	fields       extract.FieldExtractor
	logger       *slog.Logger
	documentType string

	remove func(string) error
	now    func() time.Time
	newID  func() uuid.UUID
}

type Option func(*Processor)

// WithRemove replaces os.Remove for source-file cleanup.
func WithRemove(fn func(string) error) Option {
	return func(p *Processor) { p.remove = fn }
}

// WithClock replaces time.Now for createdAt stamping.
func WithClock(fn func() time.Time) Option {
	return func(p *Processor) { p.now = fn }
}

func WithDocumentType(t string) Option {
	return func(p *Processor) {
		if t != "" {
			p.documentType = t
		}
	}
}

func NewProcessor(text extract.TextExtractor, fields extract.FieldExtractor, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		text:         text,
		fields:       fields,
		logger:       logger,
		documentType: constants.DefaultDocumentType,
		remove:       os.Remove,
		now:          time.Now,
		newID:        uuid.New,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs the pipeline for src and returns the persisted document.
// Failures carry the file name and one of the common error kinds.
//
// The source file is removed once the document is saved, and also when
// extraction fails. It is left in place when saving fails.
func (p *Processor) Process(ctx context.Context, src entity.SourceFile, store Store) (*entity.Document, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	log := common.LoggerFromContext(ctx, p.logger).With("file", src.OriginalName)
	ctx = common.WithLogger(ctx, log)

	ext := src.Ext()
	if !constants.IsAllowedExt(ext) {
		log.Warn("processor.rejected", "ext", ext)
		return nil, p.fail(src, common.UnsupportedFormatError(ext))
	}
	log.Info("processor.start", "req_id", reqID, "ext", ext, "path", src.Path)

	// 1) text
	t0 := time.Now()
	text, err := p.text.Extract(ctx, src.Path, ext)
	metrics.ObserveStage("text", t0)
	if err != nil {
		log.Error("processor.text.failed", "kind", common.KindOf(err), "error", err)
		p.cleanup(log, src)
		return nil, p.fail(src, err)
	}
	log.Info("processor.text.ok", "method", text.Method, "pages", text.Pages, "chars", len(text.Text))

	// 2) fields
	t0 = time.Now()
	fields, err := p.fields.ExtractFields(ctx, text.Text)
	metrics.ObserveStage("fields", t0)
	if err != nil {
		log.Error("processor.fields.failed", "kind", common.KindOf(err), "error", err)
		p.cleanup(log, src)
		return nil, p.fail(src, err)
	}
	log.Info("processor.fields.ok", "model", fields.Model, "fields", len(fields.Fields))

	// 3) assemble
	kv := make(map[string]string, len(fields.Fields))
	for k, v := range fields.Fields {
		kv[common.CleanText(k)] = common.CleanText(v)
	}
	doc := &entity.Document{
		ID:            p.newID(),
		FileName:      common.CleanText(src.OriginalName),
		FileType:      common.CleanText(fileType(src, ext)),
		ExtractedText: common.CleanText(text.Text),
		DocumentType:  p.documentType,
		AIPrompt:      common.CleanText(fields.Prompt),
		KeyValuePairs: kv,
		CreatedAt:     p.now().UTC(),
	}

	// 4) persist
	t0 = time.Now()
	id, err := store.Save(ctx, doc)
	metrics.ObserveStage("save", t0)
	if err != nil {
		if !errors.Is(err, common.ErrStorage) {
			err = common.StorageError("save document", err)
		}
		log.Error("processor.save.failed", "error", err, "kept", src.Path)
		return nil, p.fail(src, err)
	}
	if id != uuid.Nil {
		doc.ID = id
	}

	// 5) cleanup never fails the run
	p.cleanup(log, src)

	metrics.DocumentsProcessed.WithLabelValues(string(constants.OutcomeSuccess), "").Inc()
	log.Info("processor.ok", "id", doc.ID, "elapsed_ms", time.Since(start).Milliseconds())
	return doc, nil
}

// Discard removes a source file that will not be processed.
func (p *Processor) Discard(src entity.SourceFile) {
	p.cleanup(p.logger.With("file", src.OriginalName), src)
}

func (p *Processor) cleanup(log *slog.Logger, src entity.SourceFile) {
	if src.Path == "" {
		return
	}
	err := p.remove(src.Path)
	if err == nil {
		return
	}
	metrics.CleanupWarnings.Inc()
	w := common.CleanupWarning(src.Path, err)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("processor.cleanup.missing", "kind", common.KindCleanupWarning, "error", w)
		return
	}
	log.Warn("processor.cleanup.warning", "kind", common.KindCleanupWarning, "error", w)
}

func (p *Processor) fail(src entity.SourceFile, err error) error {
	metrics.DocumentsProcessed.WithLabelValues(string(constants.OutcomeFailed), common.KindOf(err)).Inc()
	return &common.DocumentError{FileName: src.OriginalName, Err: err}
}

// fileType is the original extension with its dot and case, as the client sent it.
func fileType(src entity.SourceFile, ext string) string {
	if e := filepath.Ext(src.OriginalName); e != "" {
		return e
	}
	return "." + ext
}
