// Package app wires configuration into the storage, pipeline and transport
// collaborators shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/export"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/extract"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ingest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm/provider"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/pipeline"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/server"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Store     *server.Store
	Export    *export.Service
	Stager    *ingest.Stager
	Processor *pipeline.Processor
	Batch     *pipeline.BatchRunner

	closers []func()
}

// Open connects storage and prepares the upload dir. The pipeline is
// attached separately so read-only tools need no model credentials.
func Open(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	store, err := server.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Export:  export.NewService(store, logger),
		closers: []func(){store.Close},
	}
	a.Stager, err = ingest.NewStager(cfg.Server.UploadDir, cfg.Server.MaxUploadBytes)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("app.open", "driver", cfg.Database.Driver, "upload_dir", a.Stager.Dir())
	return a, nil
}

// AttachPipeline builds the configured generator, the OCR extractor and the
// processor/batch runner on top of them.
func (a *App) AttachPipeline(ctx context.Context) error {
	if err := a.Config.ValidateLLM(); err != nil {
		return err
	}
	gen, closeGen, err := provider.New(ctx, a.Config.LLM, a.Logger)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := closeGen(); err != nil {
			a.Logger.Warn("llm.close.failed", "error", err)
		}
	})
	return a.attach(gen, ocr.NewExtractor(ocr.Config{
		Tesseract:   a.Config.OCR.Tesseract,
		Language:    a.Config.OCR.Language,
		TessdataDir: a.Config.OCR.TessdataDir,
		PSM:         a.Config.OCR.PSM,
	}, a.Logger))
}

func (a *App) attach(gen llm.Generator, ocrx *ocr.Extractor) error {
	fields, err := llm.NewFieldExtractor(gen, a.Config.LLM.StrictValues, a.Logger)
	if err != nil {
		return err
	}
	a.Processor = pipeline.NewProcessor(extract.NewOCRAdapter(ocrx), fields, a.Logger,
		pipeline.WithDocumentType(a.Config.Pipeline.DocumentType),
	)
	a.Batch = pipeline.NewBatchRunner(a.Processor, a.Logger,
		pipeline.WithWorkers(a.Config.Pipeline.BatchWorkers),
		pipeline.WithFileTimeout(a.Config.Pipeline.ProcessTimeout),
	)
	a.Logger.Info("pipeline.ready", "model", gen.Model(), "batch_workers", a.Config.Pipeline.BatchWorkers)
	return nil
}

// Deps returns the collaborators for the HTTP and gRPC surfaces.
func (a *App) Deps() server.Deps {
	return server.Deps{
		Processor: a.Processor,
		Batch:     a.Batch,
		Store:     a.Store,
		Export:    a.Export,
		Stager:    a.Stager,
		Ping:      a.Store.Ping,
		Config:    a.Config.Server,
		Logger:    a.Logger,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
