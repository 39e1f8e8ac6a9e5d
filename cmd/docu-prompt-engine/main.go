package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/app"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/async"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ingest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	if err := a.AttachPipeline(ctx); err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	queue := async.NewProcessorQueue(a.Processor, a.Store, logger,
		async.WithWorkers(cfg.Pipeline.QueueWorkers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		async.WithOnDone(func(j async.Job, doc *entity.Document, err error) {
			if err != nil {
				logger.Warn("inbox.document.failed", "trace_id", j.TraceID, "file_name", j.Source.OriginalName, "kind", common.KindOf(err), "error", err)
				return
			}
			logger.Info("inbox.document.saved", "trace_id", j.TraceID, "file_name", j.Source.OriginalName, "id", doc.ID)
		}),
	)
	if cfg.Server.InboxDir != "" {
		if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
			logger.Error("failed to create inbox dir", "dir", cfg.Server.InboxDir, "error", err)
			os.Exit(1)
		}
		inbox := ingest.NewInbox(cfg.Server.InboxDir, a.Stager, queue, logger)
		go func() {
			if err := inbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("inbox stopped", "error", err)
			}
		}()
	}

	deps := a.Deps()

	// gRPC
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(server.NewDocumentService(deps))
	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// HTTP
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewAPI(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
