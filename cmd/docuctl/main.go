package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/app"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
)

type options struct {
	inmem   bool
	workers int
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "docuctl",
		Short:        "Extract text and AI fields from documents",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.inmem, "inmem", false, "use an in-memory SQLite database")
	root.PersistentFlags().IntVar(&opts.workers, "workers", 0, "concurrent files for batch runs (default BATCH_WORKERS)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline events to stderr")

	root.AddCommand(
		newProcessCmd(opts),
		newBatchCmd(opts),
		newListCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// openApp loads config and storage. withPipeline also builds the model
// client and OCR engine.
func openApp(cmd *cobra.Command, opts *options, withPipeline bool) (*app.App, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	if opts.workers > 0 {
		cfg.Pipeline.BatchWorkers = opts.workers
	}

	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	if withPipeline {
		if err := a.AttachPipeline(cmd.Context()); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
