package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm/provider"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <text-file> [times]")
		os.Exit(2)
	}
	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read text file", "path", os.Args[1], "error", err)
		os.Exit(2)
	}
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.ValidateLLM(); err != nil {
		logger.Error("invalid llm config", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	gen, closeGen, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("llm provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeGen() }()

	fx, err := llm.NewFieldExtractor(gen, cfg.LLM.StrictValues, logger)
	if err != nil {
		logger.Error("field extractor", "error", err)
		os.Exit(1)
	}

	// repeated runs show how stable the model's keys are for the same text
	failed := 0
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(ctx, 2*time.Minute)
		start := time.Now()
		res, err := fx.ExtractFields(runCtx, string(text))
		cancelRun()
		if err != nil {
			failed++
			logger.Error("llm.run.error", "iter", i, "kind", common.KindOf(err), "err", err)
			continue
		}
		logger.Info("llm.run.ok", "iter", i, "fields", len(res.Fields), "warnings", res.Warnings, "elapsed_ms", time.Since(start).Milliseconds())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res.Fields)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
