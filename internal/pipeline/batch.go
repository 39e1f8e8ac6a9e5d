package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/metrics"
)

// BatchRunner applies a Processor to a list of files. Each file's failure is
// recorded at its index and never stops the others.
type BatchRunner struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
}

type BatchOption func(*BatchRunner)

// WithWorkers bounds concurrent files. 1 (the default) runs strictly in order.
func WithWorkers(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithFileTimeout bounds each file, including files that keep running after
// the batch context is cancelled.
func WithFileTimeout(d time.Duration) BatchOption {
	return func(b *BatchRunner) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func NewBatchRunner(proc *Processor, logger *slog.Logger, opts ...BatchOption) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BatchRunner{proc: proc, logger: logger, workers: 1, timeout: 3 * time.Minute}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run returns one outcome per file, index-aligned with files regardless of
// completion order. Cancelling ctx stops new files from starting; files
// already started run to completion and their outcomes are kept.
func (b *BatchRunner) Run(ctx context.Context, files []entity.SourceFile, store Store) []entity.Outcome {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	log := common.LoggerFromContext(ctx, b.logger)
	log.Info("batch.start", "req_id", reqID, "files", len(files), "workers", b.workers)

	out := make([]entity.Outcome, len(files))
	if b.workers <= 1 {
		for i, f := range files {
			out[i] = b.runOne(ctx, i, f, store)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(b.workers)
		for i, f := range files {
			if ctx.Err() != nil {
				out[i] = b.cancelled(i, f)
				continue
			}
			g.Go(func() error {
				out[i] = b.runOne(ctx, i, f, store)
				return nil
			})
		}
		_ = g.Wait()
	}

	var ok, failed, cancelled int
	for _, o := range out {
		switch o.Status {
		case constants.OutcomeSuccess:
			ok++
		case constants.OutcomeCancelled:
			cancelled++
		default:
			failed++
		}
	}
	log.Info("batch.done",
		"req_id", reqID,
		"ok", ok,
		"failed", failed,
		"cancelled", cancelled,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (b *BatchRunner) runOne(ctx context.Context, i int, f entity.SourceFile, store Store) entity.Outcome {
	if ctx.Err() != nil {
		return b.cancelled(i, f)
	}
	fctx := context.WithoutCancel(ctx)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(fctx, b.timeout)
		defer cancel()
	}

	o := entity.Outcome{Index: i, FileName: f.OriginalName}
	doc, err := b.proc.Process(fctx, f, store)
	if err != nil {
		o.Status = constants.OutcomeFailed
		o.Err = err
		return o
	}
	o.Status = constants.OutcomeSuccess
	o.Document = doc
	return o
}

func (b *BatchRunner) cancelled(i int, f entity.SourceFile) entity.Outcome {
	b.proc.Discard(f)
	metrics.DocumentsProcessed.WithLabelValues(string(constants.OutcomeCancelled), common.KindCancelled).Inc()
	return entity.Outcome{
		Index:    i,
		FileName: f.OriginalName,
		Status:   constants.OutcomeCancelled,
		Err: &common.DocumentError{
			FileName: f.OriginalName,
			Err:      common.NewAppError(common.KindCancelled, "batch cancelled before file started", common.ErrCancelled),
		},
	}
}
