package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/async"
)

// Inbox watches a drop directory and hands every new supported file to the
// processing queue. Files are moved into the upload dir before enqueueing.
type Inbox struct {
	dir      string
	stager   *Stager
	queue    async.Queue
	debounce time.Duration
	logger   *slog.Logger
}

func NewInbox(dir string, stager *Stager, queue async.Queue, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		dir:      dir,
		stager:   stager,
		queue:    queue,
		debounce: 500 * time.Millisecond,
		logger:   logger.With("component", "inbox", "dir", dir),
	}
}

// Run blocks until ctx is done. Files already present are picked up first.
func (in *Inbox) Run(ctx context.Context) error {
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{in.dir},
		InitialScan: true,
		Debounce:    in.debounce,
		SkipHidden:  true,
	}, in.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			in.handle(ctx, path)
		case err, ok := <-errs:
			if ok {
				in.logger.Warn("inbox.watch.error", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (in *Inbox) handle(ctx context.Context, path string) {
	src, err := in.stager.StagePath(path)
	if err != nil {
		in.logger.Warn("inbox.stage.failed", "path", path, "error", err)
		return
	}
	job := async.Job{Source: src, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
	if err := in.queue.Enqueue(ctx, job); err != nil {
		in.logger.Error("inbox.enqueue.failed", "path", path, "staged", src.Path, "error", err)
		return
	}
	in.logger.Info("inbox.enqueued", "file", src.OriginalName, "staged", src.Path, "trace_id", job.TraceID)
}
