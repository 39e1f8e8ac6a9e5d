package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/metrics"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/pipeline"
)

// Processor is the part of pipeline.Processor the queue needs.
type Processor interface {
	Process(ctx context.Context, src entity.SourceFile, store pipeline.Store) (*entity.Document, error)
}

// ProcessorQueue runs queued files through a Processor on a fixed worker pool.
type ProcessorQueue struct {
	proc    Processor
	store   pipeline.Store
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, *entity.Document, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked after each job finishes.
func WithOnDone(fn func(Job, *entity.Document, error)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc Processor, store pipeline.Store, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		store:   store,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					metrics.QueueDepth.Dec()
					q.run(workerID, job)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	doc, err := q.proc.Process(ctx, job.Source, q.store)
	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"file", job.Source.OriginalName,
			"kind", common.KindOf(err),
			"error", err,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	} else {
		q.logger.Info("queue.job.ok", "worker_id", workerID, "file", job.Source.OriginalName, "id", doc.ID)
	}
	if q.onDone != nil {
		q.onDone(job, doc, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "file", job.Source.OriginalName)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	metrics.QueueDepth.Inc()
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.enqueue.backpressure", "file", job.Source.OriginalName)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			metrics.QueueDepth.Dec()
			return ctx.Err()
		}
	}
	q.logger.Info("queue.enqueue.ok", "file", job.Source.OriginalName, "trace_id", job.TraceID)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
