package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// Job is one file waiting for the pipeline.
type Job struct {
	Source      entity.SourceFile
	SubmittedAt time.Time
	TraceID     string
}

var ErrQueueClosed = errors.New("queue is shutting down")

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
