package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// Store persists finished documents. It must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, doc *entity.Document) (uuid.UUID, error)
}
