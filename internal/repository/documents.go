package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// DocumentRepository stores processed documents. Implementations are safe
// for concurrent use.
type DocumentRepository interface {
	Save(ctx context.Context, doc *entity.Document) (uuid.UUID, error)
	// ListAll returns every document, newest first.
	ListAll(ctx context.Context) ([]entity.Document, error)
}

var documentColumns = []string{
	"id", "file_name", "file_type", "extracted_text",
	"document_type", "ai_prompt", "key_value_pairs", "created_at",
}

type documentRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
	now    func() time.Time
}

// NewDocumentRepository creates a DocumentRepository over an Ent SQL driver.
func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{drv: drv, logger: logger, now: time.Now}
}

func (r *documentRepository) Save(ctx context.Context, doc *entity.Document) (uuid.UUID, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	kv := doc.KeyValuePairs
	if kv == nil {
		kv = map[string]string{}
	}
	kvJSON, err := json.Marshal(kv)
	if err != nil {
		return uuid.Nil, common.StorageError("encode key_value_pairs", err)
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.ID, doc.FileName, doc.FileType, doc.ExtractedText,
			doc.DocumentType, doc.AIPrompt, string(kvJSON), doc.CreatedAt).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("repository.documents.save_failed", "id", doc.ID, "error", err)
		return uuid.Nil, common.StorageError("insert document", err)
	}
	r.logger.Debug("repository.documents.saved", "id", doc.ID, "file", doc.FileName)
	return doc.ID, nil
}

func (r *documentRepository) ListAll(ctx context.Context) ([]entity.Document, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		OrderBy(entsql.Desc("created_at")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, common.StorageError("list documents", err)
	}
	defer rows.Close()

	docs := make([]entity.Document, 0)
	for rows.Next() {
		var (
			d      entity.Document
			kvJSON []byte
		)
		if err := rows.Scan(&d.ID, &d.FileName, &d.FileType, &d.ExtractedText,
			&d.DocumentType, &d.AIPrompt, &kvJSON, &d.CreatedAt); err != nil {
			return nil, common.StorageError("scan document", err)
		}
		if err := json.Unmarshal(kvJSON, &d.KeyValuePairs); err != nil {
			return nil, common.StorageError("decode key_value_pairs", err)
		}
		if d.KeyValuePairs == nil {
			d.KeyValuePairs = map[string]string{}
		}
		d.CreatedAt = d.CreatedAt.UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("iterate documents", err)
	}
	return docs, nil
}
