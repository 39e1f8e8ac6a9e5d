package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// firestoreDocument is the stored shape; field names follow the JSON API.
type firestoreDocument struct {
	FileName      string            `firestore:"fileName"`
	FileType      string            `firestore:"fileType"`
	ExtractedText string            `firestore:"extractedText"`
	DocumentType  string            `firestore:"documentType"`
	AIPrompt      string            `firestore:"aiPrompt"`
	KeyValuePairs map[string]string `firestore:"keyValuePairs"`
	CreatedAt     time.Time         `firestore:"createdAt"`
}

type firestoreRepository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreDocumentRepository stores documents in a Firestore collection,
// keyed by document ID.
func NewFirestoreDocumentRepository(client *firestore.Client, collection string, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = "documents"
	}
	return &firestoreRepository{client: client, collection: collection, logger: logger}
}

// OpenFirestore creates a Firestore client for projectID. FIRESTORE_EMULATOR_HOST
// is honored by the client library.
func OpenFirestore(ctx context.Context, projectID string) (*firestore.Client, error) {
	return firestore.NewClient(ctx, projectID)
}

func (r *firestoreRepository) Save(ctx context.Context, doc *entity.Document) (uuid.UUID, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()

	_, err := r.client.Collection(r.collection).Doc(doc.ID.String()).Set(ctx, firestoreDocument{
		FileName:      doc.FileName,
		FileType:      doc.FileType,
		ExtractedText: doc.ExtractedText,
		DocumentType:  doc.DocumentType,
		AIPrompt:      doc.AIPrompt,
		KeyValuePairs: doc.KeyValuePairs,
		CreatedAt:     doc.CreatedAt,
	})
	if err != nil {
		r.logger.Error("repository.firestore.save_failed", "id", doc.ID, "error", err)
		return uuid.Nil, common.StorageError("firestore set", err)
	}
	return doc.ID, nil
}

func (r *firestoreRepository) ListAll(ctx context.Context) ([]entity.Document, error) {
	it := r.client.Collection(r.collection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	docs := make([]entity.Document, 0)
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, common.StorageError("firestore list", err)
		}
		var fd firestoreDocument
		if err := snap.DataTo(&fd); err != nil {
			return nil, common.StorageError("firestore decode "+snap.Ref.ID, err)
		}
		id, err := uuid.Parse(snap.Ref.ID)
		if err != nil {
			r.logger.Warn("repository.firestore.foreign_id", "id", snap.Ref.ID)
		}
		if fd.KeyValuePairs == nil {
			fd.KeyValuePairs = map[string]string{}
		}
		docs = append(docs, entity.Document{
			ID:            id,
			FileName:      fd.FileName,
			FileType:      fd.FileType,
			ExtractedText: fd.ExtractedText,
			DocumentType:  fd.DocumentType,
			AIPrompt:      fd.AIPrompt,
			KeyValuePairs: fd.KeyValuePairs,
			CreatedAt:     fd.CreatedAt.UTC(),
		})
	}
	return docs, nil
}
