package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a processed document as persisted and listed.
// KeyValuePairs holds whatever fields the model emitted; all values are strings.
type Document struct {
	ID            uuid.UUID         `json:"id"`
	FileName      string            `json:"fileName"`
	FileType      string            `json:"fileType"`
	ExtractedText string            `json:"extractedText"`
	DocumentType  string            `json:"documentType"`
	AIPrompt      string            `json:"aiPrompt"`
	KeyValuePairs map[string]string `json:"keyValuePairs"`
	CreatedAt     time.Time         `json:"createdAt"`
}
