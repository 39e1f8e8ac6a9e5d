package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

type listerFunc func(ctx context.Context) ([]entity.Document, error)

func (f listerFunc) ListAll(ctx context.Context) ([]entity.Document, error) { return f(ctx) }

func TestExportDocumentsXLSX(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	docs := []entity.Document{
		{
			ID: id1, FileName: "b.png", FileType: ".png", DocumentType: "invoice",
			ExtractedText: strings.Repeat("x", 900),
			KeyValuePairs: map[string]string{"total": "42.00", "date": "2024-03-20"},
			CreatedAt:     time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: id2, FileName: "a.pdf", FileType: ".pdf", DocumentType: "invoice",
			KeyValuePairs: map[string]string{},
			CreatedAt:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		},
	}
	svc := NewService(listerFunc(func(context.Context) ([]entity.Document, error) { return docs, nil }), nil)

	data, err := svc.ExportDocumentsXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Documents", "Fields"}, f.GetSheetList())

	rows, err := f.GetRows("Documents")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File Name", rows[0][2])
	assert.Equal(t, id1.String(), rows[1][0])
	assert.Equal(t, "2024-03-21T00:00:00Z", rows[1][1])
	assert.Equal(t, "2", rows[1][5])
	assert.Len(t, []rune(rows[1][6]), maxTextCell)
	assert.Equal(t, "a.pdf", rows[2][2])

	fields, err := f.GetRows("Fields")
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, []string{id1.String(), "b.png", "date", "2024-03-20"}, fields[1])
	assert.Equal(t, []string{id1.String(), "b.png", "total", "42.00"}, fields[2])
}

func TestExportDocumentsXLSX_ListError(t *testing.T) {
	svc := NewService(listerFunc(func(context.Context) ([]entity.Document, error) { return nil, errors.New("down") }), nil)
	_, err := svc.ExportDocumentsXLSX(context.Background())
	assert.ErrorContains(t, err, "down")
}
