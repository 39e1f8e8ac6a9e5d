package export

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

const (
	documentsSheet = "Documents"
	fieldsSheet    = "Fields"
	maxTextCell    = 500
)

// Lister is the read side of a document store.
type Lister interface {
	ListAll(ctx context.Context) ([]entity.Document, error)
}

// Service produces XLSX bytes for document exports.
type Service struct {
	docs   Lister
	logger *slog.Logger
}

func NewService(docs Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentsXLSX writes every document, newest first, to a workbook with
// one row per document and one row per extracted field.
func (s *Service) ExportDocumentsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(documentsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, documentsSheet, 1, "ID", "Created At", "File Name", "File Type", "Document Type", "Fields", "Extracted Text")
	writeRow(f, fieldsSheet, 1, "Document ID", "File Name", "Key", "Value")

	fieldRow := 2
	for i, d := range docs {
		writeRow(f, documentsSheet, i+2,
			d.ID.String(),
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.FileName,
			d.FileType,
			d.DocumentType,
			len(d.KeyValuePairs),
			truncate(d.ExtractedText, maxTextCell),
		)

		keys := make([]string, 0, len(d.KeyValuePairs))
		for k := range d.KeyValuePairs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			writeRow(f, fieldsSheet, fieldRow, d.ID.String(), d.FileName, k, d.KeyValuePairs[k])
			fieldRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(documentsSheet, "A", "A", 38) // id
	_ = f.SetColWidth(documentsSheet, "B", "B", 22) // created
	_ = f.SetColWidth(documentsSheet, "C", "C", 32) // file
	_ = f.SetColWidth(documentsSheet, "G", "G", 80) // text
	_ = f.SetColWidth(fieldsSheet, "A", "A", 38)
	_ = f.SetColWidth(fieldsSheet, "C", "D", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"fields", fieldRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
