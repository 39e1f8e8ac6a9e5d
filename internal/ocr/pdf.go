package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
)

// PDFReader turns PDF bytes into the concatenated text of its pages.
type PDFReader interface {
	ReadText(ctx context.Context, data []byte) (text string, pages int, warnings []string, err error)
}

// TextLayerReader reads the embedded text layer; scanned PDFs yield empty text.
type TextLayerReader struct {
	logger *slog.Logger
}

func NewTextLayerReader(logger *slog.Logger) *TextLayerReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLayerReader{logger: logger}
}

func (r *TextLayerReader) ReadText(ctx context.Context, data []byte) (string, int, []string, error) {
	text, pages, err := readTextLayer(ctx, data)
	if err != nil {
		return "", 0, nil, err
	}
	var warns []string
	if n, err := inspectPageCount(data); err != nil {
		warns = append(warns, fmt.Sprintf("page inspection: %v", err))
	} else if n != pages {
		warns = append(warns, fmt.Sprintf("page count mismatch: text layer %d, structure %d", pages, n))
	}
	return text, pages, warns, nil
}

// readTextLayer recovers from parser panics; the pdf package panics on some malformed input.
func readTextLayer(ctx context.Context, data []byte) (text string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	pages = rd.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		p := rd.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(txt)
	}
	return b.String(), pages, nil
}

// inspectPageCount asks pdfcpu for the page count from the document structure.
func inspectPageCount(data []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", rec)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, err
	}
	return pctx.PageCount, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Method: "pdf-text"}
	data, err := os.ReadFile(path)
	if err != nil {
		return res, common.NewAppError(common.KindInternal, "read pdf", err)
	}
	text, pages, warns, err := e.pdf.ReadText(ctx, data)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return res, ctx.Err()
		}
		return res, common.CorruptDocumentError("parse pdf text layer", err)
	}
	res.Text = text
	res.Pages = pages
	res.Warnings = warns
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("ocr.pdf.empty_text", "path", path, "pages", pages)
	}
	return res, nil
}
