package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/export"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/extract"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ingest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr/ocrtest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/pipeline"
)

type testEnv struct {
	deps      Deps
	uploadDir string
	handler   http.Handler
}

func newTestEnv(t *testing.T, answer string) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_time_format=sqlite", filepath.Join(t.TempDir(), "docs.db"))
	store, err := OpenStore(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) { return answer, nil })
	fx, err := llm.NewFieldExtractor(gen, false, logger)
	require.NoError(t, err)
	tx := extract.NewOCRAdapter(ocr.NewExtractor(ocr.Config{}, logger, ocr.WithEngine(&ocrtest.Engine{})))
	proc := pipeline.NewProcessor(tx, fx, logger)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	stager, err := ingest.NewStager(uploadDir, 1<<20)
	require.NoError(t, err)

	deps := Deps{
		Processor: proc,
		Batch:     pipeline.NewBatchRunner(proc, logger),
		Store:     store,
		Export:    export.NewService(store, logger),
		Stager:    stager,
		Ping:      store.Ping,
		Config:    common.ServerConfig{CORSOrigin: "http://localhost:5173", MaxUploadBytes: 1 << 20, MaxBatchFiles: 3},
		Logger:    logger,
	}
	return &testEnv{deps: deps, uploadDir: uploadDir, handler: NewAPI(deps).Routes()}
}

type part struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, field string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) uploadsLeft(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	return len(entries)
}

const invoiceAnswer = "```json\n{\"invoice_number\": \"INV-7\", \"total_amount\": 19.5}\n```"

func TestUpload_ProcessesAndLists(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	body, ct := multipartBody(t, "document", part{"Invoice.PDF", ocrtest.MinimalPDF("Invoice INV-7 total 19.50")})
	rec := env.do(t, http.MethodPost, "/api/documents/upload", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	var doc entity.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Invoice.PDF", doc.FileName)
	assert.Equal(t, ".PDF", doc.FileType)
	assert.Equal(t, "invoice", doc.DocumentType)
	assert.Contains(t, doc.ExtractedText, "INV-7")
	assert.Equal(t, map[string]string{"invoice_number": "INV-7", "total_amount": "19.5"}, doc.KeyValuePairs)
	assert.Equal(t, 0, env.uploadsLeft(t))

	rec = env.do(t, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []entity.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestUpload_RejectsAtIntake(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	tests := []struct {
		name     string
		field    string
		parts    []part
		wantKind string
	}{
		{"missing file", "other", []part{{"a.pdf", []byte("x")}}, common.KindInvalidInput},
		{"unsupported extension", "document", []part{{"notes.docx", []byte("x")}}, common.KindUnsupportedFormat},
		{"too large", "document", []part{{"big.pdf", bytes.Repeat([]byte("a"), 1<<20+1)}}, common.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.field, tt.parts...)
			rec := env.do(t, http.MethodPost, "/api/documents/upload", body, ct)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var e ErrorView
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, 0, env.uploadsLeft(t))
		})
	}
}

func TestUpload_CorruptPDFReportsKind(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	body, ct := multipartBody(t, "document", part{"broken.pdf", []byte("not a pdf at all")})
	rec := env.do(t, http.MethodPost, "/api/documents/upload", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var e ErrorView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, common.KindCorruptDocument, e.Kind)
	assert.Equal(t, "broken.pdf", e.FileName)
	assert.Equal(t, 0, env.uploadsLeft(t))
}

func TestBatch_MixedOutcomesInOrder(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	body, ct := multipartBody(t, "documents",
		part{"one.pdf", ocrtest.MinimalPDF("first")},
		part{"two.pdf", []byte("garbage")},
		part{"three.pdf", ocrtest.MinimalPDF("third")},
	)
	rec := env.do(t, http.MethodPost, "/api/documents/batch", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out []OutcomeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 3)
	for i, name := range []string{"one.pdf", "two.pdf", "three.pdf"} {
		assert.Equal(t, i, out[i].Index)
		assert.Equal(t, name, out[i].FileName)
	}
	assert.NotNil(t, out[0].Document)
	assert.Nil(t, out[0].Error)
	require.NotNil(t, out[1].Error)
	assert.Equal(t, common.KindCorruptDocument, out[1].Error.Kind)
	assert.Nil(t, out[1].Document)
	assert.NotNil(t, out[2].Document)

	docs, err := env.deps.Store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestBatch_RejectsWholeRequest(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	t.Run("too many files", func(t *testing.T) {
		parts := make([]part, 4)
		for i := range parts {
			parts[i] = part{fmt.Sprintf("%d.pdf", i), []byte("x")}
		}
		body, ct := multipartBody(t, "documents", parts...)
		rec := env.do(t, http.MethodPost, "/api/documents/batch", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("one unsupported file", func(t *testing.T) {
		body, ct := multipartBody(t, "documents", part{"a.pdf", []byte("x")}, part{"b.gif", []byte("x")})
		rec := env.do(t, http.MethodPost, "/api/documents/batch", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, env.uploadsLeft(t))
	})

	t.Run("no files", func(t *testing.T) {
		body, ct := multipartBody(t, "documents")
		rec := env.do(t, http.MethodPost, "/api/documents/batch", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListEmptyExportAndHealth(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)

	rec := env.do(t, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/documents/export.xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/documents/upload", nil)
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
