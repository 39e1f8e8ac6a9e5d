package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/extract"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/llm"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr/ocrtest"
)

type memStore struct {
	mu   sync.Mutex
	docs []*entity.Document
	err  error
}

func (m *memStore) Save(_ context.Context, doc *entity.Document) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.docs = append(m.docs, doc)
	return doc.ID, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type harness struct {
	engine *ocrtest.Engine
	calls  atomic.Int32
	proc   *Processor
}

func newHarness(t *testing.T, engine *ocrtest.Engine, gen llm.GeneratorFunc, opts ...Option) *harness {
	t.Helper()
	h := &harness{engine: engine}
	counted := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		h.calls.Add(1)
		return gen(ctx, prompt)
	})
	fx, err := llm.NewFieldExtractor(counted, false, nil)
	require.NoError(t, err)
	tx := extract.NewOCRAdapter(ocr.NewExtractor(ocr.Config{}, nil, ocr.WithEngine(engine)))
	h.proc = NewProcessor(tx, fx, nil, opts...)
	return h
}

func answer(s string) llm.GeneratorFunc {
	return func(context.Context, string) (string, error) { return s, nil }
}

func tempFile(t *testing.T, dir, name string, data []byte) entity.SourceFile {
	t.Helper()
	p := filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return entity.SourceFile{Path: p, OriginalName: name}
}

func TestProcess_PDFEndToEnd(t *testing.T) {
	src := tempFile(t, t.TempDir(), "Invoice.pdf", ocrtest.MinimalPDF("Invoice #INV-9 total 42.00"))
	created := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, &ocrtest.Engine{},
		answer("```json\n{\"invoice_number\": \"INV-9\", \"total_amount\": 42.00, \"paid\": false}\n```"),
		WithClock(func() time.Time { return created }),
	)
	store := &memStore{}

	doc, err := h.proc.Process(context.Background(), src, store)
	require.NoError(t, err)

	assert.Contains(t, doc.ExtractedText, "Invoice #INV-9 total 42.00")
	assert.Equal(t, llm.BuildPrompt(doc.ExtractedText), doc.AIPrompt)
	assert.Equal(t, map[string]string{"invoice_number": "INV-9", "total_amount": "42.00", "paid": "false"}, doc.KeyValuePairs)
	assert.Equal(t, "Invoice.pdf", doc.FileName)
	assert.Equal(t, ".pdf", doc.FileType)
	assert.Equal(t, constants.DefaultDocumentType, doc.DocumentType)
	assert.Equal(t, created, doc.CreatedAt)
	assert.NotEqual(t, uuid.Nil, doc.ID)

	require.Equal(t, 1, store.count())
	assert.NoFileExists(t, src.Path)
	starts, _, _ := h.engine.Counts()
	assert.Zero(t, starts, "pdf must not use the ocr engine")
}

func TestProcess_UnsupportedFormatBeforeIO(t *testing.T) {
	src := tempFile(t, t.TempDir(), "notes.docx", []byte("PK"))
	h := newHarness(t, &ocrtest.Engine{}, answer(`{}`))
	store := &memStore{}

	_, err := h.proc.Process(context.Background(), src, store)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	var de *common.DocumentError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "notes.docx", de.FileName)

	assert.FileExists(t, src.Path)
	assert.Zero(t, store.count())
	assert.Zero(t, h.calls.Load())
}

func TestProcess_FailureKinds(t *testing.T) {
	tests := []struct {
		name      string
		src       func(dir string) entity.SourceFile
		engine    *ocrtest.Engine
		gen       llm.GeneratorFunc
		storeErr  error
		wantErr   error
		wantKept  bool
		wantCalls int32
	}{
		{
			name:      "corrupt pdf",
			src:       func(dir string) entity.SourceFile { return tempFile(t, dir, "bad.pdf", []byte("not a pdf")) },
			engine:    &ocrtest.Engine{},
			gen:       answer(`{}`),
			wantErr:   common.ErrCorruptDocument,
			wantCalls: 0,
		},
		{
			name:      "ai invocation",
			src:       func(dir string) entity.SourceFile { return tempFile(t, dir, "a.pdf", ocrtest.MinimalPDF("x")) },
			engine:    &ocrtest.Engine{},
			gen:       func(context.Context, string) (string, error) { return "", errors.New("connection reset") },
			wantErr:   common.ErrAIInvocation,
			wantCalls: 1,
		},
		{
			name:      "ai parse",
			src:       func(dir string) entity.SourceFile { return tempFile(t, dir, "a.pdf", ocrtest.MinimalPDF("x")) },
			engine:    &ocrtest.Engine{},
			gen:       answer("Sure! Here's the data: {a:1}"),
			wantErr:   common.ErrAIResponseParse,
			wantCalls: 1,
		},
		{
			name:      "storage",
			src:       func(dir string) entity.SourceFile { return tempFile(t, dir, "a.pdf", ocrtest.MinimalPDF("x")) },
			engine:    &ocrtest.Engine{},
			gen:       answer(`{"a":"1"}`),
			storeErr:  errors.New("connection refused"),
			wantErr:   common.ErrStorage,
			wantKept:  true,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src(t.TempDir())
			h := newHarness(t, tt.engine, tt.gen)

			doc, err := h.proc.Process(context.Background(), src, &memStore{err: tt.storeErr})
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, h.calls.Load())
			if tt.wantKept {
				assert.FileExists(t, src.Path)
			} else {
				assert.NoFileExists(t, src.Path)
			}
		})
	}
}

func TestProcess_ParseErrorKeepsRaw(t *testing.T) {
	src := tempFile(t, t.TempDir(), "a.pdf", ocrtest.MinimalPDF("x"))
	h := newHarness(t, &ocrtest.Engine{}, answer("not json"))

	_, err := h.proc.Process(context.Background(), src, &memStore{})
	var pe *common.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "not json", pe.Raw)
}

func TestProcess_CleanupFailureIsNotFatal(t *testing.T) {
	src := tempFile(t, t.TempDir(), "a.pdf", ocrtest.MinimalPDF("x"))
	var removed []string
	h := newHarness(t, &ocrtest.Engine{}, answer(`{"a":"1"}`), WithRemove(func(p string) error {
		removed = append(removed, p)
		return os.ErrPermission
	}))
	store := &memStore{}

	doc, err := h.proc.Process(context.Background(), src, store)
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, []string{src.Path}, removed)
	assert.Equal(t, 1, store.count())
}

func TestProcess_InvalidUTF8IsCleanedBeforeSave(t *testing.T) {
	dir := t.TempDir()
	src := tempFile(t, dir, "scan.png", []byte("png"))
	engine := &ocrtest.Engine{Texts: map[string]string{src.Path: "caf\xe9 total\x00 9"}}
	h := newHarness(t, engine, answer(`{"vendor":"ACME"}`))
	store := &memStore{}

	doc, err := h.proc.Process(context.Background(), src, store)
	require.NoError(t, err)
	assert.Equal(t, "caf\uFFFD total 9", doc.ExtractedText)
	assert.True(t, utf8.ValidString(doc.AIPrompt))
	assert.Equal(t, map[string]string{"vendor": "ACME"}, doc.KeyValuePairs)
	require.Equal(t, 1, store.count())
}

func TestProcess_ImageReleasesEngine(t *testing.T) {
	dir := t.TempDir()
	src := tempFile(t, dir, "scan.PNG", []byte("png"))
	engine := &ocrtest.Engine{Texts: map[string]string{src.Path: "Total 42.00"}}
	h := newHarness(t, engine, func(context.Context, string) (string, error) { return "", errors.New("quota") })

	_, err := h.proc.Process(context.Background(), src, &memStore{})
	assert.ErrorIs(t, err, common.ErrAIInvocation)
	starts, closes, double := engine.Counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, closes)
	assert.Zero(t, double)
}
