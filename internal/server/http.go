package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/export"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ingest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/pipeline"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/repository"
)

const multipartMemory = 8 << 20

// Deps are the collaborators shared by the HTTP and gRPC surfaces.
type Deps struct {
	Processor *pipeline.Processor
	Batch     *pipeline.BatchRunner
	Store     repository.DocumentRepository
	Export    *export.Service
	Stager    *ingest.Stager
	Ping      func(ctx context.Context) error
	Config    common.ServerConfig
	Logger    *slog.Logger
}

type API struct {
	Deps
	maxBytes int64
	maxFiles int
}

func NewAPI(d Deps) *API {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &API{Deps: d, maxBytes: d.Config.MaxUploadBytes, maxFiles: d.Config.MaxBatchFiles}
	if a.maxBytes <= 0 {
		a.maxBytes = constants.MaxUploadBytes
	}
	if a.maxFiles <= 0 {
		a.maxFiles = constants.MaxBatchFiles
	}
	return a
}

// Routes builds the HTTP router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(cors(a.Config.CORSOrigin))
	r.Use(observe(a.Logger))

	r.Get("/health", a.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/upload", a.upload)
		r.Post("/batch", a.uploadBatch)
		r.Get("/export.xlsx", a.exportXLSX)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.Ping != nil {
		if err := a.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	docs, err := a.Store.ListAll(r.Context())
	if err != nil {
		a.logFailure(r, "documents.list.failed", err)
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []entity.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseForm(w, r, 1)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.RemoveAll()

	fhs := form.File["document"]
	if len(fhs) == 0 {
		writeError(w, invalidInput("No file uploaded"))
		return
	}
	if err := a.Stager.Check(fhs[0].Filename, fhs[0].Size); err != nil {
		writeError(w, err)
		return
	}
	src, err := a.stage(fhs[0])
	if err != nil {
		a.logFailure(r, "documents.upload.stage_failed", err)
		writeError(w, err)
		return
	}

	doc, err := a.Processor.Process(r.Context(), src, a.Store)
	if err != nil {
		a.logFailure(r, "documents.upload.failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) uploadBatch(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseForm(w, r, a.maxFiles)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.RemoveAll()

	fhs := form.File["documents"]
	switch {
	case len(fhs) == 0:
		writeError(w, invalidInput("No files uploaded"))
		return
	case len(fhs) > a.maxFiles:
		writeError(w, invalidInput(fmt.Sprintf("at most %d files per batch, got %d", a.maxFiles, len(fhs))))
		return
	}
	// nothing is staged unless every file passes intake checks
	for _, fh := range fhs {
		if err := a.Stager.Check(fh.Filename, fh.Size); err != nil {
			writeError(w, err)
			return
		}
	}

	files := make([]entity.SourceFile, 0, len(fhs))
	for _, fh := range fhs {
		src, err := a.stage(fh)
		if err != nil {
			for _, f := range files {
				a.Processor.Discard(f)
			}
			a.logFailure(r, "documents.batch.stage_failed", err)
			writeError(w, err)
			return
		}
		files = append(files, src)
	}

	outcomes := a.Batch.Run(r.Context(), files, a.Store)
	out := make([]OutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, NewOutcomeView(o))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) exportXLSX(w http.ResponseWriter, r *http.Request) {
	b, err := a.Export.ExportDocumentsXLSX(r.Context())
	if err != nil {
		a.logFailure(r, "documents.export.failed", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// parseForm caps the body at files uploads of the configured size plus
// multipart overhead.
func (a *API) parseForm(w http.ResponseWriter, r *http.Request, files int) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(files)*a.maxBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, invalidInput(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, invalidInput("invalid multipart body: " + err.Error())
	}
	return r.MultipartForm, nil
}

func (a *API) stage(fh *multipart.FileHeader) (entity.SourceFile, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.SourceFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return a.Stager.Stage(f, fh.Filename)
}

func (a *API) logFailure(r *http.Request, event string, err error) {
	common.LoggerFromContext(r.Context(), a.Logger).Error(event, "kind", common.KindOf(err), "error", err)
}

func invalidInput(msg string) error {
	return common.NewAppError(common.KindInvalidInput, msg, common.ErrInvalidInput)
}
