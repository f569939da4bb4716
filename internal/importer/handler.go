package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/manoam/stocks-backend/internal/platform/httpx"
)

// WarmupScheduler queues a dashboard refresh after bulk changes.
type WarmupScheduler interface {
	EnqueueDashboardWarmup(ctx context.Context, trigger string) (*asynq.TaskInfo, error)
}

// Handler exposes the bulk import/export API.
type Handler struct {
	service  *Service
	exporter *Exporter
	warmups  WarmupScheduler
	maxBytes int64
}

// NewHandler constructs Handler. maxBytes caps accepted upload sizes;
// a nil scheduler skips the post-import warmup.
func NewHandler(service *Service, exporter *Exporter, warmups WarmupScheduler, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Handler{service: service, exporter: exporter, warmups: warmups, maxBytes: maxBytes}
}

// MountRoutes registers import and export endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/import", func(r chi.Router) {
		r.Post("/", h.run)
		r.Post("/preview", h.preview)
	})
	r.Get("/export/{entity}", h.export)
}

func (h *Handler) openUpload(w http.ResponseWriter, r *http.Request) (file multipart.File, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		httpx.Error(w, http.StatusBadRequest, "expected a multipart upload with a \"file\" field")
		return nil, "", false
	}
	upload, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "missing \"file\" field")
		return nil, "", false
	}
	return upload, header.Filename, true
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := h.service.Preview(file, filename)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, preview)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.Run(r.Context(), file, filename, r.Header.Get("X-Operator"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.warmups != nil {
		// Best effort: a cron warmup will catch up if the queue is down.
		_, _ = h.warmups.EnqueueDashboardWarmup(r.Context(), "import")
	}
	httpx.OKMessage(w, result, "import finished")
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatXLSX
	}

	// Build into a buffer first so failures return a JSON error
	// instead of a truncated download.
	var buf bytes.Buffer
	name, err := h.exporter.Export(r.Context(), entity, format, &buf)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownEntity), errors.Is(err, ErrUnknownFormat):
			httpx.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpx.RespondError(w, err)
		}
		return
	}

	switch format {
	case FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
