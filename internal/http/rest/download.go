package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wavesos/wavesos_web/internal/artifact"
	"github.com/wavesos/wavesos_web/internal/logctx"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/telemetry"
)

type DownloadHandler struct {
	registry  storage.Registry
	store     *artifact.Store
	catalog   artifact.Catalog
	telemetry *telemetry.Telemetry
	responder
}

// NewDownloadHandler creates the artifact download and stats handler.
func NewDownloadHandler(
	registry storage.Registry,
	store *artifact.Store,
	catalog artifact.Catalog,
	t *telemetry.Telemetry,
	production bool,
) *DownloadHandler {
	return &DownloadHandler{
		registry:  registry,
		store:     store,
		catalog:   catalog,
		telemetry: t,
		responder: responder{production: production},
	}
}

func (h *DownloadHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/stats", h.HandleStats)
	r.Get("/{artifact}", h.HandleDownload)

	return r
}

// HandleStats returns the aggregated download counters.
func (h *DownloadHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.GetDownloadStats(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to fetch download statistics", err)

		return
	}

	h.writeJSON(w, r, http.StatusOK, stats)
}

// HandleDownload counts and streams one catalog artifact. The counter is only
// bumped once the file is known to exist.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	a, ok := h.catalog.Lookup(chi.URLParam(r, "artifact"))
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "Unknown artifact", nil)

		return
	}

	ctx := logctx.With(r.Context(), "artifact", a.Route)
	r = r.WithContext(ctx)
	logger := logctx.LoggerFromContext(ctx)

	f, err := h.store.Open(a)
	if err != nil {
		var notFound *artifact.NotFoundError
		if errors.As(err, &notFound) {
			logger.WarnContext(ctx, "artifact file missing", "filename", a.Filename)
			h.writeError(w, r, http.StatusNotFound, a.NotFoundHint(), nil)

			return
		}

		h.writeError(w, r, http.StatusInternalServerError, "Download failed", err)

		return
	}
	defer f.Close()

	rec, err := h.registry.IncrementDownload(ctx, a.Filename, a.FileType)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Download failed", err)

		return
	}

	logger.DebugContext(ctx, "download counted", "download_count", rec.DownloadCount)

	sw := &sentWriter{ResponseWriter: w}

	header := w.Header()
	header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Filename))
	header.Set("Content-Type", a.ContentType)
	header.Set("Content-Length", strconv.FormatInt(f.Size, 10))
	header.Set("Last-Modified", f.ModTime.UTC().Format(http.TimeFormat))

	err = h.telemetry.InstrumentDownload(ctx, string(a.FileType), func(ctx context.Context) (int64, error) {
		return h.store.Copy(ctx, sw, f)
	})
	if err == nil {
		return
	}

	aborted := ctx.Err() != nil

	if !sw.sent {
		header.Del("Content-Disposition")
		header.Del("Content-Length")
		header.Del("Last-Modified")

		if aborted {
			logger.WarnContext(ctx, "client aborted download before first byte", "err", err)
			h.writeError(w, r, http.StatusInternalServerError, "Download failed", nil)

			return
		}

		h.writeError(w, r, http.StatusInternalServerError, "Download failed", err)

		return
	}

	// Headers are out; the connection is simply abandoned.
	if aborted {
		logger.WarnContext(ctx, "client aborted download", "err", err)

		return
	}

	logger.ErrorContext(ctx, "artifact stream failed", "err", err)
}

// sentWriter records whether the response has started.
type sentWriter struct {
	http.ResponseWriter

	sent bool
}

func (w *sentWriter) WriteHeader(code int) {
	w.sent = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *sentWriter) Write(b []byte) (int, error) {
	w.sent = true

	return w.ResponseWriter.Write(b)
}
