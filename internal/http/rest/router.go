package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wavesos/wavesos_web/internal/artifact"
	"github.com/wavesos/wavesos_web/internal/notifier"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/telemetry"
)

// RouterOptions carries everything the HTTP surface depends on.
type RouterOptions struct {
	Registry  storage.Registry
	Store     *artifact.Store
	Catalog   artifact.Catalog
	Notifier  notifier.Notifier
	Telemetry *telemetry.Telemetry

	Production  bool
	FrontendURL string
	MaxBodySize int64
	StaticDir   string
	ServiceName string
}

// NewRouter assembles the API, the metrics endpoint and the optional static site.
func NewRouter(opts RouterOptions) http.Handler {
	if opts.Catalog == nil {
		opts.Catalog = artifact.DefaultCatalog()
	}

	if opts.Telemetry == nil {
		opts.Telemetry = &telemetry.Telemetry{}
	}

	if opts.ServiceName == "" {
		opts.ServiceName = "wavesos_web"
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(opts.Telemetry).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders(opts.Production))
	r.Use(CORS(opts.Production, opts.FrontendURL))
	r.Use(middleware.Compress(5))

	r.Method(http.MethodGet, "/metrics", opts.Telemetry.Handler())

	downloads := NewDownloadHandler(opts.Registry, opts.Store, opts.Catalog, opts.Telemetry, opts.Production)
	newsletter := NewNewsletterHandler(opts.Notifier, opts.Telemetry, opts.Production)
	api := responder{production: opts.Production}

	r.Route("/api", func(r chi.Router) {
		if opts.MaxBodySize > 0 {
			r.Use(middleware.RequestSize(opts.MaxBodySize))
		}

		r.Mount("/download", downloads.Routes())
		r.Mount("/newsletter", newsletter.Routes())

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			api.writeError(w, r, http.StatusNotFound, "Not found", nil)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			api.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		})
	})

	if opts.StaticDir != "" {
		r.Handle("/*", StaticHandler(opts.StaticDir))
	}

	return otelhttp.NewHandler(r, opts.ServiceName)
}
