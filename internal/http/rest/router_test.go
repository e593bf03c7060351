package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavesos/wavesos_web/internal/artifact"
	"github.com/wavesos/wavesos_web/internal/notifier"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/storage/memory"
	"github.com/wavesos/wavesos_web/internal/telemetry"
)

// testServer wires the router the way main does, against a temp artifacts dir.
type testServer struct {
	handler  http.Handler
	registry storage.Registry
	dir      string
}

type serverOption func(*RouterOptions)

func withProduction(frontendURL string) serverOption {
	return func(o *RouterOptions) {
		o.Production = true
		o.FrontendURL = frontendURL
	}
}

func withRegistry(r storage.Registry) serverOption {
	return func(o *RouterOptions) { o.Registry = r }
}

func withNotifier(n notifier.Notifier) serverOption {
	return func(o *RouterOptions) { o.Notifier = n }
}

func withMaxBodySize(n int64) serverOption {
	return func(o *RouterOptions) { o.MaxBodySize = n }
}

func withStaticDir(dir string) serverOption {
	return func(o *RouterOptions) { o.StaticDir = dir }
}

func newTestServer(t *testing.T, options ...serverOption) *testServer {
	t.Helper()

	tel, err := telemetry.New(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)

	dir := t.TempDir()
	catalog := artifact.DefaultCatalog()

	opts := RouterOptions{
		Registry:    memory.NewRegistry(catalog.Seeds()...),
		Store:       artifact.NewStore(dir, 0),
		Catalog:     catalog,
		Notifier:    notifier.Nop{},
		Telemetry:   tel,
		MaxBodySize: 10 << 20,
	}

	for _, o := range options {
		o(&opts)
	}

	return &testServer{
		handler:  NewRouter(opts),
		registry: opts.Registry,
		dir:      dir,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) place(t *testing.T, filename, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, filename), []byte(content), 0o644))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

// failingRegistry fails every operation.
type failingRegistry struct {
	err error
}

func (f failingRegistry) GetDownload(context.Context, string) (storage.DownloadRecord, error) {
	return storage.DownloadRecord{}, f.err
}

func (f failingRegistry) CreateDownload(context.Context, storage.NewDownload) (storage.DownloadRecord, error) {
	return storage.DownloadRecord{}, f.err
}

func (f failingRegistry) IncrementDownload(context.Context, string, storage.FileType) (storage.DownloadRecord, error) {
	return storage.DownloadRecord{}, f.err
}

func (f failingRegistry) GetDownloadStats(context.Context) (storage.Stats, error) {
	return storage.Stats{}, f.err
}

func TestRouter_UnknownAPIRouteIsJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.get(t, "/api/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Not found", decode[ErrorResponse](t, rec).Message)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	rec := s.get(t, "/api/download/stats")
	assert.NotEmpty(t, rec.Header().Get(telemetry.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/download/stats", nil)
	req.Header.Set(telemetry.RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", s.do(t, req).Header().Get(telemetry.RequestIDHeader))
}

func TestRouter_SecurityHeaders(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		rec := newTestServer(t).get(t, "/api/download/stats")

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("production", func(t *testing.T) {
		rec := newTestServer(t, withProduction("")).get(t, "/api/download/stats")

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	})
}

func TestRouter_CORS(t *testing.T) {
	tests := []struct {
		name       string
		options    []serverOption
		origin     string
		wantOrigin string
	}{
		{
			name:       "development allows any origin",
			origin:     "http://localhost:3000",
			wantOrigin: "http://localhost:3000",
		},
		{
			name:       "production allows the frontend",
			options:    []serverOption{withProduction("https://wavesos.example")},
			origin:     "https://wavesos.example",
			wantOrigin: "https://wavesos.example",
		},
		{
			name:    "production rejects other origins",
			options: []serverOption{withProduction("https://wavesos.example")},
			origin:  "https://elsewhere.example",
		},
		{
			name:    "production without frontend rejects everything",
			options: []serverOption{withProduction("")},
			origin:  "https://wavesos.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.options...)

			req := httptest.NewRequest(http.MethodGet, "/api/download/stats", nil)
			req.Header.Set("Origin", tt.origin)

			rec := s.do(t, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	rec := newTestServer(t).get(t, "/metrics")

	// Telemetry is disabled in tests.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RecoversPanics(t *testing.T) {
	s := newTestServer(t, withRegistry(panickingRegistry{}))

	rec := s.get(t, "/api/download/stats")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panickingRegistry struct {
	failingRegistry
}

func (panickingRegistry) GetDownloadStats(context.Context) (storage.Stats, error) {
	panic("registry exploded")
}

func TestRouter_StaticSite(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>wavesos</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('waves')"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(static, "assets"), 0o755))

	s := newTestServer(t, withStaticDir(static))

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/", "<html>wavesos</html>"},
		{"/app.js", "console.log('waves')"},
		{"/download/ultra", "<html>wavesos</html>"},
		{"/assets", "<html>wavesos</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.get(t, tt.path)

			assert.Equal(t, http.StatusOK, rec.Code)

			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(string(body)))
		})
	}

	// The API keeps its JSON 404 even with the static site mounted.
	rec := s.get(t, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRouter_NoStaticSite(t *testing.T) {
	rec := newTestServer(t).get(t, "/")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

var errBackend = errors.New("database is locked")
