package rest

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
)

const productionCSP = "default-src 'self'; base-uri 'self'; font-src 'self' https: data:; " +
	"form-action 'self'; frame-ancestors 'self'; img-src 'self' data:; object-src 'none'; " +
	"script-src 'self'; script-src-attr 'none'; style-src 'self' https: 'unsafe-inline'; " +
	"upgrade-insecure-requests"

// SecurityHeaders sets the usual hardening headers. The content security
// policy and HSTS are only sent in production, where the dev server's inline
// scripts are not in play.
func SecurityHeaders(production bool) func(http.Handler) http.Handler {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !production,
	}

	if production {
		opts.ContentSecurityPolicy = productionCSP
		opts.STSSeconds = 15552000
		opts.STSIncludeSubdomains = true
	}

	return secure.New(opts).Handler
}

// CORS allows any origin in development. In production only frontendURL is
// allowed, and no origin at all when it is empty.
func CORS(production bool, frontendURL string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}

	switch {
	case !production:
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	case frontendURL != "":
		opts.AllowedOrigins = []string{frontendURL}
	default:
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
	}

	return cors.Handler(opts)
}
