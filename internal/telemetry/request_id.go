package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/wavesos/wavesos_web/internal/logctx"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds ids accepted from upstream proxies.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestID tags every request with an id: the upstream X-Request-ID when it
// is usable, a fresh uuid otherwise. The id is echoed in the response and
// added to the context logger as request_id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := upstreamRequestID(r)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = logctx.With(ctx, "request_id", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// upstreamRequestID returns the incoming id, or "" when it is too long or
// holds anything but printable ASCII. Such ids end up verbatim in logs.
func upstreamRequestID(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if len(id) > maxRequestIDLen {
		return ""
	}

	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}

	return id
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}
