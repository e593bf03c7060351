package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Notify(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Notify(context.Background(), "New newsletter subscription: a@b.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"content": "New newsletter subscription: a@b.com"}, got)
}

func TestWebhookNotifier_Errors(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		err := NewWebhookNotifier("").Notify(context.Background(), "hi")
		require.ErrorIs(t, err, ErrNoWebhookURL)
	})

	t.Run("non 2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		err := NewWebhookNotifier(srv.URL).Notify(context.Background(), "hi")
		require.EqualError(t, err, "webhook failed with status 429")
	})

	t.Run("canceled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewWebhookNotifier(srv.URL).Notify(ctx, "hi")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestNop(t *testing.T) {
	require.NoError(t, Nop{}.Notify(context.Background(), "ignored"))
}
