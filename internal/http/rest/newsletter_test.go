package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

// recordingNotifier captures notifications on a channel.
type recordingNotifier struct {
	sent chan string
	err  error
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{sent: make(chan string, 1), err: err}
}

func (n *recordingNotifier) Notify(ctx context.Context, content string) error {
	n.sent <- content

	return n.err
}

func TestHandleSubscribe(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing at sign",
			body:        `{"email":"not-an-email"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Valid email address required",
		},
		{
			name:        "empty email",
			body:        `{"email":"   "}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Valid email address required",
		},
		{
			name:        "no email field",
			body:        `{}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Valid email address required",
		},
		{
			name:        "malformed json",
			body:        `{"email":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", tt.body))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode[ErrorResponse](t, rec).Message)
		})
	}
}

func TestHandleSubscribe_Success(t *testing.T) {
	n := newRecordingNotifier(nil)
	s := newTestServer(t, withNotifier(n))

	rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", `{"email":"a@b.com"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, SubscribeResponse{
		Message: "Successfully subscribed to newsletter",
		Email:   "a@b.com",
	}, decode[SubscribeResponse](t, rec))

	select {
	case content := <-n.sent:
		assert.Equal(t, "New newsletter subscription: a@b.com", content)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
	}
}

func TestHandleSubscribe_NotifierFailureIsNotFatal(t *testing.T) {
	n := newRecordingNotifier(errors.New("webhook returned 500"))
	s := newTestServer(t, withNotifier(n))

	rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", `{"email":"a@b.com"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-n.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not attempted")
	}
}

func TestHandleSubscribe_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, withMaxBodySize(64))

	body := `{"email":"` + strings.Repeat("a", 128) + `@b.com"}`
	rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", body))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", decode[ErrorResponse](t, rec).Message)
}

func TestHandleSubscribe_InvalidDoesNotNotify(t *testing.T) {
	n := newRecordingNotifier(nil)
	s := newTestServer(t, withNotifier(n))

	rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", `{"email":"nope"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	select {
	case content := <-n.sent:
		t.Fatalf("unexpected notification %q", content)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleSubscribe_EchoesEmailAsSubmitted(t *testing.T) {
	n := newRecordingNotifier(nil)
	s := newTestServer(t, withNotifier(n))

	rec := s.do(t, newRequest(http.MethodPost, "/api/newsletter/subscribe", `{"email":"  Waves@B.com "}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "  Waves@B.com ", decode[SubscribeResponse](t, rec).Email)

	select {
	case content := <-n.sent:
		assert.Equal(t, "New newsletter subscription:   Waves@B.com ", content)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
	}
}
