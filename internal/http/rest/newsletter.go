package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wavesos/wavesos_web/internal/logctx"
	"github.com/wavesos/wavesos_web/internal/notifier"
	"github.com/wavesos/wavesos_web/internal/telemetry"
)

const notifyTimeout = 10 * time.Second

type SubscribeRequest struct {
	Email string `json:"email"`
}

type SubscribeResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type NewsletterHandler struct {
	notifier  notifier.Notifier
	telemetry *telemetry.Telemetry
	responder
}

// NewNewsletterHandler creates the newsletter signup handler. Subscriptions
// are not stored; they are logged and forwarded to n.
func NewNewsletterHandler(n notifier.Notifier, t *telemetry.Telemetry, production bool) *NewsletterHandler {
	if n == nil {
		n = notifier.Nop{}
	}

	return &NewsletterHandler{
		notifier:  n,
		telemetry: t,
		responder: responder{production: production},
	}
}

func (h *NewsletterHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/subscribe", h.HandleSubscribe)

	return r
}

// HandleSubscribe validates the email and acknowledges the subscription.
func (h *NewsletterHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logctx.LoggerFromContext(ctx)

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.telemetry.RecordSubscription("invalid")

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large", nil)

			return
		}

		logger.DebugContext(ctx, "failed to decode request", "err", err)
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)

		return
	}

	// The address is echoed and forwarded exactly as submitted.
	email := req.Email
	if email == "" || !strings.Contains(email, "@") {
		h.telemetry.RecordSubscription("invalid")
		h.writeError(w, r, http.StatusBadRequest, "Valid email address required", nil)

		return
	}

	logger.InfoContext(ctx, "newsletter subscription", "email", email)
	h.telemetry.RecordSubscription("success")

	go h.notify(context.WithoutCancel(ctx), email)

	h.writeJSON(w, r, http.StatusOK, SubscribeResponse{
		Message: "Successfully subscribed to newsletter",
		Email:   email,
	})
}

func (h *NewsletterHandler) notify(ctx context.Context, email string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := h.notifier.Notify(ctx, "New newsletter subscription: "+email); err != nil {
		logctx.LoggerFromContext(ctx).WarnContext(ctx, "failed to send subscription notification", "err", err)
		h.telemetry.RecordSystemError("notifier", "webhook")
	}
}
