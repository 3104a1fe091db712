// Package stripewebhooks receives billing provider events and hands them to
// the lifecycle reconciler.
package stripewebhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/infra/stripe"
	"crm-entitlements/internal/logging"
)

const maxBodyBytes = 65536

type Reconciler interface {
	Reconcile(ctx context.Context, ev lifecycle.Event) lifecycle.Outcome
}

type Handler struct {
	verifier   *stripe.Verifier
	reconciler Reconciler
}

func NewHandler(verifier *stripe.Verifier, reconciler Reconciler) *Handler {
	return &Handler{verifier: verifier, reconciler: reconciler}
}

// StripeWebhook verifies the signature, then reconciles. Every verified
// event is acknowledged with 200, so the provider does not redeliver it.
// An event whose reconcile failed is logged and left unmarked in the ledger;
// only a manual resend from the provider dashboard applies it again.
func (h *Handler) StripeWebhook(c *gin.Context) {
	l := logging.FromContext(c.Request.Context())

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "error reading request body"})
		return
	}

	raw, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		l.Warn().Err(err).Msg("stripe webhook rejected")
		apperr.Write(c, err)
		return
	}

	ev, err := stripe.TranslateEvent(raw)
	if err != nil {
		l.Error().Err(err).Str("event_id", raw.ID).Str("kind", string(raw.Type)).Msg("undecodable stripe event")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	outcome := h.reconciler.Reconcile(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": outcome})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
