package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/payments"
)

// CreateCheckout starts a gateway checkout session for an existing order and
// returns the URL the customer should be redirected to.
func CreateCheckout(rec *payments.Reconciler, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/checkout"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Query("order_id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order_id")
			return
		}

		origin := strings.TrimRight(strings.TrimSpace(c.Query("origin_url")), "/")
		if origin == "" {
			origin = baseURL
		}

		sess, err := rec.CreateCheckout(c.Request.Context(), orderID, origin)
		switch {
		case errors.Is(err, payments.ErrOrderNotFound):
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		case errors.Is(err, payments.ErrOrderAlreadyPaid):
			respondWithError(c, http.StatusBadRequest, route, "order already paid")
			return
		case err != nil:
			var gwErr *payments.GatewayError
			if errors.As(err, &gwErr) {
				respondWithError(c, http.StatusBadGateway, route, "payment gateway error")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"checkout_url": sess.RedirectURL,
			"session_id":   sess.SessionID,
		})
	}
}

// PaymentStatus returns the gateway's live view of a session; a paid report
// triggers the settlement side effect.
func PaymentStatus(rec *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payments/status/:session_id"
		defer handlePanic(c, route)

		sessionID := strings.TrimSpace(c.Param("session_id"))
		if sessionID == "" {
			respondWithError(c, http.StatusBadRequest, route, "session_id is required")
			return
		}

		status, err := rec.PollStatus(c.Request.Context(), sessionID)
		switch {
		case errors.Is(err, payments.ErrSessionNotFound):
			respondWithError(c, http.StatusNotFound, route, "payment session not found")
			return
		case err != nil:
			var gwErr *payments.GatewayError
			if errors.As(err, &gwErr) {
				respondWithError(c, http.StatusBadGateway, route, "payment gateway error")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         status.Status,
			"payment_status": status.PaymentStatus,
			"amount_total":   status.AmountTotal,
			"currency":       status.Currency,
		})
	}
}

// StripeWebhook receives gateway-initiated payment notifications. A bad
// signature is rejected; once the signature has been verified, processing
// errors are logged and acknowledged so the idempotent settlement can catch
// up through redelivery or polling.
func StripeWebhook(rec *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhook/stripe"
		defer handlePanic(c, route)

		payload, err := c.GetRawData()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "could not read body")
			return
		}

		err = rec.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		if errors.Is(err, payments.ErrInvalidSignature) {
			respondWithError(c, http.StatusBadRequest, route, "invalid signature")
			return
		}
		if err != nil {
			zap.L().Error("webhook processing failed", zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}
