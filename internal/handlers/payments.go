package handlers

import (
	"io"
	"net/http"

	"busline/internal/models"

	"github.com/gin-gonic/gin"
)

// PaymentKey - GET /api/payments/key/:orderID
// Regenerates the client payment token for a pending order.
func (h *Handlers) PaymentKey(c *gin.Context) {
	user, ok := currentUserOrAbort(c)
	if !ok {
		return
	}

	resp, err := h.services.Bookings.PaymentKeyForOrder(c.Request.Context(), c.Param("orderID"), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PaymentProcessed - GET|POST /api/payments/processed
// Server-to-server webhook from the payment provider.
func (h *Handlers) PaymentProcessed(c *gin.Context) {
	cb, err := parseCallback(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	if err := h.services.Payments.HandleCallback(c.Request.Context(), cb); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// PaymentResponse - GET|POST /api/payments/response
// Browser redirect back from the payment page. Same reconciliation as the
// webhook; whichever lands first settles the booking.
func (h *Handlers) PaymentResponse(c *gin.Context) {
	cb, err := parseCallback(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	if err := h.services.Payments.HandleCallback(c.Request.Context(), cb); err != nil {
		respondError(c, err)
		return
	}

	if cb.Success {
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "payment received, booking confirmed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "failed", "message": "payment failed, booking cancelled"})
}

// parseCallback accepts both provider delivery shapes: query parameters on
// redirects and a JSON body (optionally wrapped in "obj") on webhooks.
func parseCallback(c *gin.Context) (*models.PaymentCallback, error) {
	if c.Request.Method == http.MethodGet || c.Request.ContentLength == 0 {
		return models.ParseCallbackQuery(c.Request.URL.Query()), nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	return models.ParseCallbackJSON(body)
}
