package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetBooking - GET /api/bookings/:id
// Accepts a numeric booking id or a payment order id.
func (h *Handlers) GetBooking(c *gin.Context) {
	user, ok := currentUserOrAbort(c)
	if !ok {
		return
	}

	booking, err := h.services.Bookings.Get(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking - POST /api/bookings/:id/cancel
// Admin-only. Cancelling an already settled booking returns its current state.
func (h *Handlers) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.services.Bookings.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Sweep - POST /api/sweep
// Admin-only on-demand expiry pass, same code path as the background sweeper.
func (h *Handlers) Sweep(c *gin.Context) {
	cancelled, err := h.services.Sweeper.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}
