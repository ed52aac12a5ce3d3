package handlers

import (
	"net/http"
	"strconv"

	"busline/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateTrip - POST /api/trips
// Operator schedules a new trip with a fresh seat map.
func (h *Handlers) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.services.Trips.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSeats - GET /api/trips/:id/seats
// Advisory seat snapshot for display.
func (h *Handlers) GetSeats(c *gin.Context) {
	tripID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	snap, err := h.services.Trips.Snapshot(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CreateHold - POST /api/trips/:id/hold
func (h *Handlers) CreateHold(c *gin.Context) {
	user, ok := currentUserOrAbort(c)
	if !ok {
		return
	}
	tripID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	var req models.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.services.Holds.Create(c.Request.Context(), tripID, user, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ConfirmHold - POST /api/trips/:id/confirm/:token
// Commits the held seats into a durable booking.
func (h *Handlers) ConfirmHold(c *gin.Context) {
	user, ok := currentUserOrAbort(c)
	if !ok {
		return
	}
	tripID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	resp, err := h.services.Bookings.ConfirmHold(c.Request.Context(), tripID, c.Param("token"), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
