package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"appliance-reserve-backend/internal/reserve"
	"appliance-reserve-backend/internal/status"
	"appliance-reserve-backend/internal/store"
)

// ListAppliances handles GET /api/appliances. It is also the pull
// fallback for observers that cannot hold an event stream: the response
// is the full derived state, computed with the same Derive the event
// producers use.
func (h *Handler) ListAppliances(c *gin.Context) {
	recs, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		abortWithMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, status.DeriveAll(recs, h.clock()))
}

type reserveRequest struct {
	DurationMinutes int `json:"durationMinutes" binding:"required"`
}

// ReserveAppliance handles POST /api/appliances/:id/reserve.
func (h *Handler) ReserveAppliance(c *gin.Context) {
	id, ok := applianceID(c)
	if !ok {
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "durationMinutes is required"})
		return
	}

	st, err := h.mutator.Reserve(c.Request.Context(), id, req.DurationMinutes)
	if err != nil {
		abortWithMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ReleaseAppliance handles POST /api/appliances/:id/release.
func (h *Handler) ReleaseAppliance(c *gin.Context) {
	id, ok := applianceID(c)
	if !ok {
		return
	}

	st, err := h.mutator.Release(c.Request.Context(), id)
	if err != nil {
		abortWithMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func applianceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid appliance ID"})
		return 0, false
	}
	return id, true
}

func abortWithMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reserve.ErrInvalidDuration):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, reserve.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
