package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/mw"
)

// ListCapsules handles GET /api/capsules.
func (h *Handler) ListCapsules(c *gin.Context) {
	capsules, err := h.lifecycle.Registry.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, capsules)
}

// ListAvailableCapsules handles GET /api/capsules/available.
func (h *Handler) ListAvailableCapsules(c *gin.Context) {
	capsules, err := h.lifecycle.Registry.Available(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, capsules)
}

// CreateCapsule handles POST /api/capsules. Admin only.
func (h *Handler) CreateCapsule(c *gin.Context) {
	var req hostel.CreateCapsuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capsule, err := h.lifecycle.Registry.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, capsule)
}

// MarkCapsuleCleaned handles POST /api/capsules/:number/cleaned. The cleaning
// actor comes from the authenticated session.
func (h *Handler) MarkCapsuleCleaned(c *gin.Context) {
	number := c.Param("number")
	actor := c.GetString(mw.CtxActor)

	if err := h.lifecycle.Registry.MarkCleaned(c.Request.Context(), number, actor); err != nil {
		fail(c, err)
		return
	}

	capsule, err := h.lifecycle.Registry.Get(c.Request.Context(), number)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, capsule)
}

// GetOccupancy handles GET /api/occupancy.
func (h *Handler) GetOccupancy(c *gin.Context) {
	snapshot, err := h.lifecycle.Occupancy.Snapshot(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
