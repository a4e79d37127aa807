package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/mw"
	"capsule-hostel-backend/internal/store"
)

// CheckInGuest handles POST /api/guests/checkin. The payment collector
// defaults to the authenticated staff actor when the client omits it.
func (h *Handler) CheckInGuest(c *gin.Context) {
	var req hostel.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PaymentCollector == "" {
		req.PaymentCollector = c.GetString(mw.CtxActor)
	}

	guest, err := h.lifecycle.CheckIn(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, guest)
}

// CheckOutGuest handles POST /api/guests/:id/checkout.
func (h *Handler) CheckOutGuest(c *gin.Context) {
	result, err := h.lifecycle.CheckOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateGuest handles PATCH /api/guests/:id.
func (h *Handler) UpdateGuest(c *gin.Context) {
	var req hostel.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, err := h.lifecycle.Ledger.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, guest)
}

// ListCheckedInGuests handles GET /api/guests/checked-in.
func (h *Handler) ListCheckedInGuests(c *gin.Context) {
	guests, err := h.lifecycle.Ledger.CheckedIn(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, guests)
}

// ListGuestHistory handles GET /api/guests/history?page=1&limit=20.
func (h *Handler) ListGuestHistory(c *gin.Context) {
	page := store.Page{}
	page.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	page.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.lifecycle.Ledger.History(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListDueCheckouts handles GET /api/guests/due-today.
func (h *Handler) ListDueCheckouts(c *gin.Context) {
	guests, err := h.lifecycle.Ledger.DueToday(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, guests)
}
