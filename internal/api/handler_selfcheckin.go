package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/mw"
)

// IssueToken handles POST /api/tokens. Staff only; the token creator is
// recorded from the session for audit.
func (h *Handler) IssueToken(c *gin.Context) {
	var req hostel.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.lifecycle.Tokens.Issue(c.Request.Context(), req, c.GetString(mw.CtxActor))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

// selfCheckInForm is the prefill view shown to the guest. It deliberately
// omits internal token state.
type selfCheckInForm struct {
	CapsuleNumber        string `json:"capsuleNumber,omitempty"`
	AutoAssign           bool   `json:"autoAssign"`
	GuestName            string `json:"guestName,omitempty"`
	PhoneNumber          string `json:"phoneNumber,omitempty"`
	Email                string `json:"email,omitempty"`
	ExpectedCheckoutDate string `json:"expectedCheckoutDate,omitempty"`
}

// GetSelfCheckIn handles GET /api/self-checkin/:token. Public endpoint: a
// guest opens their link and receives the prefilled form.
func (h *Handler) GetSelfCheckIn(c *gin.Context) {
	record, err := h.lifecycle.Tokens.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, selfCheckInForm{
		CapsuleNumber:        record.CapsuleNumber,
		AutoAssign:           record.AutoAssign,
		GuestName:            record.GuestName,
		PhoneNumber:          record.PhoneNumber,
		Email:                record.Email,
		ExpectedCheckoutDate: record.ExpectedCheckoutDate,
	})
}

// PostSelfCheckIn handles POST /api/self-checkin/:token. Public endpoint:
// redeems the token and checks the guest in.
func (h *Handler) PostSelfCheckIn(c *gin.Context) {
	var req hostel.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guest, err := h.lifecycle.SelfCheckIn(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, guest)
}
