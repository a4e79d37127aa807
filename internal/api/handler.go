package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	lifecycle *hostel.Lifecycle
	store     store.Store
	webpush   *webpush.Options
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(lifecycle *hostel.Lifecycle, s store.Store, webpushOptions *webpush.Options, jwtSecret []byte, tokenTTL time.Duration) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		store:     s,
		webpush:   webpushOptions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// fail writes the error with the status matching its place in the taxonomy.
// Validation and not-found errors carry enough detail to fix the input;
// token errors stay generic.
func fail(c *gin.Context, err error) {
	var validation *hostel.ValidationError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.Is(err, hostel.ErrTokenInvalid):
		c.JSON(http.StatusGone, gin.H{"error": "this check-in link is invalid or has expired"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCapsuleUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
