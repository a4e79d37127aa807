package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"capsule-hostel-backend/internal/mw"
)

// RouterConfig carries the knobs the router needs from the app config.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	AllowedOrigins  []string
	JWTSecret       []byte
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
		r.Use(cors.New(corsCfg))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public endpoints. The self-check-in pair is the only
		// unauthenticated write surface, which is why the whole group is
		// rate limited per IP.
		api.POST("/auth/login", handler.Login)
		api.GET("/self-checkin/:token", handler.GetSelfCheckIn)
		api.POST("/self-checkin/:token", handler.PostSelfCheckIn)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		staff := api.Group("")
		staff.Use(mw.StaffAuth(cfg.JWTSecret))
		{
			staff.GET("/capsules", handler.ListCapsules)
			staff.GET("/capsules/available", handler.ListAvailableCapsules)
			staff.POST("/capsules/:number/cleaned", handler.MarkCapsuleCleaned)

			staff.POST("/guests/checkin", handler.CheckInGuest)
			staff.POST("/guests/:id/checkout", handler.CheckOutGuest)
			staff.PATCH("/guests/:id", handler.UpdateGuest)
			staff.GET("/guests/checked-in", handler.ListCheckedInGuests)
			staff.GET("/guests/history", handler.ListGuestHistory)
			staff.GET("/guests/due-today", handler.ListDueCheckouts)

			staff.POST("/tokens", handler.IssueToken)

			// Occupancy feeds dashboards that poll; worth the short cache.
			staff.GET("/occupancy", caching, handler.GetOccupancy)

			staff.PUT("/subscriptions", handler.PutSubscription)
			staff.DELETE("/subscriptions", handler.DeleteSubscription)

			admin := staff.Group("")
			admin.Use(mw.RequireAdmin())
			{
				admin.POST("/capsules", handler.CreateCapsule)
				admin.POST("/staff", handler.CreateStaff)
			}
		}
	}

	return r
}
