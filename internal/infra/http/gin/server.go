package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	UpdateStatus(c *gin.Context)
	ListByGuest(c *gin.Context)
}

type PropertyHTTP interface {
	Bookings(c *gin.Context)
	Availability(c *gin.Context)
	Calendar(c *gin.Context)
}

type Handlers struct {
	Booking  BookingHTTP
	Property PropertyHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/status", h.Booking.UpdateStatus)
		api.GET("/guests/:id/bookings", h.Booking.ListByGuest)
	}
	if h.Property != nil {
		api.GET("/properties/:id/bookings", h.Property.Bookings)
		api.GET("/properties/:id/availability", h.Property.Availability)
		api.GET("/properties/:id/calendar", h.Property.Calendar)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
