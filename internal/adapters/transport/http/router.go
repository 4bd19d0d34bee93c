package http

import (
	nethttp "net/http"
	"time"

	"github.com/Miraines/AquaTrack/auth-service/internal/adapters/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(h.log))
	router.Use(middleware.Metrics(h.metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins: h.cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: h.cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	auth := router.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/refresh", h.Refresh)
	auth.GET("/google", h.GoogleRedirect)
	auth.GET("/google/callback", h.GoogleCallback)
	auth.POST("/google", h.GoogleLogin)

	users := router.Group("/users", middleware.RequireUser(h.auth, h.writeError))
	users.GET("/current", h.CurrentUser)
	users.PATCH("/current", h.UpdateCurrentUser)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(nethttp.StatusNotFound, gin.H{"status": nethttp.StatusNotFound, "message": "Route not found"})
	})

	return router
}
