package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/conversia/relay-server/internal/auth"
	"github.com/conversia/relay-server/internal/config"
	"github.com/conversia/relay-server/internal/relay"
	"github.com/conversia/relay-server/internal/store"
)

// NewServer builds the HTTP server: /ws plus the REST surface.
func NewServer(hub *relay.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg.EventBuffer, logger)))

	apiHandlers := NewAPIHandlers(authService, st, logger)
	adminHandlers := NewAdminHandlers(hub, logger)

	loginLimiter := newRateLimiter(cfg.LoginRateLimit)
	loginLimiter.startReset(make(chan struct{}))

	api := router.Group("/api")
	api.POST("/auth/login", func(c *gin.Context) {
		if !loginLimiter.allow() {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many login attempts"})
			c.Abort()
			return
		}
		apiHandlers.Login(c)
	})

	authed := api.Group("", AuthMiddleware(authService, logger))
	authed.GET("/rooms/:room/messages", apiHandlers.RoomHistory)

	admin := authed.Group("", RequireRole("admin"))
	admin.GET("/stats", adminHandlers.Stats)
	admin.GET("/clients", adminHandlers.Clients)
	admin.DELETE("/clients/:id", adminHandlers.ForceDisconnect)
	admin.POST("/agents", apiHandlers.CreateAgent)
	admin.POST("/notifications", adminHandlers.Notify)
	admin.POST("/rooms/:room/system", adminHandlers.SystemMessage)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
