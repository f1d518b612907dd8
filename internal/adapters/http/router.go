package http

import (
	"context"

	"github.com/dkeye/pulse/internal/adapters/callsig"
	"github.com/dkeye/pulse/internal/adapters/signal"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware issues the ct cookie that serves as the user id of room connections.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

func newEngine(cfg *config.Config) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	return r
}

// SetupRouter builds the main application router serving the room protocol.
func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub, o *orch.Orchestrator, ctrl *signal.SignalWSController, gatherer prometheus.Gatherer) *gin.Engine {
	r := newEngine(cfg)

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PulseSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/health", healthHandler)
	r.GET("/metrics", metricsHandler(gatherer))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.POST("/session", sessionHandler)
	api.GET("/status", statusHandler(hub, o))
	api.GET("/ice-servers", iceServersHandler(cfg))
	api.GET("/ws/room", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("sid", c.GetString(signal.ClientTokenKey)).Msg("ws room endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

// SetupCallRouter builds the router of the standalone call-signaling service.
func SetupCallRouter(ctx context.Context, cfg *config.Config, hub *app.Hub, o *orch.Orchestrator, ctrl *callsig.Controller, gatherer prometheus.Gatherer) *gin.Engine {
	r := newEngine(cfg)

	r.GET("/health", healthHandler)
	r.GET("/metrics", metricsHandler(gatherer))
	r.GET("/status", statusHandler(hub, o))
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("call router setup")
	return r
}
