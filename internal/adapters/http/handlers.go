package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/pulse/internal/adapters/rtc"
	"github.com/dkeye/pulse/internal/adapters/signal"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/config"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type SessionRequest struct {
	DisplayName string `json:"displayName"`
}

type SessionResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type StatusResponse struct {
	Connections   int     `json:"connections"`
	Rooms         int     `json:"rooms"`
	Calls         int     `json:"calls"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// sessionHandler stores the display name later used when the room websocket attaches.
func sessionHandler(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	name, err := domain.NormalizeDisplayName(req.DisplayName)
	if err != nil || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid displayName"})
		return
	}
	sess := sessions.Default(c)
	sess.Set(signal.DisplayNameKey, name)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not saved"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		UserID:      c.GetString(signal.ClientTokenKey),
		DisplayName: name,
	})
}

func statusHandler(hub *app.Hub, o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		var s orch.Status
		if err := hub.Do(ctx, func() { s = o.Status() }); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, StatusResponse{
			Connections:   s.Connections,
			Rooms:         s.Rooms,
			Calls:         s.Calls,
			UptimeSeconds: s.Uptime.Seconds(),
		})
	}
}

func iceServersHandler(cfg *config.Config) gin.HandlerFunc {
	conf := rtc.Configuration(cfg.ICEServers, cfg.TURNUsername, cfg.TURNCredential)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": conf.ICEServers})
	}
}

func metricsHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
