// Package signal serves the room/session protocol over websocket.
package signal

import (
	"context"
	"net/http"

	"github.com/dkeye/pulse/internal/adapters/ws"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/dkeye/pulse/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ClientTokenKey = "client_token"
	DisplayNameKey = "display_name"
)

type SignalWSController struct {
	Hub     *app.Hub
	Orch    *orch.Orchestrator
	Metrics *metrics.Metrics
	Gate    *ws.Gate
	Limiter *RoomRateLimiter
	Options ws.Options
}

func NewSignalWSController(hub *app.Hub, o *orch.Orchestrator, m *metrics.Metrics, gate *ws.Gate, limiter *RoomRateLimiter, opts ws.Options) *SignalWSController {
	return &SignalWSController{
		Hub:     hub,
		Orch:    o,
		Metrics: m,
		Gate:    gate,
		Limiter: limiter,
		Options: opts,
	}
}

// HandleSignal upgrades the request and registers the connection under the session identity.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user, err := sessionUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if !ctl.Gate.Acquire() {
		log.Warn().Str("module", "signal").Int("in_use", ctl.Gate.InUse()).Msg("connection limit reached")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server at capacity, please try again later"})
		return
	}

	wsConn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.Gate.Release()
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := domain.ConnID(uuid.NewString())
	conn := ws.NewConn(wsConn, ctl.Options)
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("user", string(user.ID)).Msg("new WS connection")

	if !ctl.Hub.Post(func() { ctl.Orch.Attach(cid, user, conn) }) {
		conn.Close()
		ctl.Gate.Release()
		return
	}

	go func() {
		defer ctl.Gate.Release()
		conn.Serve(ctx,
			func(data []byte) { ctl.handleSignal(cid, conn, data) },
			func() { ctl.Hub.Post(func() { ctl.Orch.Touch(cid) }) },
		)
		ctl.Hub.Post(func() { ctl.Orch.Disconnect(cid, "closed") })
	}()
}

// sessionUser reads the identity the HTTP layer attached: the client token is the user id,
// the display name comes from the cookie session or the name query parameter.
func sessionUser(c *gin.Context) (domain.User, error) {
	token := c.GetString(ClientTokenKey)
	name := c.Query("name")
	if v, ok := sessions.Default(c).Get(DisplayNameKey).(string); ok && v != "" {
		name = v
	}
	user, err := domain.NewUser(token, name)
	if err != nil && token != "" {
		return domain.NewUser(token, "")
	}
	return user, err
}
