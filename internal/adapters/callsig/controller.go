// Package callsig serves the standalone 1:1 call-signaling protocol over websocket.
package callsig

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dkeye/pulse/internal/adapters/ws"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/dkeye/pulse/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const protocol = "call"

// client is the per-connection state. It is only read or written on the Hub goroutine.
type client struct {
	cid        domain.ConnID
	conn       *ws.Conn
	info       json.RawMessage
	registered bool
}

type Controller struct {
	Hub     *app.Hub
	Orch    *orch.Orchestrator
	Metrics *metrics.Metrics
	Gate    *ws.Gate
	Options ws.Options
}

func NewController(hub *app.Hub, o *orch.Orchestrator, m *metrics.Metrics, gate *ws.Gate, opts ws.Options) *Controller {
	return &Controller{Hub: hub, Orch: o, Metrics: m, Gate: gate, Options: opts}
}

// HandleWS upgrades the request. The connection stays anonymous until it sends register.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	if !ctl.Gate.Acquire() {
		log.Warn().Str("module", "callsig").Int("in_use", ctl.Gate.InUse()).Msg("connection limit reached")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server at capacity, please try again later"})
		return
	}
	wsConn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.Gate.Release()
		log.Error().Err(err).Str("module", "callsig").Msg("ws upgrade")
		return
	}

	cl := &client{
		cid:  domain.ConnID(uuid.NewString()),
		conn: ws.NewConn(wsConn, ctl.Options),
	}
	log.Info().Str("module", "callsig").Str("cid", string(cl.cid)).Msg("new WS connection")

	go func() {
		defer ctl.Gate.Release()
		cl.conn.Serve(ctx,
			func(data []byte) { ctl.handleMessage(cl, data) },
			func() { ctl.Hub.Post(func() { ctl.Orch.Touch(cl.cid) }) },
		)
		ctl.Hub.Post(func() { ctl.Orch.Disconnect(cl.cid, "closed") })
	}()
}
