package orch

import (
	"time"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/dkeye/pulse/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator ties connection lifecycle to the managers. Rooms or Calls may be nil when the
// process serves only one protocol. Every method must run on the Hub goroutine.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Calls    *app.CallManager
	Relay    *app.Relay
	Metrics  *metrics.Metrics
	Now      core.Clock

	startedAt time.Time
}

func New(reg *app.Registry, relay *app.Relay, rooms *app.RoomManager, calls *app.CallManager, m *metrics.Metrics, now core.Clock) *Orchestrator {
	if now == nil {
		now = core.SystemClock
	}
	return &Orchestrator{
		Registry:  reg,
		Rooms:     rooms,
		Calls:     calls,
		Relay:     relay,
		Metrics:   m,
		Now:       now,
		startedAt: now(),
	}
}

// Attach registers a connection under the identity supplied by the session layer. Re-attaching
// an existing connection as another user first releases what it held for the previous one.
func (o *Orchestrator) Attach(cid domain.ConnID, user domain.User, h core.SignalConnection) *domain.Connection {
	if conn, ok := o.Registry.Lookup(cid); ok && conn.UserID != user.ID {
		o.releaseIdentity(cid, conn)
	}
	c := o.Registry.Register(cid, user, h)
	o.syncGauges()
	return c
}

func (o *Orchestrator) Touch(cid domain.ConnID) {
	o.Registry.Touch(cid)
}

// Disconnect unregisters cid after cascading into its room and, when it is still the user's
// live connection, into the user's calls. Unknown ids are ignored.
func (o *Orchestrator) Disconnect(cid domain.ConnID, reason string) {
	conn, ok := o.Registry.Lookup(cid)
	if !ok {
		return
	}
	live := o.Registry.IsLive(cid)
	if o.Rooms != nil && conn.RoomID != "" {
		if err := o.Rooms.LeaveRoom(conn.RoomID, cid); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("cid", string(cid)).Msg("leave on disconnect")
		}
	}
	if o.Calls != nil && live {
		o.Calls.OnDisconnect(conn.UserID)
	}
	o.Registry.Unregister(cid)
	o.syncGauges()
	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("user", string(conn.UserID)).Str("reason", reason).Bool("orphan", !live).Msg("disconnected")
}

// releaseIdentity leaves the room of conn and, when cid is the user's live connection, ends
// the user's calls.
func (o *Orchestrator) releaseIdentity(cid domain.ConnID, conn domain.Connection) {
	if o.Rooms != nil && conn.RoomID != "" {
		if err := o.Rooms.LeaveRoom(conn.RoomID, cid); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("cid", string(cid)).Msg("leave on identity switch")
		}
	}
	if o.Calls != nil && o.Registry.IsLive(cid) {
		o.Calls.OnDisconnect(conn.UserID)
	}
	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("user", string(conn.UserID)).Msg("identity released")
}

// KickByCID closes the transport and runs the disconnect cascade right away.
func (o *Orchestrator) KickByCID(cid domain.ConnID, reason string) {
	if h, ok := o.Registry.Handle(cid); ok {
		h.Close()
	}
	o.Disconnect(cid, reason)
}

type Status struct {
	Connections int           `json:"connections"`
	Rooms       int           `json:"rooms"`
	Calls       int           `json:"calls"`
	Uptime      time.Duration `json:"-"`
}

func (o *Orchestrator) Status() Status {
	s := Status{
		Connections: o.Registry.Count(),
		Uptime:      o.Now().Sub(o.startedAt),
	}
	if o.Rooms != nil {
		s.Rooms = o.Rooms.Count()
	}
	if o.Calls != nil {
		s.Calls = o.Calls.Count()
	}
	return s
}

func (o *Orchestrator) syncGauges() {
	s := o.Status()
	o.Metrics.SetCounts(s.Connections, s.Rooms, s.Calls)
}
