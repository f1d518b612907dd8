package app

import (
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

type registryEntry struct {
	conn   domain.Connection
	handle core.SignalConnection
}

// Registry maps user identities to their live transport handle and liveness timestamp.
// It is only touched from the Hub goroutine.
type Registry struct {
	now    core.Clock
	conns  map[domain.ConnID]*registryEntry
	byUser map[domain.UserID]domain.ConnID
}

func NewRegistry(now core.Clock) *Registry {
	if now == nil {
		now = core.SystemClock
	}
	return &Registry{
		now:    now,
		conns:  make(map[domain.ConnID]*registryEntry),
		byUser: make(map[domain.UserID]domain.ConnID),
	}
}

// Register binds user to the connection id. A user registered under another connection is
// overwritten (last writer wins); the old handle is left open and becomes an orphan that the
// sweeper reaps once it goes silent. Registering an existing connection id under a new user
// moves the identity and keeps room/call context.
func (r *Registry) Register(id domain.ConnID, user domain.User, h core.SignalConnection) *domain.Connection {
	now := r.now()
	e, ok := r.conns[id]
	if ok {
		if e.conn.UserID != user.ID && r.byUser[e.conn.UserID] == id {
			delete(r.byUser, e.conn.UserID)
		}
		e.conn.UserID = user.ID
		e.conn.DisplayName = user.DisplayName
		e.conn.LastSeenAt = now
		if h != nil {
			e.handle = h
		}
	} else {
		e = &registryEntry{
			conn: domain.Connection{
				ID:          id,
				UserID:      user.ID,
				DisplayName: user.DisplayName,
				LastSeenAt:  now,
			},
			handle: h,
		}
		r.conns[id] = e
	}

	if prev, ok := r.byUser[user.ID]; ok && prev != id {
		log.Info().Str("module", "app.registry").Str("user", string(user.ID)).Str("old_cid", string(prev)).Str("cid", string(id)).Msg("user re-registered, old connection orphaned")
	}
	r.byUser[user.ID] = id
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Str("user", string(user.ID)).Msg("registered")
	c := e.conn
	return &c
}

// Resolve returns the live handle of a user.
func (r *Registry) Resolve(uid domain.UserID) (core.SignalConnection, domain.ConnID, bool) {
	cid, ok := r.byUser[uid]
	if !ok {
		return nil, "", false
	}
	e, ok := r.conns[cid]
	if !ok || e.handle == nil {
		return nil, "", false
	}
	return e.handle, cid, true
}

// Handle returns the handle of a specific connection.
func (r *Registry) Handle(id domain.ConnID) (core.SignalConnection, bool) {
	e, ok := r.conns[id]
	if !ok || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// Lookup returns a copy of the connection record.
func (r *Registry) Lookup(id domain.ConnID) (domain.Connection, bool) {
	e, ok := r.conns[id]
	if !ok {
		return domain.Connection{}, false
	}
	return e.conn, true
}

// IsLive reports whether id is the connection its user currently resolves to.
func (r *Registry) IsLive(id domain.ConnID) bool {
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	return r.byUser[e.conn.UserID] == id
}

func (r *Registry) Touch(id domain.ConnID) {
	if e, ok := r.conns[id]; ok {
		e.conn.LastSeenAt = r.now()
	}
}

func (r *Registry) SetRoom(id domain.ConnID, room domain.RoomID) {
	if e, ok := r.conns[id]; ok {
		e.conn.RoomID = room
	}
}

func (r *Registry) SetCall(id domain.ConnID, call domain.CallID) {
	if e, ok := r.conns[id]; ok {
		e.conn.CallID = call
	}
}

// ClearCall drops the call association of every connection that still points at call.
func (r *Registry) ClearCall(call domain.CallID) {
	for _, e := range r.conns {
		if e.conn.CallID == call {
			e.conn.CallID = ""
		}
	}
}

// Unregister removes the connection and returns its last record so the caller can cascade
// cleanup into rooms and calls. The user mapping is only dropped if it still points here.
func (r *Registry) Unregister(id domain.ConnID) (domain.Connection, bool) {
	e, ok := r.conns[id]
	if !ok {
		return domain.Connection{}, false
	}
	delete(r.conns, id)
	if r.byUser[e.conn.UserID] == id {
		delete(r.byUser, e.conn.UserID)
	}
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Str("user", string(e.conn.UserID)).Msg("unregistered")
	return e.conn, true
}

// Stale lists connections not seen since cutoff.
func (r *Registry) Stale(cutoff time.Time) []domain.ConnID {
	var out []domain.ConnID
	for id, e := range r.conns {
		if e.conn.LastSeenAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// Count is the number of registered connections, orphans included.
func (r *Registry) Count() int {
	return len(r.conns)
}
