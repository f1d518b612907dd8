package orch

import (
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

// Identify re-registers cid when a room request carries its own identity.
// An empty user id keeps the current one and only renames.
func (o *Orchestrator) Identify(cid domain.ConnID, user *domain.User) error {
	if user == nil {
		return nil
	}
	conn, ok := o.Registry.Lookup(cid)
	if !ok {
		return domain.Validation("connection is not registered")
	}
	if user.ID == "" {
		user.ID = conn.UserID
	}
	if user.DisplayName == "" {
		user.DisplayName = conn.DisplayName
		if user.ID != conn.UserID {
			user.DisplayName = string(user.ID)
		}
	}
	if conn.UserID == user.ID && conn.DisplayName == user.DisplayName {
		return nil
	}
	o.Attach(cid, *user, nil)
	return nil
}

func (o *Orchestrator) CreateRoom(cid domain.ConnID, user *domain.User, title string) (domain.RoomID, error) {
	if err := o.Identify(cid, user); err != nil {
		return "", err
	}
	id, err := o.Rooms.CreateRoom(cid, title)
	if err != nil {
		return "", err
	}
	o.syncGauges()
	return id, nil
}

func (o *Orchestrator) JoinRoom(cid domain.ConnID, user *domain.User, id domain.RoomID) error {
	if err := o.Identify(cid, user); err != nil {
		return err
	}
	if err := o.Rooms.JoinRoom(id, cid); err != nil {
		return err
	}
	o.syncGauges()
	return nil
}

func (o *Orchestrator) LeaveRoom(cid domain.ConnID, id domain.RoomID) error {
	if err := o.Rooms.LeaveRoom(id, cid); err != nil {
		return err
	}
	o.syncGauges()
	return nil
}

// EvictRoom closes a room on operator request, notifying every member.
func (o *Orchestrator) EvictRoom(id domain.RoomID, reason string) {
	if _, ok := o.Rooms.GetRoom(id); !ok {
		return
	}
	o.Rooms.CloseRoom(id, reason)
	o.syncGauges()
	log.Info().Str("module", "orch").Str("room", string(id)).Str("reason", reason).Msg("room evicted")
}
