package signal

import (
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCreate(cid domain.ConnID, data []byte) error {
	var p struct {
		identityPayload
		Title string `json:"title"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	user, err := p.user()
	if err != nil {
		return err
	}
	id, err := ctl.Orch.CreateRoom(cid, user, p.Title)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", string(id)).Msg("create")
	return nil
}

func (ctl *SignalWSController) handleJoin(cid domain.ConnID, data []byte) error {
	var p struct {
		identityPayload
		RoomID string `json:"roomId"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return domain.Validation("roomId is required")
	}
	user, err := p.user()
	if err != nil {
		return err
	}
	id := domain.NormalizeRoomCode(p.RoomID)
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", string(id)).Msg("join")
	return ctl.Orch.JoinRoom(cid, user, id)
}

// handleLeave leaves the given room, or the current one when roomId is omitted.
// The connection itself stays open.
func (ctl *SignalWSController) handleLeave(cid domain.ConnID, data []byte) error {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	id := domain.NormalizeRoomCode(p.RoomID)
	if p.RoomID == "" {
		conn, _ := ctl.Orch.Registry.Lookup(cid)
		if conn.RoomID == "" {
			return domain.Validation("not in a room")
		}
		id = conn.RoomID
	}
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", string(id)).Msg("leave")
	return ctl.Orch.LeaveRoom(cid, id)
}

func (ctl *SignalWSController) handleChat(cid domain.ConnID, data []byte) error {
	var p struct {
		RoomID string `json:"roomId"`
		Text   string `json:"text"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	conn, ok := ctl.Orch.Registry.Lookup(cid)
	if !ok {
		return domain.Validation("connection is not registered")
	}
	id := domain.NormalizeRoomCode(p.RoomID)
	if p.RoomID == "" {
		id = conn.RoomID
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(conn.UserID) {
		return domain.Validation("rate limited")
	}
	return ctl.Orch.Rooms.Chat(id, cid, p.Text)
}
