package app

import (
	"encoding/json"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomOptions struct {
	HistoryCap   int
	SnapshotSize int
}

// RoomManager owns live-workout rooms. Only the Hub goroutine may call it.
type RoomManager struct {
	now     core.Clock
	reg     *Registry
	relay   *Relay
	newCode domain.RoomCodeGenerator
	opts    RoomOptions
	rooms   map[domain.RoomID]*domain.Room
}

func NewRoomManager(reg *Registry, relay *Relay, gen domain.RoomCodeGenerator, now core.Clock, opts RoomOptions) *RoomManager {
	if now == nil {
		now = core.SystemClock
	}
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = domain.ChatHistoryCap
	}
	if opts.SnapshotSize <= 0 {
		opts.SnapshotSize = domain.SnapshotHistory
	}
	return &RoomManager{
		now:     now,
		reg:     reg,
		relay:   relay,
		newCode: gen,
		opts:    opts,
		rooms:   make(map[domain.RoomID]*domain.Room),
	}
}

func (m *RoomManager) GetRoom(id domain.RoomID) (*domain.Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

func (m *RoomManager) Count() int { return len(m.rooms) }

// CreateRoom opens a room with the caller as its only participant and host.
func (m *RoomManager) CreateRoom(cid domain.ConnID, title string) (domain.RoomID, error) {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return "", domain.Validation("connection is not registered")
	}
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return "", err
	}
	if conn.RoomID != "" {
		_ = m.LeaveRoom(conn.RoomID, cid)
	}

	now := m.now()
	room := domain.NewRoom(m.newCode(), title, now)
	room.Participants[cid] = &domain.Participant{
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		IsHost:      true,
		JoinedAt:    now,
		Connected:   true,
	}
	room.HostUserID = conn.UserID
	m.rooms[room.ID] = room
	m.reg.SetRoom(cid, room.ID)

	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("host", string(conn.UserID)).Str("title", title).Msg("room created")
	m.relay.Send(cid, m.state(room, TypeRoomCreated))
	return room.ID, nil
}

// JoinRoom adds the connection to the room, or swaps it in for the user's previous
// connection while keeping host role and join time.
func (m *RoomManager) JoinRoom(id domain.RoomID, cid domain.ConnID) error {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return domain.Validation("connection is not registered")
	}
	room, ok := m.rooms[id]
	if !ok || !room.Active {
		return domain.RoomNotFound(id)
	}
	if conn.RoomID != "" && conn.RoomID != id {
		_ = m.LeaveRoom(conn.RoomID, cid)
	}

	now := m.now()
	if p, ok := room.Participants[cid]; ok && p.UserID == conn.UserID {
		// repeated join on the same socket: resend state without re-announcing
		p.DisplayName = conn.DisplayName
		m.reg.SetRoom(cid, id)
		m.relay.Send(cid, m.state(room, TypeRoomJoined))
		return nil
	}
	if prev, p, ok := room.FindUser(conn.UserID); ok {
		if prev != cid {
			room.Rebind(prev, cid)
			m.reg.SetRoom(prev, "")
			log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("user", string(conn.UserID)).Str("old_cid", string(prev)).Msg("participant reconnected")
		}
		p.DisplayName = conn.DisplayName
		p.Connected = true
	} else {
		room.Participants[cid] = &domain.Participant{
			UserID:      conn.UserID,
			DisplayName: conn.DisplayName,
			JoinedAt:    now,
			Connected:   true,
		}
	}
	m.reg.SetRoom(cid, id)

	sys := domain.NewSystemMessage(conn.DisplayName+" joined the workout", now)
	room.AppendChat(sys, m.opts.HistoryCap)

	m.relay.Send(cid, m.state(room, TypeRoomJoined))
	m.relay.Broadcast(room, ParticipantJoined{
		Type:        TypeParticipantJoined,
		RoomID:      id,
		Participant: domain.ParticipantView{ConnectionID: cid, Participant: *room.Participants[cid]},
	}, "")
	m.relay.Broadcast(room, ChatEvent{Type: TypeChatMessage, RoomID: id, Message: sys}, "")

	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("user", string(conn.UserID)).Int("participants", len(room.Participants)).Msg("joined")
	return nil
}

// LeaveRoom removes the participant bound to cid. A departing host hands the role to the
// earliest-joined remaining participant; an emptied room is deleted.
func (m *RoomManager) LeaveRoom(id domain.RoomID, cid domain.ConnID) error {
	room, ok := m.rooms[id]
	if !ok {
		return domain.RoomNotFound(id)
	}
	p, ok := room.Participants[cid]
	if !ok {
		return domain.Validation("not a participant of room " + string(id))
	}
	delete(room.Participants, cid)
	if conn, ok := m.reg.Lookup(cid); ok && conn.RoomID == id {
		m.reg.SetRoom(cid, "")
	}
	m.relay.Send(cid, RoomNotice{Type: TypeRoomLeft, RoomID: id})

	if len(room.Participants) == 0 {
		m.deleteRoom(room, "empty")
		return nil
	}

	now := m.now()
	m.relay.Broadcast(room, ParticipantLeft{
		Type:        TypeParticipantLeft,
		RoomID:      id,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
	}, "")
	sys := domain.NewSystemMessage(p.DisplayName+" left the workout", now)
	room.AppendChat(sys, m.opts.HistoryCap)
	m.relay.Broadcast(room, ChatEvent{Type: TypeChatMessage, RoomID: id, Message: sys}, "")

	if p.IsHost {
		if _, host, ok := room.PromoteNext(); ok {
			log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("old_host", string(p.UserID)).Str("new_host", string(host.UserID)).Msg("host transferred")
			m.relay.Broadcast(room, HostChanged{
				Type:       TypeHostChanged,
				RoomID:     id,
				HostUserID: host.UserID,
				HostName:   host.DisplayName,
			}, "")
		}
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("user", string(p.UserID)).Int("participants", len(room.Participants)).Msg("left")
	return nil
}

// Chat appends a user message and broadcasts it to every member.
func (m *RoomManager) Chat(id domain.RoomID, cid domain.ConnID, text string) error {
	room, ok := m.rooms[id]
	if !ok {
		return domain.RoomNotFound(id)
	}
	p, ok := room.Participants[cid]
	if !ok {
		return domain.Validation("not a participant of room " + string(id))
	}
	msg, err := domain.NewUserMessage(domain.User{ID: p.UserID, DisplayName: p.DisplayName}, text, m.now())
	if err != nil {
		return err
	}
	room.AppendChat(msg, m.opts.HistoryCap)
	m.relay.Broadcast(room, ChatEvent{Type: TypeChatMessage, RoomID: id, Message: msg}, "")
	return nil
}

// RelaySignal forwards an opaque WebRTC payload to target's connection in this room.
// A missing target is a silent no-op.
func (m *RoomManager) RelaySignal(id domain.RoomID, from domain.ConnID, target domain.UserID, kind string, payload json.RawMessage) error {
	room, ok := m.rooms[id]
	if !ok {
		return domain.RoomNotFound(id)
	}
	p, ok := room.Participants[from]
	if !ok {
		return domain.Validation("not a participant of room " + string(id))
	}
	if err := ValidatePayload(payload); err != nil {
		return err
	}
	tcid, _, ok := room.FindUser(target)
	if !ok {
		log.Debug().Str("module", "app.rooms").Str("room", string(id)).Str("target", string(target)).Str("kind", kind).Msg("relay target not in room")
		m.relay.metrics.Relay("absent")
		return nil
	}
	m.relay.Send(tcid, RoomSignal{Type: kind, RoomID: id, FromUserID: p.UserID, Payload: payload})
	return nil
}

// Sweep deletes empty rooms and closes rooms older than maxAge. It returns how many were removed.
func (m *RoomManager) Sweep(now time.Time, maxAge time.Duration) int {
	n := 0
	for _, room := range m.rooms {
		switch {
		case len(room.Participants) == 0:
			m.deleteRoom(room, "empty")
			n++
		case maxAge > 0 && now.Sub(room.CreatedAt) > maxAge:
			m.CloseRoom(room.ID, "expired")
			n++
		}
	}
	return n
}

// CloseRoom notifies every participant and deletes the room.
func (m *RoomManager) CloseRoom(id domain.RoomID, reason string) {
	room, ok := m.rooms[id]
	if !ok {
		return
	}
	m.relay.Broadcast(room, RoomNotice{Type: TypeRoomClosed, RoomID: id, Reason: reason}, "")
	for cid := range room.Participants {
		if conn, ok := m.reg.Lookup(cid); ok && conn.RoomID == id {
			m.reg.SetRoom(cid, "")
		}
	}
	m.deleteRoom(room, reason)
}

func (m *RoomManager) deleteRoom(room *domain.Room, reason string) {
	room.Active = false
	delete(m.rooms, room.ID)
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("reason", reason).Msg("room deleted")
}

func (m *RoomManager) state(room *domain.Room, typ string) RoomState {
	return RoomState{
		Type:             typ,
		RoomID:           room.ID,
		Title:            room.Title,
		HostUserID:       room.HostUserID,
		Participants:     room.Snapshot(),
		ParticipantCount: len(room.Participants),
		ChatHistory:      room.RecentChat(m.opts.SnapshotSize),
	}
}

// ValidatePayload accepts any JSON value, null included; the relay never looks inside.
// An absent field decodes to an empty RawMessage and is rejected.
func ValidatePayload(payload json.RawMessage) error {
	if len(payload) == 0 {
		return domain.Validation("payload is required")
	}
	if !json.Valid(payload) {
		return domain.Validation("payload is not valid JSON")
	}
	return nil
}
