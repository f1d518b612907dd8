package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen     = 100
	MaxChatLen      = 2000
	DefaultTitle    = "Live Workout"
	ChatHistoryCap  = 100
	SnapshotHistory = 50
)

type RoomID string

// Participant is a room member keyed by its connection id in Room.Participants.
type Participant struct {
	UserID      UserID    `json:"userId"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	JoinedAt    time.Time `json:"joinedAt"`
	// Connected is true for every listed participant; a closed socket is removed, not marked.
	Connected   bool      `json:"connected"`
}

// Room is a live-workout session. While Participants is non-empty exactly one
// participant has IsHost set and HostUserID names it.
type Room struct {
	ID           RoomID
	Title        string
	HostUserID   UserID
	Participants map[ConnID]*Participant
	ChatHistory  []ChatMessage
	CreatedAt    time.Time
	Active       bool
}

func NewRoom(id RoomID, title string, now time.Time) *Room {
	return &Room{
		ID:           id,
		Title:        title,
		Participants: make(map[ConnID]*Participant),
		CreatedAt:    now,
		Active:       true,
	}
}

func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if !utf8.ValidString(title) {
		return "", Validation("title contains invalid characters")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", Validation("title too long")
	}
	if title == "" {
		title = DefaultTitle
	}
	return title, nil
}

// FindUser returns the participant entry for uid, if any.
func (r *Room) FindUser(uid UserID) (ConnID, *Participant, bool) {
	for cid, p := range r.Participants {
		if p.UserID == uid {
			return cid, p, true
		}
	}
	return "", nil, false
}

// Rebind moves a participant entry to a new connection id, keeping IsHost and JoinedAt.
func (r *Room) Rebind(from, to ConnID) {
	p, ok := r.Participants[from]
	if !ok || from == to {
		return
	}
	delete(r.Participants, from)
	p.Connected = true
	r.Participants[to] = p
}

// PromoteNext hands the host role to the earliest-joined participant, ties broken by
// connection id. It returns false if the room is empty.
func (r *Room) PromoteNext() (ConnID, *Participant, bool) {
	if len(r.Participants) == 0 {
		r.HostUserID = ""
		return "", nil, false
	}
	var (
		next ConnID
		np   *Participant
	)
	for cid, p := range r.Participants {
		if np == nil || p.JoinedAt.Before(np.JoinedAt) || (p.JoinedAt.Equal(np.JoinedAt) && cid < next) {
			next, np = cid, p
		}
	}
	for _, p := range r.Participants {
		p.IsHost = false
	}
	np.IsHost = true
	r.HostUserID = np.UserID
	return next, np, true
}

// AppendChat appends msg and keeps only the most recent limit entries.
func (r *Room) AppendChat(msg ChatMessage, limit int) {
	if limit <= 0 {
		limit = ChatHistoryCap
	}
	r.ChatHistory = append(r.ChatHistory, msg)
	if len(r.ChatHistory) > limit {
		r.ChatHistory = append([]ChatMessage(nil), r.ChatHistory[len(r.ChatHistory)-limit:]...)
	}
}

// RecentChat returns a copy of the last limit chat entries.
func (r *Room) RecentChat(limit int) []ChatMessage {
	if limit <= 0 || limit > len(r.ChatHistory) {
		limit = len(r.ChatHistory)
	}
	out := make([]ChatMessage, limit)
	copy(out, r.ChatHistory[len(r.ChatHistory)-limit:])
	return out
}

// ParticipantView is the wire form of a participant.
type ParticipantView struct {
	ConnectionID ConnID `json:"connectionId"`
	Participant
}

// Snapshot lists participants ordered by join time.
func (r *Room) Snapshot() []ParticipantView {
	out := make([]ParticipantView, 0, len(r.Participants))
	for cid, p := range r.Participants {
		out = append(out, ParticipantView{ConnectionID: cid, Participant: *p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnectionID < out[j].ConnectionID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
