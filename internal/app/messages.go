package app

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/domain"
)

// Outbound message types of the room protocol.
const (
	TypeRoomCreated       = "room-created"
	TypeRoomJoined        = "room-joined"
	TypeRoomLeft          = "room-left"
	TypeRoomClosed        = "room-closed"
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeHostChanged       = "host-changed"
	TypeChatMessage       = "chat-message"
	TypeWebRTCOffer       = "webrtc-offer"
	TypeWebRTCAnswer      = "webrtc-answer"
	TypeWebRTCCandidate   = "webrtc-ice-candidate"
	TypePong              = "pong"
	TypeError             = "error"
)

// Outbound message types of the call protocol.
const (
	TypeRegistered   = "registered"
	TypeIncomingCall = "incoming-call"
	TypeCallAccepted = "call-accepted"
	TypeCallRejected = "call-rejected"
	TypeCallFailed   = "call-failed"
	TypeCallEnded    = "call-ended"
	TypeCallOffer    = "call-offer"
	TypeCallAnswer   = "call-answer"
	TypeICECandidate = "ice-candidate"
	TypeHeartbeatAck = "heartbeat-ack"
)

type RoomState struct {
	Type             string                   `json:"type"`
	RoomID           domain.RoomID            `json:"roomId"`
	Title            string                   `json:"title"`
	HostUserID       domain.UserID            `json:"hostUserId"`
	Participants     []domain.ParticipantView `json:"participants"`
	ParticipantCount int                      `json:"participantCount"`
	ChatHistory      []domain.ChatMessage     `json:"chatHistory"`
}

type ParticipantJoined struct {
	Type        string                 `json:"type"`
	RoomID      domain.RoomID          `json:"roomId"`
	Participant domain.ParticipantView `json:"participant"`
}

type ParticipantLeft struct {
	Type        string        `json:"type"`
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type HostChanged struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"roomId"`
	HostUserID domain.UserID `json:"hostUserId"`
	HostName   string        `json:"hostName"`
}

type ChatEvent struct {
	Type    string             `json:"type"`
	RoomID  domain.RoomID      `json:"roomId"`
	Message domain.ChatMessage `json:"message"`
}

type RoomNotice struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason,omitempty"`
}

type RoomSignal struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"roomId"`
	FromUserID domain.UserID   `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}

type Registered struct {
	Type         string        `json:"type"`
	UserID       domain.UserID `json:"userId"`
	ConnectionID domain.ConnID `json:"connectionId"`
}

type IncomingCall struct {
	Type     string          `json:"type"`
	CallID   domain.CallID   `json:"callId"`
	From     domain.UserID   `json:"from"`
	FromName string          `json:"fromName"`
	FromInfo json.RawMessage `json:"fromInfo,omitempty"`
	IsVideo  bool            `json:"isVideo"`
}

// CallNotice covers call-accepted, call-rejected, call-failed and call-ended.
type CallNotice struct {
	Type   string        `json:"type"`
	CallID domain.CallID `json:"callId"`
	From   domain.UserID `json:"from,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

type CallSignal struct {
	Type    string          `json:"type"`
	CallID  domain.CallID   `json:"callId"`
	From    domain.UserID   `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type Simple struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string      `json:"type"`
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
	Request string      `json:"request,omitempty"`
}

func NewErrorEvent(err error, request string) ErrorEvent {
	e := domain.AsError(err)
	return ErrorEvent{Type: TypeError, Code: e.Code, Message: e.Message, Request: request}
}
