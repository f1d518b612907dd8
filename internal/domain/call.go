package domain

import "time"

type CallID string

type CallStatus string

const (
	CallIdle       CallStatus = "idle"
	CallRinging    CallStatus = "ringing"
	CallConnecting CallStatus = "connecting"
	CallConnected  CallStatus = "connected"
	CallEnded      CallStatus = "ended"
	CallRejected   CallStatus = "rejected"
	CallFailed     CallStatus = "failed"
)

// callEdges lists every legal transition; Failed and Ended are reachable from any live state.
var callEdges = map[CallStatus][]CallStatus{
	CallIdle:       {CallRinging, CallFailed},
	CallRinging:    {CallConnecting, CallRejected, CallFailed, CallEnded},
	CallConnecting: {CallConnected, CallFailed, CallEnded},
	CallConnected:  {CallEnded, CallFailed},
}

func (s CallStatus) Terminal() bool {
	return s == CallEnded || s == CallRejected || s == CallFailed
}

func (s CallStatus) CanTransition(to CallStatus) bool {
	for _, next := range callEdges[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Call is a 1:1 signaling session between exactly two users.
type Call struct {
	ID           CallID     `json:"callId"`
	CallerUserID UserID     `json:"callerUserId"`
	CalleeUserID UserID     `json:"calleeUserId"`
	IsVideo      bool       `json:"isVideo"`
	Status       CallStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	// UpdatedAt is when Status last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewCall(id CallID, caller, callee UserID, isVideo bool, now time.Time) *Call {
	return &Call{
		ID:           id,
		CallerUserID: caller,
		CalleeUserID: callee,
		IsVideo:      isVideo,
		Status:       CallIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transition moves the call to status to, or returns InvalidState.
func (c *Call) Transition(to CallStatus, now time.Time) error {
	if !c.Status.CanTransition(to) {
		return InvalidState("call " + string(c.ID) + " cannot go from " + string(c.Status) + " to " + string(to))
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}

func (c *Call) Involves(uid UserID) bool {
	return c.CallerUserID == uid || c.CalleeUserID == uid
}

// Peer returns the other party of the call.
func (c *Call) Peer(uid UserID) UserID {
	if uid == c.CallerUserID {
		return c.CalleeUserID
	}
	return c.CallerUserID
}
