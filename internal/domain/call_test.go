package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallStatus_Transitions(t *testing.T) {
	tests := []struct {
		from CallStatus
		to   CallStatus
		ok   bool
	}{
		{CallIdle, CallRinging, true},
		{CallRinging, CallConnecting, true},
		{CallRinging, CallRejected, true},
		{CallConnecting, CallConnected, true},
		{CallConnected, CallEnded, true},
		{CallRinging, CallFailed, true},
		{CallConnected, CallFailed, true},
		{CallConnected, CallConnecting, false},
		{CallConnecting, CallRejected, false},
		{CallIdle, CallConnected, false},
		{CallEnded, CallRinging, false},
		{CallRejected, CallConnecting, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestCall_TransitionRejectsIllegalEdge(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewCall("c1", "u1", "u2", true, now)
	require.NoError(t, c.Transition(CallRinging, now))
	require.NoError(t, c.Transition(CallConnecting, now))
	require.NoError(t, c.Transition(CallConnected, now.Add(time.Second)))

	err := c.Transition(CallConnecting, now)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, CallConnected, c.Status)
	assert.Equal(t, now.Add(time.Second), c.UpdatedAt)
}

func TestCall_Peer(t *testing.T) {
	c := NewCall("c1", "u1", "u2", false, time.Now())
	assert.Equal(t, UserID("u2"), c.Peer("u1"))
	assert.Equal(t, UserID("u1"), c.Peer("u2"))
	assert.True(t, c.Involves("u2"))
	assert.False(t, c.Involves("u3"))
}
