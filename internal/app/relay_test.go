package app

import (
	"testing"

	"github.com/dkeye/pulse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRelayBackpressurePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantClosed bool
	}{
		{"kick closes slow connection", KickPolicy{}, true},
		{"drop keeps slow connection", DropPolicy{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, RoomOptions{})
			relay := NewRelay(e.reg, tt.policy, nil)
			c := e.connect("c1", "alice", "Alice")
			c.full = true

			assert.False(t, relay.Send("c1", Simple{Type: TypePong}))
			assert.Equal(t, tt.wantClosed, c.closed)
		})
	}
}

func TestRelayAbsentTargets(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	assert.False(t, e.relay.Send("nope", Simple{Type: TypePong}))
	assert.False(t, e.relay.SendToUser("ghost", Simple{Type: TypePong}))
}

func TestRelayBroadcastSkips(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	a := e.connect("a", "alice", "Alice")
	b := e.connect("b", "bob", "Bob")
	room := domain.NewRoom("AAA-BBB-CCC", "t", e.clock.Now())
	room.Participants["a"] = &domain.Participant{UserID: "alice"}
	room.Participants["b"] = &domain.Participant{UserID: "bob"}
	room.Participants["gone"] = &domain.Participant{UserID: "carol"}

	assert.Equal(t, 1, e.relay.Broadcast(room, Simple{Type: TypePong}, "a"))
	assert.Empty(t, a.frames)
	assert.Len(t, b.frames, 1)
}

func TestPolicyByName(t *testing.T) {
	assert.IsType(t, DropPolicy{}, PolicyByName("drop"))
	assert.IsType(t, KickPolicy{}, PolicyByName("kick"))
	assert.IsType(t, KickPolicy{}, PolicyByName(""))
}
