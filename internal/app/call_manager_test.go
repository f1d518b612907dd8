package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/pulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sdp = json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

func TestRequestCallPeerUnavailable(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	u1 := e.connect("c1", "u1", "U1")

	_, err := e.calls.RequestCall("c1", "ghost", "", false, nil)
	require.Error(t, err)
	assert.Equal(t, domain.CodePeerUnavailable, domain.CodeOf(err))

	failed := lastOf[CallNotice](t, u1, TypeCallFailed)
	assert.Equal(t, ReasonPeerUnavailable, failed.Reason)
	assert.Equal(t, 0, e.calls.Count())
}

func TestCallHappyPath(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	caller := e.connect("c1", "u1", "U1")
	callee := e.connect("c2", "u2", "U2")

	id, err := e.calls.RequestCall("c1", "u2", "call-1", true, json.RawMessage(`{"avatar":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.CallID("call-1"), id)
	call, ok := e.calls.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.CallRinging, call.Status)

	in := lastOf[IncomingCall](t, callee, TypeIncomingCall)
	assert.Equal(t, domain.UserID("u1"), in.From)
	assert.Equal(t, "U1", in.FromName)
	assert.True(t, in.IsVideo)
	assert.JSONEq(t, `{"avatar":"x"}`, string(in.FromInfo))

	// trickle ICE is relayed while still ringing
	require.NoError(t, e.calls.RelayICE(id, "c1", "", json.RawMessage(`{"candidate":"c"}`)))
	assert.Contains(t, callee.types(t), TypeICECandidate)

	require.NoError(t, e.calls.AcceptCall(id, "c2"))
	assert.Equal(t, domain.CallConnecting, call.Status)
	assert.Equal(t, domain.UserID("u2"), lastOf[CallNotice](t, caller, TypeCallAccepted).From)

	require.NoError(t, e.calls.RelayOffer(id, "c1", "", sdp))
	assert.JSONEq(t, string(sdp), string(lastOf[CallSignal](t, callee, TypeCallOffer).Payload))

	require.NoError(t, e.calls.RelayAnswer(id, "c2", "", sdp))
	assert.Equal(t, domain.CallConnected, call.Status)
	assert.Contains(t, caller.types(t), TypeCallAnswer)

	err = e.calls.AcceptCall(id, "c2")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, e.calls.EndCall(id, "c1", ""))
	assert.Equal(t, 0, e.calls.Count())
	assert.Equal(t, domain.UserID("u1"), lastOf[CallNotice](t, callee, TypeCallEnded).From)
	conn, _ := e.reg.Lookup("c1")
	assert.Empty(t, conn.CallID)

	// idempotent
	assert.NoError(t, e.calls.EndCall(id, "c1", ""))
}

func TestRejectCall(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	caller := e.connect("c1", "u1", "U1")
	e.connect("c2", "u2", "U2")
	id, err := e.calls.RequestCall("c1", "u2", "", false, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.ErrorIs(t, e.calls.RejectCall(id, "c1"), domain.ErrValidation, "caller cannot reject")
	require.NoError(t, e.calls.RejectCall(id, "c2"))
	assert.Contains(t, caller.types(t), TypeCallRejected)
	assert.Equal(t, 0, e.calls.Count())

	assert.ErrorIs(t, e.calls.AcceptCall(id, "c2"), domain.ErrInvalidState)
}

func TestRequestCallConflicts(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	e.connect("c1", "u1", "U1")
	e.connect("c2", "u2", "U2")
	u3 := e.connect("c3", "u3", "U3")

	_, err := e.calls.RequestCall("c1", "u2", "call-1", false, nil)
	require.NoError(t, err)

	_, err = e.calls.RequestCall("c3", "u1", "call-1", false, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = e.calls.RequestCall("c3", "u2", "", false, nil)
	assert.ErrorIs(t, err, domain.ErrPeerUnavailable)
	assert.Equal(t, ReasonPeerUnavailable, lastOf[CallNotice](t, u3, TypeCallFailed).Reason)

	_, err = e.calls.RequestCall("c3", "u3", "", false, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRelayWithoutRecord(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	e.connect("c1", "u1", "U1")
	u2 := e.connect("c2", "u2", "U2")

	assert.ErrorIs(t, e.calls.RelayOffer("gone", "c1", "", sdp), domain.ErrInvalidState)

	require.NoError(t, e.calls.RelayOffer("gone", "c1", "u2", sdp))
	assert.Equal(t, domain.CallID("gone"), lastOf[CallSignal](t, u2, TypeCallOffer).CallID)

	require.NoError(t, e.calls.EndCall("gone", "c1", "u2"))
	assert.Contains(t, u2.types(t), TypeCallEnded)
}

func TestAnswerWhileRingingIsInvalid(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	e.connect("c1", "u1", "U1")
	e.connect("c2", "u2", "U2")
	id, _ := e.calls.RequestCall("c1", "u2", "", false, nil)

	assert.ErrorIs(t, e.calls.RelayAnswer(id, "c2", "", sdp), domain.ErrInvalidState)
}

func TestRelayICEEndOfCandidates(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	e.connect("c1", "u1", "U1")
	callee := e.connect("c2", "u2", "U2")
	id, err := e.calls.RequestCall("c1", "u2", "", false, nil)
	require.NoError(t, err)

	require.NoError(t, e.calls.RelayICE(id, "c1", "", json.RawMessage("null")))
	sig := lastOf[CallSignal](t, callee, TypeICECandidate)
	assert.Equal(t, id, sig.CallID)
	assert.Equal(t, "null", string(sig.Payload))

	assert.ErrorIs(t, e.calls.RelayICE(id, "c1", "", nil), domain.ErrValidation)
	assert.ErrorIs(t, e.calls.RelayICE(id, "c1", "", json.RawMessage("{bad")), domain.ErrValidation)
}

func TestOnDisconnect(t *testing.T) {
	tests := []struct {
		name     string
		connect  bool
		wantType string
	}{
		{"ringing call fails", false, TypeCallFailed},
		{"connected call ends", true, TypeCallEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, RoomOptions{})
			e.connect("c1", "u1", "U1")
			peer := e.connect("c2", "u2", "U2")
			id, err := e.calls.RequestCall("c1", "u2", "", false, nil)
			require.NoError(t, err)
			if tt.connect {
				require.NoError(t, e.calls.AcceptCall(id, "c2"))
				require.NoError(t, e.calls.RelayAnswer(id, "c2", "", sdp))
			}

			assert.Equal(t, 1, e.calls.OnDisconnect("u1"))
			notice := lastOf[CallNotice](t, peer, tt.wantType)
			assert.Equal(t, ReasonPeerDisconnected, notice.Reason)
			assert.Equal(t, 0, e.calls.Count())
		})
	}
}

func TestSweepStaleCalls(t *testing.T) {
	e := newEnv(t, RoomOptions{})
	caller := e.connect("c1", "u1", "U1")
	callee := e.connect("c2", "u2", "U2")
	e.connect("c3", "u3", "U3")
	e.connect("c4", "u4", "U4")
	ringing, _ := e.calls.RequestCall("c1", "u2", "", false, nil)
	live, _ := e.calls.RequestCall("c3", "u4", "", false, nil)
	require.NoError(t, e.calls.AcceptCall(live, "c4"))
	require.NoError(t, e.calls.RelayAnswer(live, "c4", "", sdp))

	e.clock.Advance(4 * time.Minute)
	assert.Equal(t, 0, e.calls.SweepStale(e.clock.Now(), 5*time.Minute))

	e.clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, e.calls.SweepStale(e.clock.Now(), 5*time.Minute))

	_, ok := e.calls.Get(ringing)
	assert.False(t, ok)
	_, ok = e.calls.Get(live)
	assert.True(t, ok)
	for _, c := range []*fakeConn{caller, callee} {
		assert.Equal(t, ReasonTimeout, lastOf[CallNotice](t, c, TypeCallFailed).Reason)
	}
}
