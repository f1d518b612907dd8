package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeConn records every frame it accepts.
type fakeConn struct {
	frames []core.Frame
	full   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	if f.closed {
		return core.ErrClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, decodeFrame[Simple](t, fr).Type)
	}
	return out
}

// last decodes the most recent frame of type typ into T.
func lastOf[T any](t *testing.T, f *fakeConn, typ string) T {
	t.Helper()
	for i := len(f.frames) - 1; i >= 0; i-- {
		if decodeFrame[Simple](t, f.frames[i]).Type == typ {
			return decodeFrame[T](t, f.frames[i])
		}
	}
	require.Failf(t, "frame not found", "no %q frame in %v", typ, f.types(t))
	var zero T
	return zero
}

func decodeFrame[T any](t *testing.T, fr core.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(fr, &v))
	return v
}

func (f *fakeConn) reset() { f.frames = nil }

func hostCount(room *domain.Room) int {
	n := 0
	for _, p := range room.Participants {
		if p.IsHost {
			n++
		}
	}
	return n
}

type env struct {
	clock *fakeClock
	reg   *Registry
	relay *Relay
	rooms *RoomManager
	calls *CallManager
}

func newEnv(t *testing.T, opts RoomOptions) *env {
	t.Helper()
	clock := newFakeClock()
	reg := NewRegistry(clock.Now)
	relay := NewRelay(reg, KickPolicy{}, nil)
	codes, err := domain.NewRoomCodeGenerator()
	require.NoError(t, err)
	return &env{
		clock: clock,
		reg:   reg,
		relay: relay,
		rooms: NewRoomManager(reg, relay, codes, clock.Now, opts),
		calls: NewCallManager(reg, relay, clock.Now),
	}
}

func (e *env) connect(cid, uid, name string) *fakeConn {
	c := &fakeConn{}
	e.reg.Register(domain.ConnID(cid), domain.User{ID: domain.UserID(uid), DisplayName: name}, c)
	return c
}
