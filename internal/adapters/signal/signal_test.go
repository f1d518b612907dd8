package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/pulse/internal/adapters/ws"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, chatLimit int) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	codes, err := domain.NewRoomCodeGenerator()
	require.NoError(t, err)
	hub := app.NewHub(64, nil)
	reg := app.NewRegistry(core.SystemClock)
	relay := app.NewRelay(reg, app.KickPolicy{}, nil)
	rooms := app.NewRoomManager(reg, relay, codes, core.SystemClock, app.RoomOptions{})
	o := orch.New(reg, relay, rooms, nil, nil, core.SystemClock)
	go func() { _ = hub.Run(ctx) }()

	ctl := NewSignalWSController(hub, o, nil, ws.NewGate(10),
		NewRoomRateLimiter(chatLimit, time.Minute, nil),
		ws.Options{PingPeriod: time.Second, PongWait: 5 * time.Second})

	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		c.Set(ClientTokenKey, c.Query("ct"))
		c.Next()
	})
	r.GET("/api/ws/room", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/room"
}

func dial(t *testing.T, url, token, name string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url+"?ct="+token+"&name="+name, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func await(t *testing.T, c *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, c.ReadJSON(&m), "waiting for %s", typ)
		if m["type"] == typ {
			return m
		}
	}
}

func TestRoomFlow(t *testing.T) {
	url := newServer(t, 10)
	alice := dial(t, url, "alice", "alice")
	bob := dial(t, url, "bob", "bob")

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "create-room", "title": "Leg Day"}))
	created := await(t, alice, app.TypeRoomCreated)
	roomID, _ := created["roomId"].(string)
	assert.True(t, domain.IsRoomCode(roomID))
	assert.Equal(t, "Leg Day", created["title"])

	// codes are accepted in lower case without dashes
	require.NoError(t, bob.WriteJSON(map[string]any{"type": "join-room", "roomId": strings.ToLower(strings.ReplaceAll(roomID, "-", ""))}))
	joined := await(t, bob, app.TypeRoomJoined)
	assert.EqualValues(t, 2, joined["participantCount"])
	await(t, alice, app.TypeParticipantJoined)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "webrtc-offer", "roomId": roomID, "targetUserId": "bob", "payload": map[string]string{"sdp": "x"}}))
	offer := await(t, bob, app.TypeWebRTCOffer)
	assert.Equal(t, "alice", offer["fromUserId"])

	require.NoError(t, bob.WriteJSON(map[string]any{"type": "chat", "roomId": roomID, "text": "hello"}))
	msg := await(t, alice, app.TypeChatMessage)
	for msg["message"].(map[string]any)["kind"] != "user" {
		msg = await(t, alice, app.TypeChatMessage)
	}
	assert.Equal(t, "hello", msg["message"].(map[string]any)["text"])

	require.NoError(t, alice.Close())
	hc := await(t, bob, app.TypeHostChanged)
	assert.Equal(t, "bob", hc["hostUserId"])
}

func TestRoomErrors(t *testing.T) {
	url := newServer(t, 1)
	alice := dial(t, url, "alice", "alice")

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "join-room", "roomId": "ZZZ-ZZZ-ZZZ"}))
	e := await(t, alice, app.TypeError)
	assert.Equal(t, "RoomNotFound", e["code"])

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "create-room"}))
	created := await(t, alice, app.TypeRoomCreated)
	assert.Equal(t, domain.DefaultTitle, created["title"])
	roomID := created["roomId"]

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "chat", "roomId": roomID, "text": "one"}))
	await(t, alice, app.TypeChatMessage)
	require.NoError(t, alice.WriteJSON(map[string]any{"type": "chat", "roomId": roomID, "text": "two"}))
	e = await(t, alice, app.TypeError)
	assert.Equal(t, "ValidationError", e["code"])
	assert.Equal(t, "rate limited", e["message"])

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "ping"}))
	await(t, alice, app.TypePong)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "dance"}))
	e = await(t, alice, app.TypeError)
	assert.Equal(t, "dance", e["request"])
}
