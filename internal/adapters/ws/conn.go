// Package ws holds the gorilla/websocket plumbing shared by the room and call protocols.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Options struct {
	SendBuffer int
	ReadLimit  int64
	PingPeriod time.Duration
	// PongWait is the read deadline; any frame or pong extends it.
	PongWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.PongWait <= o.PingPeriod {
		o.PongWait = o.PingPeriod + o.PingPeriod/9*2
	}
	return o
}

// Conn implements core.SignalConnection over a websocket with a bounded send buffer.
type Conn struct {
	conn *websocket.Conn
	send chan core.Frame
	opts Options

	mu     sync.RWMutex
	closed bool
}

func NewConn(ws *websocket.Conn, opts Options) *Conn {
	opts = opts.withDefaults()
	return &Conn{
		conn: ws,
		send: make(chan core.Frame, opts.SendBuffer),
		opts: opts,
	}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// Serve starts the write pump and runs the read pump until the connection dies or ctx ends.
// onMessage receives every data frame, onPong every transport pong. Both run on the reader goroutine.
func (c *Conn) Serve(ctx context.Context, onMessage func([]byte), onPong func()) {
	go c.writePump(ctx)
	c.readPump(onMessage, onPong)
}

func (c *Conn) readPump(onMessage func([]byte), onPong func()) {
	defer c.Close()

	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		if onPong != nil {
			onPong()
		}
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "adapters.ws").Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		onMessage(data)
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "adapters.ws").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("ping failed")
				return
			}
		}
	}
}
