package orch

import (
	"context"
	"time"

	"github.com/dkeye/pulse/internal/app"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically evicts silent connections, aged or empty rooms and abandoned calls.
// The pass runs as a Hub task so it never interleaves with message handling.
type Sweeper struct {
	Hub         *app.Hub
	Orch        *Orchestrator
	Interval    time.Duration
	ConnTimeout time.Duration
	RoomMaxAge  time.Duration
	RingTimeout time.Duration
}

type SweepResult struct {
	Connections int
	Rooms       int
	Calls       int
}

func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info().Str("module", "orch.sweeper").Dur("interval", interval).Dur("conn_timeout", s.ConnTimeout).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !s.Hub.Post(func() { s.Sweep() }) {
				return nil
			}
		}
	}
}

// Sweep performs one pass. It must run on the Hub goroutine.
func (s *Sweeper) Sweep() SweepResult {
	o := s.Orch
	now := o.Now()
	var res SweepResult

	if s.ConnTimeout > 0 {
		for _, cid := range o.Registry.Stale(now.Add(-s.ConnTimeout)) {
			o.KickByCID(cid, "timeout")
			res.Connections++
		}
	}
	if o.Rooms != nil {
		res.Rooms = o.Rooms.Sweep(now, s.RoomMaxAge)
	}
	if o.Calls != nil && s.RingTimeout > 0 {
		res.Calls = o.Calls.SweepStale(now, s.RingTimeout)
	}

	o.Metrics.Evicted("connection", res.Connections)
	o.Metrics.Evicted("room", res.Rooms)
	o.Metrics.Evicted("call", res.Calls)
	o.syncGauges()
	if res != (SweepResult{}) {
		log.Info().Str("module", "orch.sweeper").Int("connections", res.Connections).Int("rooms", res.Rooms).Int("calls", res.Calls).Msg("sweep")
	}
	return res
}
