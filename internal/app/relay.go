package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/dkeye/pulse/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Relay forwards encoded messages to connections resolved through the Registry.
// Delivery is best effort: an absent target is logged and skipped.
type Relay struct {
	reg     *Registry
	policy  Policy
	metrics *metrics.Metrics
}

func NewRelay(reg *Registry, policy Policy, m *metrics.Metrics) *Relay {
	if policy == nil {
		policy = KickPolicy{}
	}
	return &Relay{reg: reg, policy: policy, metrics: m}
}

func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

// Send delivers v to a specific connection.
func (r *Relay) Send(cid domain.ConnID, v any) bool {
	h, ok := r.reg.Handle(cid)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("cid", string(cid)).Msg("target connection absent")
		r.metrics.Relay("absent")
		return false
	}
	return r.deliver(cid, h, v)
}

// SendToUser delivers v to the live connection of uid.
func (r *Relay) SendToUser(uid domain.UserID, v any) bool {
	h, cid, ok := r.reg.Resolve(uid)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("user", string(uid)).Msg("target user not connected")
		r.metrics.Relay("absent")
		return false
	}
	return r.deliver(cid, h, v)
}

// Broadcast delivers v to every participant of room except skip.
func (r *Relay) Broadcast(room *domain.Room, v any, skip domain.ConnID) int {
	f, err := Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("broadcast marshal")
		return 0
	}
	sent := 0
	for cid := range room.Participants {
		if cid == skip {
			continue
		}
		h, ok := r.reg.Handle(cid)
		if !ok {
			r.metrics.Relay("absent")
			continue
		}
		if r.push(cid, h, f) {
			sent++
		}
	}
	log.Debug().Str("module", "app.relay").Str("room", string(room.ID)).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

// Reply writes v straight to a handle that may not be registered yet.
func (r *Relay) Reply(h core.SignalConnection, v any) {
	if h == nil {
		return
	}
	r.deliver("", h, v)
}

func (r *Relay) deliver(cid domain.ConnID, h core.SignalConnection, v any) bool {
	f, err := Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal")
		return false
	}
	return r.push(cid, h, f)
}

func (r *Relay) push(cid domain.ConnID, h core.SignalConnection, f core.Frame) bool {
	err := h.TrySend(f)
	if err == nil {
		r.metrics.Relay("sent")
		return true
	}
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "app.relay").Str("cid", string(cid)).Msg("send failed")
		r.metrics.Relay("absent")
		return false
	}
	switch r.policy.OnBackPressure(cid) {
	case KickMember:
		log.Warn().Str("module", "app.relay").Str("cid", string(cid)).Msg("send buffer full, closing connection")
		r.metrics.Relay("kicked")
		h.Close()
	case DropFrame, NoAction:
		log.Warn().Str("module", "app.relay").Str("cid", string(cid)).Msg("send buffer full, frame dropped")
		r.metrics.Relay("dropped")
	}
	return false
}
