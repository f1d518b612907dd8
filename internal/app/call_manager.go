package app

import (
	"encoding/json"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ReasonPeerUnavailable  = string(domain.CodePeerUnavailable)
	ReasonPeerDisconnected = "peer-disconnected"
	ReasonTimeout          = "timeout"
)

// CallManager drives 1:1 call records through their state machine. Only the Hub goroutine may call it.
type CallManager struct {
	now   core.Clock
	reg   *Registry
	relay *Relay
	calls map[domain.CallID]*domain.Call
}

func NewCallManager(reg *Registry, relay *Relay, now core.Clock) *CallManager {
	if now == nil {
		now = core.SystemClock
	}
	return &CallManager{
		now:   now,
		reg:   reg,
		relay: relay,
		calls: make(map[domain.CallID]*domain.Call),
	}
}

func (m *CallManager) Count() int { return len(m.calls) }

func (m *CallManager) Get(id domain.CallID) (*domain.Call, bool) {
	c, ok := m.calls[id]
	return c, ok
}

// RequestCall rings callee. An unreachable or busy callee fails the request at once: the caller
// gets call-failed and the returned error carries PeerUnavailable.
func (m *CallManager) RequestCall(cid domain.ConnID, callee domain.UserID, id domain.CallID, isVideo bool, info json.RawMessage) (domain.CallID, error) {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return "", domain.Validation("connection is not registered")
	}
	if callee == "" {
		return "", domain.Validation("callee is required")
	}
	if callee == conn.UserID {
		return "", domain.Validation("cannot call yourself")
	}
	if id == "" {
		id = domain.CallID(uuid.NewString())
	}
	if _, ok := m.calls[id]; ok {
		return "", domain.InvalidState("call " + string(id) + " already exists")
	}

	fail := func(msg string) (domain.CallID, error) {
		log.Info().Str("module", "app.calls").Str("call", string(id)).Str("caller", string(conn.UserID)).Str("callee", string(callee)).Msg(msg)
		m.relay.Send(cid, CallNotice{Type: TypeCallFailed, CallID: id, From: callee, Reason: ReasonPeerUnavailable})
		return id, domain.PeerUnavailable(msg)
	}
	if _, _, ok := m.reg.Resolve(callee); !ok {
		return fail("callee not connected")
	}
	if m.activeFor(callee) != nil || m.activeFor(conn.UserID) != nil {
		return fail("party busy")
	}

	now := m.now()
	call := domain.NewCall(id, conn.UserID, callee, isVideo, now)
	if err := call.Transition(domain.CallRinging, now); err != nil {
		return "", err
	}
	m.calls[id] = call
	m.reg.SetCall(cid, id)
	if _, calleeCid, ok := m.reg.Resolve(callee); ok {
		m.reg.SetCall(calleeCid, id)
	}

	m.relay.SendToUser(callee, IncomingCall{
		Type:     TypeIncomingCall,
		CallID:   id,
		From:     conn.UserID,
		FromName: conn.DisplayName,
		FromInfo: info,
		IsVideo:  isVideo,
	})
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("caller", string(conn.UserID)).Str("callee", string(callee)).Bool("video", isVideo).Msg("ringing")
	return id, nil
}

// AcceptCall moves a ringing call to Connecting and tells the caller.
func (m *CallManager) AcceptCall(id domain.CallID, cid domain.ConnID) error {
	call, uid, err := m.calleeCall(id, cid)
	if err != nil {
		return err
	}
	if err := call.Transition(domain.CallConnecting, m.now()); err != nil {
		return err
	}
	m.relay.SendToUser(call.CallerUserID, CallNotice{Type: TypeCallAccepted, CallID: id, From: uid})
	log.Info().Str("module", "app.calls").Str("call", string(id)).Msg("accepted")
	return nil
}

// RejectCall ends a ringing call as Rejected, tells the caller and drops the record.
func (m *CallManager) RejectCall(id domain.CallID, cid domain.ConnID) error {
	call, uid, err := m.calleeCall(id, cid)
	if err != nil {
		return err
	}
	if err := call.Transition(domain.CallRejected, m.now()); err != nil {
		return err
	}
	m.relay.SendToUser(call.CallerUserID, CallNotice{Type: TypeCallRejected, CallID: id, From: uid})
	m.remove(call)
	log.Info().Str("module", "app.calls").Str("call", string(id)).Msg("rejected")
	return nil
}

func (m *CallManager) calleeCall(id domain.CallID, cid domain.ConnID) (*domain.Call, domain.UserID, error) {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return nil, "", domain.Validation("connection is not registered")
	}
	call, ok := m.calls[id]
	if !ok {
		return nil, "", domain.InvalidState("call " + string(id) + " is not active")
	}
	if call.CalleeUserID != conn.UserID {
		return nil, "", domain.Validation("only the callee can answer call " + string(id))
	}
	return call, conn.UserID, nil
}

func (m *CallManager) RelayOffer(id domain.CallID, cid domain.ConnID, to domain.UserID, payload json.RawMessage) error {
	return m.forward(TypeCallOffer, id, cid, to, payload)
}

// RelayAnswer forwards the answer and marks a Connecting call Connected.
func (m *CallManager) RelayAnswer(id domain.CallID, cid domain.ConnID, to domain.UserID, payload json.RawMessage) error {
	return m.forward(TypeCallAnswer, id, cid, to, payload)
}

// RelayICE forwards a trickle candidate in any call state.
func (m *CallManager) RelayICE(id domain.CallID, cid domain.ConnID, to domain.UserID, payload json.RawMessage) error {
	return m.forward(TypeICECandidate, id, cid, to, payload)
}

func (m *CallManager) forward(kind string, id domain.CallID, cid domain.ConnID, to domain.UserID, payload json.RawMessage) error {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return domain.Validation("connection is not registered")
	}
	if err := ValidatePayload(payload); err != nil {
		return err
	}

	call, ok := m.calls[id]
	if !ok {
		// record already gone, fall back to the explicit target
		if to == "" {
			return domain.InvalidState("call " + string(id) + " is not active")
		}
		m.relay.SendToUser(to, CallSignal{Type: kind, CallID: id, From: conn.UserID, Payload: payload})
		return nil
	}
	if !call.Involves(conn.UserID) {
		return domain.Validation("not a party of call " + string(id))
	}
	if kind == TypeCallAnswer {
		switch call.Status {
		case domain.CallConnecting:
			if err := call.Transition(domain.CallConnected, m.now()); err != nil {
				return err
			}
			log.Info().Str("module", "app.calls").Str("call", string(id)).Msg("connected")
		case domain.CallConnected:
		default:
			return domain.InvalidState("call " + string(id) + " is " + string(call.Status))
		}
	}
	m.relay.SendToUser(call.Peer(conn.UserID), CallSignal{Type: kind, CallID: id, From: conn.UserID, Payload: payload})
	return nil
}

// EndCall notifies the other party and drops the record. Ending an unknown call still notifies to.
func (m *CallManager) EndCall(id domain.CallID, cid domain.ConnID, to domain.UserID) error {
	conn, ok := m.reg.Lookup(cid)
	if !ok {
		return domain.Validation("connection is not registered")
	}
	call, ok := m.calls[id]
	if !ok {
		if to != "" {
			m.relay.SendToUser(to, CallNotice{Type: TypeCallEnded, CallID: id, From: conn.UserID})
		}
		return nil
	}
	if !call.Involves(conn.UserID) {
		return domain.Validation("not a party of call " + string(id))
	}
	_ = call.Transition(domain.CallEnded, m.now())
	m.relay.SendToUser(call.Peer(conn.UserID), CallNotice{Type: TypeCallEnded, CallID: id, From: conn.UserID})
	m.remove(call)
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("by", string(conn.UserID)).Msg("ended")
	return nil
}

// OnDisconnect terminates every call of uid and tells the peer.
func (m *CallManager) OnDisconnect(uid domain.UserID) int {
	n := 0
	now := m.now()
	for _, call := range m.calls {
		if !call.Involves(uid) {
			continue
		}
		typ, to := TypeCallFailed, domain.CallFailed
		if call.Status == domain.CallConnected {
			typ, to = TypeCallEnded, domain.CallEnded
		}
		_ = call.Transition(to, now)
		m.relay.SendToUser(call.Peer(uid), CallNotice{Type: typ, CallID: call.ID, From: uid, Reason: ReasonPeerDisconnected})
		m.remove(call)
		log.Info().Str("module", "app.calls").Str("call", string(call.ID)).Str("user", string(uid)).Msg("party disconnected")
		n++
	}
	return n
}

// SweepStale fails calls stuck in Ringing or Connecting for longer than timeout.
func (m *CallManager) SweepStale(now time.Time, timeout time.Duration) int {
	n := 0
	for _, call := range m.calls {
		if call.Status != domain.CallRinging && call.Status != domain.CallConnecting {
			continue
		}
		if now.Sub(call.UpdatedAt) <= timeout {
			continue
		}
		_ = call.Transition(domain.CallFailed, now)
		notice := CallNotice{Type: TypeCallFailed, CallID: call.ID, Reason: ReasonTimeout}
		m.relay.SendToUser(call.CallerUserID, notice)
		m.relay.SendToUser(call.CalleeUserID, notice)
		m.remove(call)
		log.Info().Str("module", "app.calls").Str("call", string(call.ID)).Msg("timed out")
		n++
	}
	return n
}

func (m *CallManager) activeFor(uid domain.UserID) *domain.Call {
	for _, c := range m.calls {
		if c.Involves(uid) && !c.Status.Terminal() {
			return c
		}
	}
	return nil
}

func (m *CallManager) remove(call *domain.Call) {
	delete(m.calls, call.ID)
	m.reg.ClearCall(call.ID)
}
