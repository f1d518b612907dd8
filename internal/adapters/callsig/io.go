package callsig

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Type    string          `json:"type"`
	CallID  string          `json:"callId,omitempty"`
	To      string          `json:"to,omitempty"`
	From    string          `json:"from,omitempty"`
	UserID  string          `json:"userId,omitempty"`
	IsVideo bool            `json:"isVideo,omitempty"`
	Info    json.RawMessage `json:"info,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (ctl *Controller) handleMessage(cl *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "callsig").Str("cid", string(cl.cid)).Msg("bad json")
		ctl.Hub.Post(func() { ctl.sendError(cl, domain.Validation("malformed message"), "") })
		return
	}
	ctl.Metrics.MessageIn(protocol, env.Type)

	ctl.Hub.Post(func() {
		ctl.Orch.Touch(cl.cid)
		if err := ctl.dispatch(cl, env); err != nil {
			ctl.sendError(cl, err, env.Type)
		}
	})
}

func (ctl *Controller) dispatch(cl *client, env envelope) error {
	if env.Type == "register" {
		return ctl.handleRegister(cl, env)
	}
	if env.Type == "heartbeat" {
		ctl.Orch.Relay.Reply(cl.conn, app.Simple{Type: app.TypeHeartbeatAck})
		return nil
	}
	if !cl.registered {
		return domain.Validation("register first")
	}

	calls := ctl.Orch.Calls
	id := domain.CallID(env.CallID)
	to := domain.UserID(env.To)
	switch env.Type {
	case "call-request":
		_, err := calls.RequestCall(cl.cid, to, id, env.IsVideo, cl.info)
		if domain.CodeOf(err) == domain.CodePeerUnavailable {
			// the caller already got call-failed
			return nil
		}
		return err
	case "call-accept":
		return calls.AcceptCall(id, cl.cid)
	case "call-reject":
		return calls.RejectCall(id, cl.cid)
	case "call-offer":
		return calls.RelayOffer(id, cl.cid, to, env.Payload)
	case "call-answer":
		return calls.RelayAnswer(id, cl.cid, to, env.Payload)
	case "ice-candidate":
		return calls.RelayICE(id, cl.cid, to, env.Payload)
	case "call-end":
		return calls.EndCall(id, cl.cid, to)
	default:
		log.Warn().Str("module", "callsig").Str("type", env.Type).Msg("unknown signal")
		return domain.Validation("unknown message type " + env.Type)
	}
}

func (ctl *Controller) sendError(cl *client, err error, request string) {
	code := domain.CodeOf(err)
	ctl.Metrics.Error(string(code))
	ev := log.Warn()
	if code == domain.CodeInternal {
		ev = log.Error()
	}
	ev.Err(err).Str("module", "callsig").Str("cid", string(cl.cid)).Str("request", request).Msg("request failed")
	ctl.Orch.Relay.Reply(cl.conn, app.NewErrorEvent(err, request))
}
