package signal

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/rs/zerolog/log"
)

const protocol = "room"

// handleSignal decodes on the reader goroutine and runs the handler as a Hub task.
func (ctl *SignalWSController) handleSignal(cid domain.ConnID, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad json")
		ctl.Hub.Post(func() {
			ctl.Orch.Touch(cid)
			ctl.sendError(cid, c, domain.Validation("malformed message"), "")
		})
		return
	}
	ctl.Metrics.MessageIn(protocol, env.Type)

	ctl.Hub.Post(func() {
		ctl.Orch.Touch(cid)
		var err error
		switch env.Type {
		case "create-room":
			err = ctl.handleCreate(cid, data)
		case "join-room":
			err = ctl.handleJoin(cid, data)
		case "leave-room":
			err = ctl.handleLeave(cid, data)
		case "chat":
			err = ctl.handleChat(cid, data)
		case app.TypeWebRTCOffer, app.TypeWebRTCAnswer, app.TypeWebRTCCandidate:
			err = ctl.handleRelay(cid, env.Type, data)
		case "ping", "heartbeat":
			ctl.handlePing(c)
		default:
			log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
			err = domain.Validation("unknown message type " + env.Type)
		}
		if err != nil {
			ctl.sendError(cid, c, err, env.Type)
		}
	})
}

func (ctl *SignalWSController) sendError(cid domain.ConnID, c core.SignalConnection, err error, request string) {
	code := domain.CodeOf(err)
	ctl.Metrics.Error(string(code))
	ev := log.Warn()
	if code == domain.CodeInternal {
		ev = log.Error()
	}
	ev.Err(err).Str("module", "signal").Str("cid", string(cid)).Str("request", request).Msg("request failed")
	ctl.Orch.Relay.Reply(c, app.NewErrorEvent(err, request))
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return domain.Validation("bad payload")
	}
	return nil
}
