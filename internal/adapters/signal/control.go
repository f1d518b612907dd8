package signal

import (
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/core"
)

func (ctl *SignalWSController) handlePing(c core.SignalConnection) {
	ctl.Orch.Relay.Reply(c, app.Simple{Type: app.TypePong})
}
