package callsig

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/domain"
)

// handleRegister binds the connection to userId. The display name is taken from info.displayName
// or info.name when present.
func (ctl *Controller) handleRegister(cl *client, env envelope) error {
	var info struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	if len(env.Info) > 0 {
		if !json.Valid(env.Info) {
			return domain.Validation("info is not valid JSON")
		}
		_ = json.Unmarshal(env.Info, &info)
	}
	name := info.DisplayName
	if name == "" {
		name = info.Name
	}
	user, err := domain.NewUser(env.UserID, name)
	if err != nil {
		return err
	}

	ctl.Orch.Attach(cl.cid, user, cl.conn)
	cl.info = env.Info
	cl.registered = true
	ctl.Orch.Relay.Reply(cl.conn, app.Registered{
		Type:         app.TypeRegistered,
		UserID:       user.ID,
		ConnectionID: cl.cid,
	})
	return nil
}
