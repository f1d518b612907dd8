package signal

import (
	"encoding/json"

	"github.com/dkeye/pulse/internal/domain"
)

// handleRelay forwards webrtc-offer, webrtc-answer and webrtc-ice-candidate between room members.
func (ctl *SignalWSController) handleRelay(cid domain.ConnID, kind string, data []byte) error {
	var p struct {
		RoomID       string          `json:"roomId"`
		TargetUserID string          `json:"targetUserId"`
		Payload      json.RawMessage `json:"payload"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.TargetUserID == "" {
		return domain.Validation("targetUserId is required")
	}
	id := domain.NormalizeRoomCode(p.RoomID)
	if p.RoomID == "" {
		conn, _ := ctl.Orch.Registry.Lookup(cid)
		id = conn.RoomID
	}
	return ctl.Orch.Rooms.RelaySignal(id, cid, domain.UserID(p.TargetUserID), kind, p.Payload)
}
