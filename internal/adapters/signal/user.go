package signal

import (
	"strings"

	"github.com/dkeye/pulse/internal/domain"
)

// identityPayload is the optional identity carried by create-room and join-room.
type identityPayload struct {
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// user validates the payload identity; nil means keep the session identity.
func (p identityPayload) user() (*domain.User, error) {
	id := strings.TrimSpace(p.UserID)
	if id == "" && strings.TrimSpace(p.DisplayName) == "" {
		return nil, nil
	}
	if len(id) > domain.MaxUserIDLen {
		return nil, domain.Validation("userId too long")
	}
	name, err := domain.NormalizeDisplayName(p.DisplayName)
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: domain.UserID(id), DisplayName: name}, nil
}
