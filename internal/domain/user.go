// Package domain contains entities and their invariants, without transport or scheduling logic.
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 50
)

type (
	UserID string
	ConnID string
)

// User is the identity the session layer hands to the core.
type User struct {
	ID          UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

// NewUser validates an identity supplied by the session layer or a payload.
// An empty display name falls back to the user id.
func NewUser(id, displayName string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, Validation("userId is required")
	}
	if len(id) > MaxUserIDLen {
		return User{}, Validation("userId too long")
	}
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return User{}, err
	}
	if name == "" {
		name = id
	}
	return User{ID: UserID(id), DisplayName: name}, nil
}

func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !utf8.ValidString(name) {
		return "", Validation("display name contains invalid characters")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return "", Validation("display name too long")
	}
	return name, nil
}
