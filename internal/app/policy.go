package app

import "github.com/dkeye/pulse/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what the relay does when a connection's send buffer is full.
type Policy interface {
	OnBackPressure(cid domain.ConnID) BackpressureAction
}

// DropPolicy discards the frame and keeps the connection.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ConnID) BackpressureAction { return DropFrame }

// KickPolicy closes a connection that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ConnID) BackpressureAction { return KickMember }

// PolicyByName maps the config value to a policy; unknown names kick.
func PolicyByName(name string) Policy {
	switch name {
	case "drop":
		return DropPolicy{}
	default:
		return KickPolicy{}
	}
}
