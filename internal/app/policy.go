package app

import "soundcast/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickClient
)

// Policy decides what happens to a connection that could not accept a
// broadcast frame.
type Policy interface {
	OnBackpressure(sid core.SessionID) BackpressureAction
}

// KickPolicy drops unresponsive connections instead of letting them stall
// future broadcasts. Reconnection is the client's job.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(core.SessionID) BackpressureAction {
	return KickClient
}
