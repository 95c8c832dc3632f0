package app

import "github.com/dkeye/Meet/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickPeer
)

// Policy decides what happens to a member whose send buffer stayed full
// during a fan-out.
type Policy interface {
	OnBackpressure(room domain.RoomID, peer domain.PeerID) BackpressureAction
}

// KickSlowPolicy disconnects slow consumers so they re-enter through the
// normal join path instead of accumulating stale negotiation state.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(room domain.RoomID, peer domain.PeerID) BackpressureAction {
	return KickPeer
}
