package core

// RoundState tracks one offer/answer exchange within a room.
//
//	Idle -> OfferPending -> OfferSent -> Connected -> Idle
//
// OfferPending means readiness completed and an initiator was designated,
// but its offer has not arrived yet. Peer departure forces any state back
// to Idle; a fresh offer while Connected starts a renegotiation round.
type RoundState int

const (
	RoundIdle RoundState = iota
	RoundOfferPending
	RoundOfferSent
	RoundConnected
)

func (s RoundState) String() string {
	switch s {
	case RoundIdle:
		return "idle"
	case RoundOfferPending:
		return "offer-pending"
	case RoundOfferSent:
		return "offer-sent"
	case RoundConnected:
		return "connected"
	default:
		return "unknown"
	}
}
