package domain

import "errors"

var (
	// ErrStaleRoom means the room/peer pairing no longer exists, typically a
	// message that raced with a disconnect. Surfaced only to the sender.
	ErrStaleRoom = errors.New("stale room")

	// ErrDuplicateOffer means a second offer arrived while a negotiation
	// round was already in flight. Logged and dropped, never sent back.
	ErrDuplicateOffer = errors.New("duplicate offer")

	// ErrRoomIDEmpty / ErrRoomIDTooLong reject malformed room keys.
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")

	// ErrRateLimited means the peer exceeded its chat message budget.
	ErrRateLimited = errors.New("rate limited")
)

// ValidRoomID checks the caller-supplied key before it reaches the registry.
func ValidRoomID(id RoomID) error {
	if id == "" {
		return ErrRoomIDEmpty
	}
	if len(id) > MaxRoomIDLen {
		return ErrRoomIDTooLong
	}
	return nil
}
