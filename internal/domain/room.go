package domain

// RoomID is the caller-supplied room key. Not validated for collisions;
// whoever knows the key may join.
type RoomID string

const MaxRoomIDLen = 64
