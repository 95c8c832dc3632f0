package core

import "github.com/dkeye/Meet/internal/domain"

// Frame is an encoded outbound signaling message.
type Frame []byte

// SignalConnection abstracts the messaging transport of one peer.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PeerSession binds a peer identity to its transport endpoint.
// This is what a room stores and fans out to.
type PeerSession interface {
	Peer() domain.PeerID
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.PeerID
}

func (r *PublishResult) Merge(other PublishResult) {
	r.SentTo += other.SentTo
	r.Dropped = append(r.Dropped, other.Dropped...)
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID    domain.PeerID `json:"id"`
	Ready bool          `json:"ready"`
}

// RoomInfo is the list-endpoint view of a room.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}
