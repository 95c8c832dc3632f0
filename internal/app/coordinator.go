package app

import (
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Coordinator routes every signaling operation to the owning room and
// applies the backpressure policy to whatever the fan-out could not
// deliver. It is the only caller of room mutations, so the per-room lock
// discipline holds for the whole system.
type Coordinator struct {
	Registry *Registry
	Rooms    *RoomManager
	Policy   Policy
	Chat     *ChatLimiter
}

// Join moves the peer into roomID, leaving its current room first so a
// connection occupies at most one room. The retry loop covers the narrow
// race where the fetched room was torn down before the member landed.
func (c *Coordinator) Join(peer domain.PeerID, roomID domain.RoomID) error {
	if err := domain.ValidRoomID(roomID); err != nil {
		return err
	}
	sess, ok := c.Registry.Get(peer)
	if !ok {
		return domain.ErrStaleRoom
	}
	if current, inRoom := c.Registry.RoomOf(peer); inRoom {
		if current == roomID {
			return nil
		}
		if err := c.Leave(peer, current); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("peer", string(peer)).
				Str("room", string(current)).Msg("leave before re-join failed")
		}
	}
	for {
		room := c.Rooms.GetOrCreate(roomID)
		if _, res, ok := room.Join(sess); ok {
			c.Registry.SetRoom(peer, roomID)
			c.applyPolicy(roomID, res)
			return nil
		}
	}
}

// Leave removes the peer from the room; the room-side cleanup (readiness,
// round cancellation, notifications) happens inside Room.Leave under the
// room lock. An empty room is removed from the manager.
func (c *Coordinator) Leave(peer domain.PeerID, roomID domain.RoomID) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	count, res, ok := room.Leave(peer)
	if !ok {
		return domain.ErrStaleRoom
	}
	c.Registry.ClearRoom(peer)
	if count == 0 {
		c.Rooms.RemoveIfEmpty(roomID)
	}
	c.applyPolicy(roomID, res)
	return nil
}

// Disconnect is the transport-close path and must behave exactly like an
// explicit leave of every occupied room; anything less leaves the
// remaining member stuck mid-negotiation.
func (c *Coordinator) Disconnect(peer domain.PeerID) {
	if roomID, ok := c.Registry.RoomOf(peer); ok {
		if err := c.Leave(peer, roomID); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("peer", string(peer)).
				Str("room", string(roomID)).Msg("leave on disconnect failed")
		}
	}
	if c.Chat != nil {
		c.Chat.Forget(peer)
	}
	c.Registry.Unbind(peer)
}

func (c *Coordinator) MarkReady(peer domain.PeerID, roomID domain.RoomID) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.MarkReady(peer)
	c.applyPolicy(roomID, res)
	return err
}

// RelayOffer swallows the glare case: a duplicate offer is logged and the
// sender deliberately not told, so a client that lost the tie-break sees
// the counterpart's offer instead of an error.
func (c *Coordinator) RelayOffer(peer domain.PeerID, roomID domain.RoomID, sdp webrtc.SessionDescription) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.RelayOffer(peer, sdp)
	c.applyPolicy(roomID, res)
	if errors.Is(err, domain.ErrDuplicateOffer) {
		log.Warn().Str("module", "app.coordinator").Str("peer", string(peer)).
			Str("room", string(roomID)).Msg("duplicate offer ignored")
		return nil
	}
	return err
}

func (c *Coordinator) RelayAnswer(peer domain.PeerID, roomID domain.RoomID, sdp webrtc.SessionDescription) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.RelayAnswer(peer, sdp)
	c.applyPolicy(roomID, res)
	return err
}

func (c *Coordinator) RelayCandidate(peer domain.PeerID, roomID domain.RoomID, cand webrtc.ICECandidateInit) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.RelayCandidate(peer, cand)
	c.applyPolicy(roomID, res)
	return err
}

func (c *Coordinator) RelayScreenStopped(peer domain.PeerID, roomID domain.RoomID) error {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.RelayScreenStopped(peer)
	c.applyPolicy(roomID, res)
	return err
}

func (c *Coordinator) RelayChat(peer domain.PeerID, roomID domain.RoomID, message string) error {
	if c.Chat != nil && !c.Chat.Allow(peer) {
		return domain.ErrRateLimited
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return domain.ErrStaleRoom
	}
	res, err := room.RelayChat(peer, message)
	c.applyPolicy(roomID, res)
	return err
}

func (c *Coordinator) applyPolicy(roomID domain.RoomID, res core.PublishResult) {
	if c.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch c.Policy.OnBackpressure(roomID, slow) {
		case KickPeer:
			log.Warn().Str("module", "app.coordinator").Str("peer", string(slow)).
				Str("room", string(roomID)).Msg("kicking slow consumer")
			c.Registry.Cancel(slow)
		case DropFrame, NoAction:
		}
	}
}
