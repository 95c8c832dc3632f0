package app

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

// round is one offer/answer exchange. At most one per room; owned by the
// room and mutated only under its lock.
type round struct {
	initiator domain.PeerID
	responder domain.PeerID // empty until known
	state     core.RoundState
	startedAt time.Time
}

func (n *round) involves(peer domain.PeerID) bool {
	return n.initiator == peer || n.responder == peer || n.responder == ""
}

// Room is a threadsafe in-memory room: membership set, readiness order and
// the negotiation round, all guarded by one mutex. Decisions and the
// TrySend fan-out happen under the lock so concurrent operations on the
// same room cannot reorder each other's deliveries; sends are non-blocking
// channel writes, never network I/O.
type Room struct {
	id domain.RoomID

	mu      sync.Mutex
	members map[domain.PeerID]core.PeerSession
	ready   []domain.PeerID // join order of ready calls, subset of members
	round   *round
	closed  bool
	lastTS  int64 // last chat timestamp handed out, unix ms
}

func NewRoom(id domain.RoomID) *Room {
	return &Room{
		id:      id,
		members: make(map[domain.PeerID]core.PeerSession),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) MembersSnapshot() []core.MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.MemberDTO, 0, len(r.members))
	for id := range r.members {
		out = append(out, core.MemberDTO{ID: id, Ready: r.isReady(id)})
	}
	return out
}

// State reports the current round state, RoundIdle when none is in flight.
func (r *Room) State() core.RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round == nil {
		return core.RoundIdle
	}
	return r.round.state
}

// Join adds the peer and broadcasts the refreshed count to everyone plus a
// user-joined notice to the others. ok is false when the room was already
// torn down; the caller must fetch a fresh instance and retry.
func (r *Room) Join(sess core.PeerSession) (count int, res core.PublishResult, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, res, false
	}
	peer := sess.Peer()
	r.members[peer] = sess

	count = len(r.members)
	res.Merge(r.broadcast(protocol.RoomUserCount(r.id, count), ""))
	res.Merge(r.broadcast(protocol.UserJoined(r.id, peer), peer))
	log.Info().Str("module", "app.room").Str("room", string(r.id)).Str("peer", string(peer)).Int("count", count).Msg("member joined")
	return count, res, true
}

// Leave removes the peer, clears its readiness, cancels any round it took
// part in and notifies the remaining members. The transport-close path
// calls this too; there is no separate crash path.
func (r *Room) Leave(peer domain.PeerID) (count int, res core.PublishResult, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[peer]; !member {
		return len(r.members), res, false
	}
	delete(r.members, peer)
	r.dropReady(peer)
	if r.round != nil && r.round.involves(peer) {
		log.Info().Str("module", "app.room").Str("room", string(r.id)).Str("peer", string(peer)).
			Str("state", r.round.state.String()).Msg("round cancelled by departure")
		r.round = nil
	}

	count = len(r.members)
	res.Merge(r.broadcast(protocol.RoomUserCount(r.id, count), ""))
	res.Merge(r.broadcast(protocol.UserLeft(r.id, peer), ""))
	log.Info().Str("module", "app.room").Str("room", string(r.id)).Str("peer", string(peer)).Int("count", count).Msg("member left")
	return count, res, true
}

// MarkReady records that the peer has usable local media. The call that
// grows the ready set to a pair designates the caller as initiator: the
// caller learns that first (peer-ready with initiator=true naming the
// counterpart), then the rest of the room is told the caller is ready.
// A repeated ready from the same peer is a no-op.
func (r *Room) MarkReady(peer domain.PeerID) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[peer]; !member {
		return res, domain.ErrStaleRoom
	}
	if r.isReady(peer) {
		return res, nil
	}
	r.ready = append(r.ready, peer)

	if r.round == nil {
		if counterpart, paired := r.firstReadyOther(peer); paired {
			r.round = &round{
				initiator: peer,
				responder: counterpart,
				state:     core.RoundOfferPending,
				startedAt: time.Now(),
			}
			res.Merge(r.sendTo(peer, protocol.PeerReady(r.id, counterpart, true)))
			log.Info().Str("module", "app.room").Str("room", string(r.id)).
				Str("initiator", string(peer)).Str("responder", string(counterpart)).Msg("round opened")
		}
	}
	res.Merge(r.broadcast(protocol.PeerReady(r.id, peer, false), peer))
	return res, nil
}

// RelayOffer forwards the initiator's offer and moves the round to
// OfferSent. A competing offer from the other side while a round is in
// flight is the glare case: dropped with ErrDuplicateOffer, the sender is
// not told. An offer while Connected starts a renegotiation round.
func (r *Room) RelayOffer(from domain.PeerID, sdp webrtc.SessionDescription) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[from]; !member {
		return res, domain.ErrStaleRoom
	}

	switch {
	case r.round == nil:
		// Readiness tie-break was bypassed (client offered without the
		// ready handshake); accept it as a fresh round.
		r.round = &round{initiator: from, state: core.RoundOfferSent, startedAt: time.Now()}
	case r.round.state == core.RoundOfferPending && from == r.round.initiator:
		r.round.state = core.RoundOfferSent
	case r.round.state == core.RoundConnected:
		responder := r.round.responder
		if from != r.round.initiator {
			responder = r.round.initiator
		}
		r.round = &round{initiator: from, responder: responder, state: core.RoundOfferSent, startedAt: time.Now()}
	case from == r.round.initiator:
		// Initiator re-offer (e.g. ICE restart) while OfferSent.
	default:
		return res, domain.ErrDuplicateOffer
	}

	res.Merge(r.broadcast(protocol.Offer(r.id, from, sdp), from))
	return res, nil
}

// RelayAnswer forwards the responder's answer while a round is OfferSent
// and completes it. Answers arriving in any other state never existed as
// far as the rest of the room is concerned.
func (r *Room) RelayAnswer(from domain.PeerID, sdp webrtc.SessionDescription) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[from]; !member {
		return res, domain.ErrStaleRoom
	}
	if r.round == nil || r.round.state != core.RoundOfferSent || from == r.round.initiator {
		state := core.RoundIdle
		if r.round != nil {
			state = r.round.state
		}
		log.Warn().Str("module", "app.room").Str("room", string(r.id)).Str("peer", string(from)).
			Str("state", state.String()).Msg("answer dropped outside offer-sent")
		return res, nil
	}
	r.round.responder = from
	r.round.state = core.RoundConnected
	res.Merge(r.broadcast(protocol.Answer(r.id, from, sdp), from))
	return res, nil
}

// RelayCandidate forwards an ICE candidate regardless of round state; the
// receiving peer connection buffers early candidates itself.
func (r *Room) RelayCandidate(from domain.PeerID, c webrtc.ICECandidateInit) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[from]; !member {
		return res, domain.ErrStaleRoom
	}
	res.Merge(r.broadcast(protocol.Candidate(r.id, from, c), from))
	return res, nil
}

// RelayScreenStopped announces a track change so remote rendering can
// adjust; the media line itself is swapped sender-side without SDP work.
func (r *Room) RelayScreenStopped(from domain.PeerID) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[from]; !member {
		return res, domain.ErrStaleRoom
	}
	res.Merge(r.broadcast(protocol.ScreenStopped(r.id, from), from))
	return res, nil
}

// RelayChat forwards an opaque text payload with the sender id and a
// relay-assigned timestamp. Timestamps never go backwards within a room.
func (r *Room) RelayChat(from domain.PeerID, message string) (res core.PublishResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[from]; !member {
		return res, domain.ErrStaleRoom
	}
	ts := time.Now().UnixMilli()
	if ts < r.lastTS {
		ts = r.lastTS
	}
	r.lastTS = ts
	res.Merge(r.broadcast(protocol.ReceiveMessage(r.id, from, message, ts), from))
	return res, nil
}

// close marks the room dead so a racing Join cannot land in an instance
// that was already removed from the manager. Caller: RoomManager only.
func (r *Room) close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

// broadcast fans a frame out to every member except exclude. Must be
// called with the lock held.
func (r *Room) broadcast(frame core.Frame, exclude domain.PeerID) (res core.PublishResult) {
	if frame == nil {
		return res
	}
	for id, sess := range r.members {
		if id == exclude {
			continue
		}
		if err := sess.Signal().TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	return res
}

func (r *Room) sendTo(peer domain.PeerID, frame core.Frame) (res core.PublishResult) {
	sess, ok := r.members[peer]
	if !ok || frame == nil {
		return res
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		res.Dropped = append(res.Dropped, peer)
		return res
	}
	res.SentTo = 1
	return res
}

func (r *Room) isReady(peer domain.PeerID) bool {
	for _, id := range r.ready {
		if id == peer {
			return true
		}
	}
	return false
}

func (r *Room) dropReady(peer domain.PeerID) {
	for i, id := range r.ready {
		if id == peer {
			r.ready = append(r.ready[:i], r.ready[i+1:]...)
			return
		}
	}
}

// firstReadyOther returns the earliest peer besides the caller that is
// still ready, i.e. the counterpart that will answer.
func (r *Room) firstReadyOther(peer domain.PeerID) (domain.PeerID, bool) {
	for _, id := range r.ready {
		if id != peer {
			return id, true
		}
	}
	return "", false
}
