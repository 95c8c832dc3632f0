// Package protocol defines the JSON wire format spoken over the signaling
// WebSocket. Every message is a flat object tagged with an "event" field;
// SDP and ICE payloads are carried verbatim and never interpreted here.
package protocol

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Client -> relay events.
const (
	EventJoinRoom      = "join-room"
	EventReady         = "ready"
	EventOffer         = "offer"
	EventAnswer        = "answer"
	EventICECandidate  = "ice-candidate"
	EventScreenStopped = "screen-stopped"
	EventSendMessage   = "send-message"
	EventLeaveRoom     = "leave-room"
)

// Relay -> client events. Offer/answer/candidate/screen-stopped keep the
// inbound names when relayed.
const (
	EventRoomUserCount  = "room-user-count"
	EventUserJoined     = "user-joined"
	EventPeerReady      = "peer-ready"
	EventUserLeft       = "user-left"
	EventReceiveMessage = "receive-message"
	EventError          = "error"
)

// Error codes carried by EventError frames.
const (
	CodeStaleRoom   = "stale-room"
	CodeBadPayload  = "bad-payload"
	CodeRateLimited = "rate-limited"
)

// Envelope is the minimal shape every inbound message must satisfy.
type Envelope struct {
	Event string        `json:"event"`
	Room  domain.RoomID `json:"room"`
}

// DecodeEnvelope peels off the event tag; handlers re-decode the full
// payload with their own structs.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Inbound payloads with fields beyond the envelope.

type OfferPayload struct {
	Event string                    `json:"event"`
	Room  domain.RoomID             `json:"room"`
	Offer webrtc.SessionDescription `json:"offer"`
}

type AnswerPayload struct {
	Event  string                    `json:"event"`
	Room   domain.RoomID             `json:"room"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type CandidatePayload struct {
	Event     string                  `json:"event"`
	Room      domain.RoomID           `json:"room"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type ChatPayload struct {
	Event   string        `json:"event"`
	Room    domain.RoomID `json:"room"`
	Message string        `json:"message"`
}

// encode never fails for the value types below; a marshal error means a
// programming bug, so it is logged and the frame dropped.
func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "protocol").Msg("encode frame")
		return nil
	}
	return b
}

func RoomUserCount(room domain.RoomID, count int) core.Frame {
	return encode(struct {
		Event string        `json:"event"`
		Room  domain.RoomID `json:"room"`
		Count int           `json:"count"`
	}{EventRoomUserCount, room, count})
}

func UserJoined(room domain.RoomID, peer domain.PeerID) core.Frame {
	return encode(struct {
		Event string        `json:"event"`
		Room  domain.RoomID `json:"room"`
		Peer  domain.PeerID `json:"peer"`
	}{EventUserJoined, room, peer})
}

func UserLeft(room domain.RoomID, peer domain.PeerID) core.Frame {
	return encode(struct {
		Event string        `json:"event"`
		Room  domain.RoomID `json:"room"`
		Peer  domain.PeerID `json:"peer"`
	}{EventUserLeft, room, peer})
}

// PeerReady tells a member that peer has media ready. Initiator is set on
// exactly one frame per round: the one delivered to the peer expected to
// create the offer.
func PeerReady(room domain.RoomID, peer domain.PeerID, initiator bool) core.Frame {
	return encode(struct {
		Event     string        `json:"event"`
		Room      domain.RoomID `json:"room"`
		Peer      domain.PeerID `json:"peer"`
		Initiator bool          `json:"initiator"`
	}{EventPeerReady, room, peer, initiator})
}

func Offer(room domain.RoomID, from domain.PeerID, sdp webrtc.SessionDescription) core.Frame {
	return encode(struct {
		Event string                    `json:"event"`
		Room  domain.RoomID             `json:"room"`
		From  domain.PeerID             `json:"from"`
		Offer webrtc.SessionDescription `json:"offer"`
	}{EventOffer, room, from, sdp})
}

func Answer(room domain.RoomID, from domain.PeerID, sdp webrtc.SessionDescription) core.Frame {
	return encode(struct {
		Event  string                    `json:"event"`
		Room   domain.RoomID             `json:"room"`
		From   domain.PeerID             `json:"from"`
		Answer webrtc.SessionDescription `json:"answer"`
	}{EventAnswer, room, from, sdp})
}

func Candidate(room domain.RoomID, from domain.PeerID, c webrtc.ICECandidateInit) core.Frame {
	return encode(struct {
		Event     string                  `json:"event"`
		Room      domain.RoomID           `json:"room"`
		From      domain.PeerID           `json:"from"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}{EventICECandidate, room, from, c})
}

func ScreenStopped(room domain.RoomID, from domain.PeerID) core.Frame {
	return encode(struct {
		Event string        `json:"event"`
		Room  domain.RoomID `json:"room"`
		From  domain.PeerID `json:"from"`
	}{EventScreenStopped, room, from})
}

// ReceiveMessage carries relayed chat. Timestamp is relay-assigned Unix
// milliseconds, non-decreasing per sender.
func ReceiveMessage(room domain.RoomID, sender domain.PeerID, message string, ts int64) core.Frame {
	return encode(struct {
		Event     string        `json:"event"`
		Room      domain.RoomID `json:"room"`
		Sender    domain.PeerID `json:"sender"`
		Message   string        `json:"message"`
		Timestamp int64         `json:"timestamp"`
	}{EventReceiveMessage, room, sender, message, ts})
}

func Error(code, detail string) core.Frame {
	return encode(struct {
		Event  string `json:"event"`
		Code   string `json:"code"`
		Detail string `json:"detail,omitempty"`
	}{EventError, code, detail})
}
