package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

// reportErr maps coordinator errors onto client-visible error frames.
// Only the offending sender ever hears about them.
func (ctl *Controller) reportErr(c *wsConn, peer domain.PeerID, event string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleRoom):
		ctl.sendError(c, protocol.CodeStaleRoom, "room or membership no longer exists")
	case errors.Is(err, domain.ErrRateLimited):
		ctl.sendError(c, protocol.CodeRateLimited, "too many messages")
	case errors.Is(err, domain.ErrRoomIDEmpty), errors.Is(err, domain.ErrRoomIDTooLong):
		ctl.sendError(c, protocol.CodeBadPayload, err.Error())
	default:
		log.Error().Err(err).Str("module", "signal").Str("peer", string(peer)).Str("event", event).Msg("handler error")
	}
}

func (ctl *Controller) handleJoin(peer domain.PeerID, c *wsConn, env protocol.Envelope) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("room", string(env.Room)).Msg("join-room")
	ctl.reportErr(c, peer, env.Event, ctl.Coord.Join(peer, env.Room))
}

func (ctl *Controller) handleLeave(peer domain.PeerID, c *wsConn, env protocol.Envelope) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("room", string(env.Room)).Msg("leave-room")
	ctl.reportErr(c, peer, env.Event, ctl.Coord.Leave(peer, env.Room))
}

func (ctl *Controller) handleReady(peer domain.PeerID, c *wsConn, env protocol.Envelope) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("room", string(env.Room)).Msg("ready")
	ctl.reportErr(c, peer, env.Event, ctl.Coord.MarkReady(peer, env.Room))
}

func (ctl *Controller) handleOffer(peer domain.PeerID, c *wsConn, data []byte) {
	var p protocol.OfferPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Offer.SDP == "" {
		log.Warn().Str("module", "signal").Str("peer", string(peer)).Msg("bad offer payload")
		ctl.sendError(c, protocol.CodeBadPayload, "invalid offer")
		return
	}
	ctl.reportErr(c, peer, p.Event, ctl.Coord.RelayOffer(peer, p.Room, p.Offer))
}

func (ctl *Controller) handleAnswer(peer domain.PeerID, c *wsConn, data []byte) {
	var p protocol.AnswerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Answer.SDP == "" {
		log.Warn().Str("module", "signal").Str("peer", string(peer)).Msg("bad answer payload")
		ctl.sendError(c, protocol.CodeBadPayload, "invalid answer")
		return
	}
	ctl.reportErr(c, peer, p.Event, ctl.Coord.RelayAnswer(peer, p.Room, p.Answer))
}

func (ctl *Controller) handleCandidate(peer domain.PeerID, c *wsConn, data []byte) {
	var p protocol.CandidatePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Candidate.Candidate == "" {
		log.Warn().Str("module", "signal").Str("peer", string(peer)).Msg("bad candidate payload")
		ctl.sendError(c, protocol.CodeBadPayload, "invalid candidate")
		return
	}
	ctl.reportErr(c, peer, p.Event, ctl.Coord.RelayCandidate(peer, p.Room, p.Candidate))
}

func (ctl *Controller) handleScreenStopped(peer domain.PeerID, c *wsConn, env protocol.Envelope) {
	ctl.reportErr(c, peer, env.Event, ctl.Coord.RelayScreenStopped(peer, env.Room))
}

func (ctl *Controller) handleChat(peer domain.PeerID, c *wsConn, data []byte) {
	var p protocol.ChatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		log.Warn().Str("module", "signal").Str("peer", string(peer)).Msg("bad chat payload")
		ctl.sendError(c, protocol.CodeBadPayload, "invalid message")
		return
	}
	ctl.reportErr(c, peer, p.Event, ctl.Coord.RelayChat(peer, p.Room, p.Message))
}
