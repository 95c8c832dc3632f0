package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, peer domain.PeerID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("peer", string(peer)).Msg("readPump closing")
		ctl.Coord.Disconnect(peer)
		c.Close()
	}()

	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("peer", string(peer)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("peer", string(peer)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(peer, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(peer domain.PeerID, c *wsConn, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", string(peer)).Msg("bad json")
		ctl.sendError(c, protocol.CodeBadPayload, "malformed message")
		return
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		ctl.handleJoin(peer, c, env)
	case protocol.EventLeaveRoom:
		ctl.handleLeave(peer, c, env)
	case protocol.EventReady:
		ctl.handleReady(peer, c, env)
	case protocol.EventOffer:
		ctl.handleOffer(peer, c, data)
	case protocol.EventAnswer:
		ctl.handleAnswer(peer, c, data)
	case protocol.EventICECandidate:
		ctl.handleCandidate(peer, c, data)
	case protocol.EventScreenStopped:
		ctl.handleScreenStopped(peer, c, env)
	case protocol.EventSendMessage:
		ctl.handleChat(peer, c, data)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown event")
	}
}

func (ctl *Controller) sendFrame(c *wsConn, f core.Frame) {
	if f == nil {
		return
	}
	_ = c.TrySend(f)
}

func (ctl *Controller) sendError(c *wsConn, code, detail string) {
	ctl.sendFrame(c, protocol.Error(code, detail))
}
