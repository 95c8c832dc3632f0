package core

import "github.com/dkeye/Meet/internal/domain"

// peerSession implements PeerSession by pairing identity + transport.
type peerSession struct {
	id   domain.PeerID
	conn SignalConnection
}

func NewPeerSession(id domain.PeerID, conn SignalConnection) PeerSession {
	return &peerSession{id: id, conn: conn}
}

func (p *peerSession) Peer() domain.PeerID      { return p.id }
func (p *peerSession) Signal() SignalConnection { return p.conn }
