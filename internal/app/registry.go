package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type sessionEntry struct {
	Room    domain.RoomID // empty while not in a room
	Session core.PeerSession
	Cancel  context.CancelFunc
}

// Registry tracks live signaling sessions and which room each occupies
// (at most one). It is the lookup side; membership truth lives in rooms.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.PeerID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.PeerID]*sessionEntry)}
}

func (r *Registry) Bind(peer domain.PeerID, sess core.PeerSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[peer] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("session bound")
}

func (r *Registry) Unbind(peer domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, peer)
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("session unbound")
}

func (r *Registry) Get(peer domain.PeerID) (core.PeerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[peer]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) SetRoom(peer domain.PeerID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[peer]
	if !ok {
		return false
	}
	e.Room = room
	return true
}

func (r *Registry) ClearRoom(peer domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[peer]; ok {
		e.Room = ""
	}
}

func (r *Registry) RoomOf(peer domain.PeerID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[peer]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

// Cancel fires the session's context cancel, which unwinds the transport
// pumps and takes the normal disconnect path.
func (r *Registry) Cancel(peer domain.PeerID) bool {
	r.mu.RLock()
	e, ok := r.sessions[peer]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("session cancelled")
	return true
}
