// Package domain contains entities without logic, just meta-data.
package domain

// PeerID identifies one signaling connection. It doubles as the value
// broadcast to other room members in user-joined / receive-message events,
// so it must stay opaque and stable for the connection's lifetime.
type PeerID string

const MaxPeerIDLen = 36
