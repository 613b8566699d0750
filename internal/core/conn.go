// Package core defines the transport-facing contracts the presence
// subsystem is built around. It owns no goroutines and no maps.
package core

import "github.com/fluxsocial/voicerelay/internal/domain"

// Frame is a raw serialized control-plane message.
type Frame []byte

// SignalConnection abstracts one live signaling transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// ID is the transport-assigned connection id, used to guard
	// against stale unregisters after a rapid reconnect.
	ID() domain.ConnID
	// TrySend enqueues without blocking and fails on backpressure.
	TrySend(Frame) error
	Close()
}
