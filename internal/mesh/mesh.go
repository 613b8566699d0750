// Package mesh is the client-side peer-mesh manager: one independent
// point-to-point media connection per other participant in the same room,
// negotiated through the server's signaling relay. No server ever touches
// the media; the topology is a full mesh.
package mesh

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// Signaler is the manager's only channel to other peers: it submits
// opaque negotiation payloads to the relay, addressed by user id.
type Signaler interface {
	SendOffer(to domain.UserID, sdp webrtc.SessionDescription) error
	SendAnswer(to domain.UserID, sdp webrtc.SessionDescription) error
	SendCandidate(to domain.UserID, cand webrtc.ICECandidateInit) error
}

const defaultNegotiationTimeout = 30 * time.Second

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// Manager drives the per-peer negotiation state machines for one joined
// room. Role assignment is deterministic: peers already in the room
// initiate toward a newcomer when peer-joined arrives; the newcomer
// answers the incoming offers. Exactly one offer per pair, no glare.
type Manager struct {
	self     domain.UserID
	room     domain.RoomID
	cfg      webrtc.Configuration
	signaler Signaler
	source   Source
	track    webrtc.TrackLocal
	timeout  time.Duration

	mu     sync.Mutex
	links  map[domain.UserID]*Link
	closed bool
}

func NewManager(self domain.UserID, room domain.RoomID, signaler Signaler, source Source, cfg webrtc.Configuration) *Manager {
	return &Manager{
		self:     self,
		room:     room,
		cfg:      cfg,
		signaler: signaler,
		source:   source,
		timeout:  defaultNegotiationTimeout,
		links:    make(map[domain.UserID]*Link),
	}
}

// Start acquires the local media source. An acquisition failure aborts
// the join before any server-side state exists.
func (m *Manager) Start() error {
	track, err := m.source.Open()
	if err != nil {
		return fmt.Errorf("acquire media source: %w", err)
	}
	m.track = track
	return nil
}

// SetMuted mirrors the server-side voice state on the local source.
// Deafened implies muted; the caller passes the normalized state.
func (m *Manager) SetMuted(muted bool) {
	m.source.SetMuted(muted)
}

// Peers reports the live links and their states.
func (m *Manager) Peers() map[domain.UserID]LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.UserID]LinkState, len(m.links))
	for peer, l := range m.links {
		out[peer] = l.State()
	}
	return out
}

// HandlePeerJoined reacts to a peer that appeared after the local user
// joined: initiator role. A fresh link is created, the offer goes out
// through the relay, and a timer fails just this edge if negotiation
// never completes.
func (m *Manager) HandlePeerJoined(peer domain.UserID) {
	if peer == m.self {
		return
	}
	l, err := m.newLinkFor(peer)
	if err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(peer)).Msg("create link")
		return
	}
	offer, err := l.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(peer)).Msg("create offer")
		m.dropLink(peer)
		return
	}
	if err := m.signaler.SendOffer(peer, offer); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(peer)).Msg("send offer")
		m.dropLink(peer)
		return
	}
	m.armTimeout(peer, l)
}

// HandleOffer reacts to an offer from a peer: responder role. An offer
// for an already-known peer replaces the stale link; the remote side has
// restarted negotiation.
func (m *Manager) HandleOffer(from domain.UserID, payload json.RawMessage) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("bad offer payload")
		return
	}

	m.dropLink(from)
	l, err := m.newLinkFor(from)
	if err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("create link")
		return
	}
	answer, err := l.ApplyOffer(offer)
	if err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("apply offer")
		m.dropLink(from)
		return
	}
	if err := m.signaler.SendAnswer(from, answer); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("send answer")
		m.dropLink(from)
		return
	}
	m.armTimeout(from, l)
}

func (m *Manager) HandleAnswer(from domain.UserID, payload json.RawMessage) {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("bad answer payload")
		return
	}
	l, ok := m.link(from)
	if !ok {
		log.Warn().Str("module", "mesh").Str("peer", string(from)).Msg("answer for unknown peer")
		return
	}
	if err := l.ApplyAnswer(answer); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("apply answer")
		m.dropLink(from)
	}
}

func (m *Manager) HandleCandidate(from domain.UserID, payload json.RawMessage) {
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &cand); err != nil {
		log.Error().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("bad candidate payload")
		return
	}
	l, ok := m.link(from)
	if !ok {
		log.Warn().Str("module", "mesh").Str("peer", string(from)).Msg("candidate for unknown peer")
		return
	}
	if err := l.AddCandidate(cand); err != nil {
		log.Warn().Err(err).Str("module", "mesh").Str("peer", string(from)).Msg("add candidate")
	}
}

// HandlePeerLeft tears down the one link to the departed peer.
func (m *Manager) HandlePeerLeft(peer domain.UserID) {
	m.dropLink(peer)
}

// HandleUnreachable fails the edge to a peer the relay could not deliver
// to, so it does not sit in negotiating forever.
func (m *Manager) HandleUnreachable(peer domain.UserID) {
	log.Warn().Str("module", "mesh").Str("peer", string(peer)).Msg("peer unreachable, dropping edge")
	m.dropLink(peer)
}

// Close is the unconditional cleanup path on leave or disconnect: every
// link torn down regardless of state, local media source released.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.links = make(map[domain.UserID]*Link)
	m.mu.Unlock()

	for _, l := range links {
		l.Close()
	}
	if err := m.source.Close(); err != nil {
		log.Warn().Err(err).Str("module", "mesh").Msg("source close")
	}
}

func (m *Manager) newLinkFor(peer domain.UserID) (*Link, error) {
	onCandidate := func(c webrtc.ICECandidateInit) {
		if err := m.signaler.SendCandidate(peer, c); err != nil {
			log.Warn().Err(err).Str("module", "mesh").Str("peer", string(peer)).Msg("send candidate")
		}
	}
	l, err := newLink(m.cfg, peer, m.track, onCandidate, m.forgetLink)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		l.Close()
		return nil, fmt.Errorf("mesh closed")
	}
	m.links[peer] = l
	m.mu.Unlock()
	return l, nil
}

func (m *Manager) link(peer domain.UserID) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[peer]
	return l, ok
}

func (m *Manager) dropLink(peer domain.UserID) {
	m.mu.Lock()
	l, ok := m.links[peer]
	delete(m.links, peer)
	m.mu.Unlock()
	if ok {
		l.Close()
	}
}

// forgetLink removes a link that closed itself (ICE failure), without
// touching any other edge.
func (m *Manager) forgetLink(peer domain.UserID) {
	m.mu.Lock()
	if l, ok := m.links[peer]; ok && l.State() == LinkClosed {
		delete(m.links, peer)
	}
	m.mu.Unlock()
}

func (m *Manager) armTimeout(peer domain.UserID, l *Link) {
	time.AfterFunc(m.timeout, func() {
		if l.State() == LinkNegotiating {
			log.Warn().Str("module", "mesh").Str("peer", string(peer)).Msg("negotiation timed out")
			m.dropLink(peer)
		}
	})
}
