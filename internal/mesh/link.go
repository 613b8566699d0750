package mesh

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

type LinkState int

const (
	LinkIdle LinkState = iota
	LinkNegotiating
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkNegotiating:
		return "negotiating"
	case LinkConnected:
		return "connected"
	default:
		return "closed"
	}
}

// Link is one point-to-point media connection to one remote peer.
// Links never share mutable state with each other; failure of one leaves
// the rest of the mesh untouched.
type Link struct {
	peer domain.UserID
	pc   *webrtc.PeerConnection

	mu        sync.Mutex
	state     LinkState
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	closeOnce sync.Once
	onClosed  func(peer domain.UserID)
}

func newLink(cfg webrtc.Configuration, peer domain.UserID, track webrtc.TrackLocal, onCandidate func(webrtc.ICECandidateInit), onClosed func(domain.UserID)) (*Link, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	if track != nil {
		if _, err := pc.AddTrack(track); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	l := &Link{peer: peer, pc: pc, state: LinkIdle, onClosed: onClosed}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && onCandidate != nil {
			onCandidate(c.ToJSON())
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "mesh").Str("peer", string(peer)).Str("state", s.String()).Msg("peer connection state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			l.mu.Lock()
			if l.state != LinkClosed {
				l.state = LinkConnected
			}
			l.mu.Unlock()
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			l.Close()
		}
	})
	return l, nil
}

func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// CreateOffer starts negotiation as initiator.
func (l *Link) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.mu.Lock()
	l.state = LinkNegotiating
	l.mu.Unlock()
	return offer, nil
}

// ApplyOffer applies the remote offer and produces the answer (responder
// role). Candidates queued before the offer arrived are flushed after the
// remote description is set.
func (l *Link) ApplyOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.flushPending()

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.mu.Lock()
	l.state = LinkNegotiating
	l.mu.Unlock()
	return answer, nil
}

// ApplyAnswer completes the initiator side of the exchange.
func (l *Link) ApplyAnswer(answer webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	l.flushPending()
	return nil
}

// AddCandidate applies a remote candidate in arrival order. Candidates
// racing ahead of the remote description are held back until it lands.
func (l *Link) AddCandidate(c webrtc.ICECandidateInit) error {
	l.mu.Lock()
	if !l.remoteSet {
		l.pending = append(l.pending, c)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.pc.AddICECandidate(c)
}

func (l *Link) flushPending() {
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, c := range pending {
		if err := l.pc.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "mesh").Str("peer", string(l.peer)).Msg("queued candidate rejected")
		}
	}
}

// Close tears this one link down from any state. Safe to call repeatedly.
func (l *Link) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.state = LinkClosed
		l.mu.Unlock()
		if err := l.pc.Close(); err != nil {
			log.Warn().Err(err).Str("module", "mesh").Str("peer", string(l.peer)).Msg("link close")
		}
		if l.onClosed != nil {
			l.onClosed(l.peer)
		}
	})
}
