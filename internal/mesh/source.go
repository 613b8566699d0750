package mesh

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Source provides the local media track every peer link is bound to.
// Open acquiring the device can fail; that failure is fatal to the local
// join attempt only and must happen before any membership is created.
type Source interface {
	Open() (webrtc.TrackLocal, error)
	SetMuted(bool)
	Close() error
}

// Opus frame decoding to silence, sent while muted or when no capture
// device is wired in.
var silentOpusFrame = []byte{0xf8, 0xff, 0xfe}

const frameInterval = 20 * time.Millisecond

// SilentSource is a Source that emits silence. It stands in for a real
// capture device in the CLI client and in tests; the pacing and track
// plumbing are identical to a live microphone source.
type SilentSource struct {
	mu    sync.Mutex
	track *webrtc.TrackLocalStaticSample
	muted bool
	stop  chan struct{}
}

func NewSilentSource() *SilentSource {
	return &SilentSource{}
}

func (s *SilentSource) Open() (webrtc.TrackLocal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track != nil {
		return s.track, nil
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "voicerelay",
	)
	if err != nil {
		return nil, err
	}
	s.track = track
	s.stop = make(chan struct{})
	go s.pump(track, s.stop)
	return track, nil
}

func (s *SilentSource) pump(track *webrtc.TrackLocalStaticSample, stop chan struct{}) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			muted := s.muted
			s.mu.Unlock()
			if muted {
				continue
			}
			_ = track.WriteSample(media.Sample{Data: silentOpusFrame, Duration: frameInterval})
		}
	}
}

func (s *SilentSource) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *SilentSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.track = nil
	return nil
}
