package mesh_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxsocial/voicerelay/internal/domain"
	"github.com/fluxsocial/voicerelay/internal/mesh"
)

// fakeSignaler captures everything the mesh submits to the relay.
type fakeSignaler struct {
	mu         sync.Mutex
	offers     map[domain.UserID][]webrtc.SessionDescription
	answers    map[domain.UserID][]webrtc.SessionDescription
	candidates map[domain.UserID][]webrtc.ICECandidateInit
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{
		offers:     make(map[domain.UserID][]webrtc.SessionDescription),
		answers:    make(map[domain.UserID][]webrtc.SessionDescription),
		candidates: make(map[domain.UserID][]webrtc.ICECandidateInit),
	}
}

func (s *fakeSignaler) SendOffer(to domain.UserID, sdp webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[to] = append(s.offers[to], sdp)
	return nil
}

func (s *fakeSignaler) SendAnswer(to domain.UserID, sdp webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[to] = append(s.answers[to], sdp)
	return nil
}

func (s *fakeSignaler) SendCandidate(to domain.UserID, cand webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[to] = append(s.candidates[to], cand)
	return nil
}

func (s *fakeSignaler) offersTo(peer domain.UserID) []webrtc.SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webrtc.SessionDescription(nil), s.offers[peer]...)
}

func (s *fakeSignaler) answersTo(peer domain.UserID) []webrtc.SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webrtc.SessionDescription(nil), s.answers[peer]...)
}

// fakeSource lets tests fail media acquisition and observe release.
type fakeSource struct {
	openErr error

	mu     sync.Mutex
	closed bool
	muted  bool
}

func (s *fakeSource) Open() (webrtc.TrackLocal, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "test",
	)
}

func (s *fakeSource) SetMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// localConfig avoids STUN lookups in tests.
var localConfig = webrtc.Configuration{}

func newManager(t *testing.T, self string) (*mesh.Manager, *fakeSignaler, *fakeSource) {
	t.Helper()
	sig := newFakeSignaler()
	src := &fakeSource{}
	m := mesh.NewManager(domain.UserID(self), "room", sig, src, localConfig)
	require.NoError(t, m.Start())
	t.Cleanup(m.Close)
	return m, sig, src
}

func TestMediaAcquisitionFailureAbortsStart(t *testing.T) {
	sig := newFakeSignaler()
	src := &fakeSource{openErr: errors.New("microphone busy")}
	m := mesh.NewManager("u1", "room", sig, src, localConfig)

	err := m.Start()
	require.Error(t, err)
	assert.Empty(t, m.Peers())
}

func TestInitiatorSendsOffer(t *testing.T) {
	m, sig, _ := newManager(t, "u1")

	m.HandlePeerJoined("p1")

	offers := sig.offersTo("p1")
	require.Len(t, offers, 1)
	assert.Equal(t, webrtc.SDPTypeOffer, offers[0].Type)
	assert.Equal(t, mesh.LinkNegotiating, m.Peers()["p1"])
}

func TestSelfJoinIgnored(t *testing.T) {
	m, sig, _ := newManager(t, "u1")
	m.HandlePeerJoined("u1")
	assert.Empty(t, sig.offersTo("u1"))
	assert.Empty(t, m.Peers())
}

func TestResponderAnswersOffer(t *testing.T) {
	initiator, initSig, _ := newManager(t, "u1")
	responder, respSig, _ := newManager(t, "u2")

	initiator.HandlePeerJoined("u2")
	offers := initSig.offersTo("u2")
	require.Len(t, offers, 1)

	payload, err := json.Marshal(offers[0])
	require.NoError(t, err)
	responder.HandleOffer("u1", payload)

	answers := respSig.answersTo("u1")
	require.Len(t, answers, 1)
	assert.Equal(t, webrtc.SDPTypeAnswer, answers[0].Type)
	assert.Equal(t, mesh.LinkNegotiating, responder.Peers()["u1"])

	// Completing the round trip must not error the initiator's link.
	answerPayload, err := json.Marshal(answers[0])
	require.NoError(t, err)
	initiator.HandleAnswer("u1", answerPayload)
	assert.Contains(t, initiator.Peers(), domain.UserID("u2"))
}

func TestCandidateBeforeRemoteDescriptionIsQueued(t *testing.T) {
	initiator, initSig, _ := newManager(t, "u1")
	responder, respSig, _ := newManager(t, "u2")

	initiator.HandlePeerJoined("u2")

	// A candidate racing ahead of the answer must not break the link.
	cand, err := json.Marshal(webrtc.ICECandidateInit{
		Candidate: "candidate:1 1 UDP 2122252543 127.0.0.1 54321 typ host",
	})
	require.NoError(t, err)
	initiator.HandleCandidate("u2", cand)
	assert.Equal(t, mesh.LinkNegotiating, initiator.Peers()["u2"])

	offerPayload, err := json.Marshal(initSig.offersTo("u2")[0])
	require.NoError(t, err)
	responder.HandleOffer("u1", offerPayload)
	answerPayload, err := json.Marshal(respSig.answersTo("u1")[0])
	require.NoError(t, err)
	initiator.HandleAnswer("u1", answerPayload)

	// Queued candidate was flushed; the link survived.
	assert.Contains(t, initiator.Peers(), domain.UserID("u2"))
}

func TestCandidateForUnknownPeerIgnored(t *testing.T) {
	m, _, _ := newManager(t, "u1")
	cand, _ := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:1 1 UDP 1 127.0.0.1 1 typ host"})
	m.HandleCandidate("stranger", cand)
	assert.Empty(t, m.Peers())
}

func TestPeerLeftClosesOnlyThatEdge(t *testing.T) {
	m, _, _ := newManager(t, "u1")

	m.HandlePeerJoined("p1")
	m.HandlePeerJoined("p2")
	require.Len(t, m.Peers(), 2)

	m.HandlePeerLeft("p1")

	peers := m.Peers()
	assert.NotContains(t, peers, domain.UserID("p1"))
	assert.Contains(t, peers, domain.UserID("p2"))
	assert.NotEqual(t, mesh.LinkClosed, peers["p2"])
}

func TestUnreachableDropsEdge(t *testing.T) {
	m, _, _ := newManager(t, "u1")
	m.HandlePeerJoined("p1")
	m.HandleUnreachable("p1")
	assert.NotContains(t, m.Peers(), domain.UserID("p1"))
}

func TestOfferForKnownPeerReplacesLink(t *testing.T) {
	initiator, initSig, _ := newManager(t, "u1")
	m, sig, _ := newManager(t, "u2")

	initiator.HandlePeerJoined("u2")
	offerPayload, err := json.Marshal(initSig.offersTo("u2")[0])
	require.NoError(t, err)

	m.HandleOffer("u1", offerPayload)
	require.Len(t, sig.answersTo("u1"), 1)

	// The remote restarted negotiation; the stale link is replaced.
	secondInitiator, secondSig, _ := newManager(t, "u1")
	secondInitiator.HandlePeerJoined("u2")
	offerPayload, err = json.Marshal(secondSig.offersTo("u2")[0])
	require.NoError(t, err)
	m.HandleOffer("u1", offerPayload)

	assert.Len(t, sig.answersTo("u1"), 2)
	assert.Len(t, m.Peers(), 1)
}

func TestCloseTearsDownEverything(t *testing.T) {
	sig := newFakeSignaler()
	src := &fakeSource{}
	m := mesh.NewManager("u1", "room", sig, src, localConfig)
	require.NoError(t, m.Start())

	m.HandlePeerJoined("p1")
	m.HandlePeerJoined("p2")
	require.Len(t, m.Peers(), 2)

	m.Close()

	assert.Empty(t, m.Peers())
	assert.True(t, src.isClosed())

	// The mesh is done: post-close discoveries are ignored.
	m.HandlePeerJoined("p3")
	assert.Empty(t, m.Peers())
	assert.Empty(t, sig.offersTo("p3"))
}

func TestCloseFromAnyStateIsSafe(t *testing.T) {
	m, _, src := func() (*mesh.Manager, *fakeSignaler, *fakeSource) {
		sig := newFakeSignaler()
		src := &fakeSource{}
		m := mesh.NewManager("u1", "room", sig, src, localConfig)
		require.NoError(t, m.Start())
		return m, sig, src
	}()

	m.HandlePeerJoined("p1")
	m.HandlePeerLeft("p1")

	m.Close()
	m.Close() // idempotent
	assert.True(t, src.isClosed())
}

func TestSilentSource(t *testing.T) {
	src := mesh.NewSilentSource()
	track, err := src.Open()
	require.NoError(t, err)
	require.NotNil(t, track)

	// Reopening yields the same track.
	again, err := src.Open()
	require.NoError(t, err)
	assert.Equal(t, track, again)

	src.SetMuted(true)
	time.Sleep(30 * time.Millisecond)
	src.SetMuted(false)

	require.NoError(t, src.Close())
}
