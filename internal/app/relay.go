package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/metrics"
)

// Relay routes negotiation envelopes between exactly two peers, keyed by
// destination identity. It never parses, validates, or stores the payload.
type Relay struct {
	Sessions *Sessions
	Metrics  *metrics.Metrics
}

// Relay forwards the envelope to its target, tagged with the sender's id.
// A target with no live connection never fails the caller: the envelope is
// dropped and the sender gets a peer-unreachable notice so its state
// machine can fail that edge instead of hanging in negotiation.
func (r *Relay) Relay(env core.Envelope) {
	if r.Metrics != nil {
		r.Metrics.Envelopes.WithLabelValues(string(env.Kind)).Inc()
	}

	conn, ok := r.Sessions.Lookup(env.To)
	if !ok {
		log.Warn().Str("module", "app.relay").Str("from", string(env.From)).Str("to", string(env.To)).Str("kind", string(env.Kind)).Msg("relay target not connected")
		if r.Metrics != nil {
			r.Metrics.Unreachable.Inc()
		}
		r.notifyUnreachable(env)
		return
	}

	b, err := json.Marshal(core.SignalRelayed{
		Type:    core.RelayedType(env.Kind),
		From:    env.From,
		Room:    env.Room,
		Payload: env.Payload,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal relayed envelope")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("to", string(env.To)).Msg("relay send dropped")
		if r.Metrics != nil {
			r.Metrics.SendDrops.Inc()
		}
	}
}

func (r *Relay) notifyUnreachable(env core.Envelope) {
	sender, ok := r.Sessions.Lookup(env.From)
	if !ok {
		return
	}
	b, err := json.Marshal(core.PeerUnreachable{
		Type:   core.MsgPeerUnreachable,
		Target: env.To,
		Room:   env.Room,
	})
	if err != nil {
		return
	}
	_ = sender.TrySend(b)
}
