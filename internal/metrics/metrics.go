// Package metrics holds the prometheus collectors for the voice control
// plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Leave reasons.
const (
	ReasonLeave      = "leave"
	ReasonDisconnect = "disconnect"
	ReasonMoved      = "moved"
)

// Rejection reasons.
const (
	ReasonFull          = "full"
	ReasonAlreadyJoined = "already_joined"
	ReasonNotFound      = "not_found"
)

type Metrics struct {
	Joins       prometheus.Counter
	Leaves      *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Envelopes   *prometheus.CounterVec
	Unreachable prometheus.Counter
	SendDrops   prometheus.Counter
	RoomMembers *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Joins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voice_joins_total",
			Help: "Completed voice room joins.",
		}),
		Leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_leaves_total",
			Help: "Voice room departures by reason.",
		}, []string{"reason"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_rejections_total",
			Help: "Rejected join attempts by reason.",
		}, []string{"reason"}),
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_envelopes_total",
			Help: "Relayed signaling envelopes by kind.",
		}, []string{"kind"}),
		Unreachable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_unreachable_total",
			Help: "Envelopes addressed to a user with no live connection.",
		}),
		SendDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_send_drops_total",
			Help: "Outbound messages dropped on connection backpressure.",
		}),
		RoomMembers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voice_room_members",
			Help: "Current members per voice room.",
		}, []string{"room"}),
	}
	reg.MustRegister(m.Joins, m.Leaves, m.Rejections, m.Envelopes, m.Unreachable, m.SendDrops, m.RoomMembers)
	return m
}
