package server

import (
	"errors"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Events      *prometheus.CounterVec
	Proposals   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dge",
			Name:      "transitions_total",
			Help:      "Successful proposal transitions by action and resulting status.",
		}, []string{"action", "to"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dge",
			Name:      "rejections_total",
			Help:      "Rejected transitions by action and reason.",
		}, []string{"action", "reason"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dge",
			Name:      "events_total",
			Help:      "Events emitted by kind.",
		}, []string{"kind"}),
		Proposals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dge",
			Name:      "proposals",
			Help:      "Stored proposals by status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Rejections, m.Events, m.Proposals)
	}
	return m
}

func (m *Metrics) created() {
	m.Proposals.WithLabelValues(types.StatusDraft.String()).Inc()
}

func (m *Metrics) transitioned(res types.TransitionResult) {
	m.Transitions.WithLabelValues(res.Action.String(), res.Proposal.Status.String()).Inc()
	for _, ev := range res.Events {
		m.Events.WithLabelValues(ev.Kind).Inc()
	}
	if res.From != res.Proposal.Status {
		m.Proposals.WithLabelValues(res.From.String()).Dec()
		m.Proposals.WithLabelValues(res.Proposal.Status.String()).Inc()
	}
}

func (m *Metrics) rejected(action types.Action, err error) {
	m.Rejections.WithLabelValues(action.String(), rejectionReason(err)).Inc()
}

// rejectionReason buckets an error into a low-cardinality label.
func rejectionReason(err error) string {
	if _, ok := dge.IsConflict(err); ok {
		return "conflict"
	}
	if _, ok := dge.IsInvalidTransition(err); ok {
		return "invalid_transition"
	}
	if _, ok := dge.IsIneligible(err); ok {
		return "ineligible"
	}
	if _, ok := dge.IsMilestoneOutOfOrder(err); ok {
		return "out_of_order"
	}
	switch {
	case errors.Is(err, dge.ErrProposalNotFound):
		return "not_found"
	case errors.Is(err, dge.ErrInvalidPrice),
		errors.Is(err, dge.ErrInvalidSupply),
		errors.Is(err, dge.ErrInvalidAmount),
		errors.Is(err, dge.ErrInvalidTurnout):
		return "invalid_input"
	case errors.Is(err, ErrOracleUnavailable):
		return "oracle"
	}
	return "other"
}
