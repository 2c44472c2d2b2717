package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"garmentflow/internal/apperror"
)

// Recorder holds the prometheus instruments of the transition engine.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	TransitionsTotal *prometheus.CounterVec
	PiecesMovedTotal *prometheus.CounterVec
	RejectedCalls    *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "production_transitions_total",
			Help: "Committed ledger transitions by operation and lineage.",
		}, []string{"operation", "lineage"}),
		PiecesMovedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "production_pieces_moved_total",
			Help: "Pieces moved between ledger entries by operation and lineage.",
		}, []string{"operation", "lineage"}),
		RejectedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "production_rejected_calls_total",
			Help: "Mutating calls rejected by the production core, by operation and error kind.",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(r.TransitionsTotal, r.PiecesMovedTotal, r.RejectedCalls)
	return r
}

func (r *Recorder) ObserveTransition(operation, lineage string, quantity int) {
	if r == nil {
		return
	}
	r.TransitionsTotal.WithLabelValues(operation, lineage).Inc()
	r.PiecesMovedTotal.WithLabelValues(operation, lineage).Add(float64(quantity))
}

func (r *Recorder) ObserveRejected(operation string, err error) {
	if r == nil || err == nil {
		return
	}
	kind := string(apperror.KindOf(err))
	if kind == "" {
		kind = "INTERNAL"
	}
	r.RejectedCalls.WithLabelValues(operation, kind).Inc()
}
