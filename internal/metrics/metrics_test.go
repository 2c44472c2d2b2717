package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"garmentflow/internal/apperror"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveTransition("rejection", "REJECTED", 50)
	r.ObserveTransition("rejection", "REJECTED", 10)
	r.ObserveRejected("rejection", apperror.InsufficientQuantity(10, 5))
	r.ObserveRejected("rejection", errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.TransitionsTotal.WithLabelValues("rejection", "REJECTED")))
	assert.Equal(t, 60.0, testutil.ToFloat64(r.PiecesMovedTotal.WithLabelValues("rejection", "REJECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RejectedCalls.WithLabelValues("rejection", "INSUFFICIENT_QUANTITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RejectedCalls.WithLabelValues("rejection", "INTERNAL")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveTransition("advance", "MAIN", 1)
		r.ObserveRejected("advance", errors.New("x"))
	})
}
