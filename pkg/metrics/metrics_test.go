package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveParse(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveParse("table", "secondary", 3, 20*time.Millisecond)
	m.ObserveParse("", "none", 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsParsed.WithLabelValues("table")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsParsed.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessModes.WithLabelValues("secondary")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Candidates))
}

func TestObserveFailureAndImport(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFailure("document_access")
	m.ObserveFailure("document_access")
	m.ObserveImport("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseFailures.WithLabelValues("document_access")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imports.WithLabelValues("failed")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveParse("table", "none", 1, time.Second)
		m.ObserveFailure("malformed_document")
		m.ObserveImport("completed")
	})
}
