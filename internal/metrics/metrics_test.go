package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_NilIsNoop(t *testing.T) {
	var m *Relay
	assert.NotPanics(t, func() {
		m.ConnOpened()
		m.ConnClosed()
		m.Inbound("send-message")
		m.Malformed("send-message")
		m.Fanout("new-message", 3, 1)
	})
}

func TestRelay_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rooms := 2.0
	m := New(reg, func() float64 { return rooms })

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Inbound("typing")
	m.Malformed("typing")
	m.Malformed("typing")
	m.Fanout("new-message", 3, 1)
	m.Fanout("new-message", 2, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inbound.WithLabelValues("typing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.malformed.WithLabelValues("typing")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.delivered.WithLabelValues("new-message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("new-message")))

	n, err := testutil.GatherAndCount(reg, "leadrelay_rooms")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
