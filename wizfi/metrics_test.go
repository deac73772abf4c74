package wizfi

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _, _ := newTestSession(t, func(c *Config) {
		c.Registerer = reg
		c.LiveBufferSize = 16
	})

	require.NoError(t, s.GetSTAIP())
	feed(t, s, "0,CONNECT\r\nOK\r\n")
	feed(t, s, "+IPD,0,4:abcd")
	s.Deliver([]byte("this line does not fit\r\n"))
	require.NoError(t, s.Update())

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.commands.WithLabelValues("CIPSTA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.deferred))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.metrics.bytesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.fragments))
	assert.Equal(t, 8.0, testutil.ToFloat64(s.metrics.rxDropped))

	_, err := newSessionMetrics(reg, s.ID())
	assert.Error(t, err, "registering the same session twice must fail")
}
