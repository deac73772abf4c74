package wizfi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := wizfi.NewConfigBuilder().Build()

		if err != wizfi.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		config, err := wizfi.NewConfigBuilder().
			WithDialer(wizfi.SerialDialer{PortName: "/dev/ttyUSB0"}).
			Build()
		require.NoError(t, err)

		assert.Equal(t, wizfi.DefaultBaudRate, config.BaudRate)
		assert.Equal(t, 30*time.Second, config.CommandTimeout)
		assert.Equal(t, time.Second, config.ResetTimeout)
		assert.Equal(t, 2048, config.ConnectionBufferSize)
		assert.NotNil(t, config.Handler)
		assert.NotNil(t, config.Logger)
	})

	t.Run("zero means default", func(t *testing.T) {
		config, err := wizfi.NewConfigBuilder().
			WithTransport(wizfi.NewTestTransport()).
			WithCommandTimeout(0).
			WithInitTimeout(0).
			WithLiveBufferSize(0).
			WithDeferredBufferSize(0).
			WithConnectionBufferSize(0).
			Build()
		require.NoError(t, err)

		assert.Equal(t, 30*time.Second, config.CommandTimeout)
		assert.Equal(t, 60*time.Second, config.InitTimeout)
		assert.Equal(t, 4096, config.LiveBufferSize)
		assert.Equal(t, 1024, config.DeferredBufferSize)
		assert.Equal(t, 2048, config.ConnectionBufferSize)
		assert.Zero(t, config.PollInterval)
		assert.False(t, config.ManualClock, "deadlines follow the wall clock unless asked otherwise")
	})

	t.Run("unsupported baud rate", func(t *testing.T) {
		_, err := wizfi.NewConfigBuilder().
			WithTransport(wizfi.NewTestTransport()).
			WithBaudRate(12345).
			Build()
		assert.EqualError(t, err, "unsupported baud rate 12345")
	})

	t.Run("negative buffer size", func(t *testing.T) {
		_, err := wizfi.NewConfigBuilder().
			WithTransport(wizfi.NewTestTransport()).
			WithLiveBufferSize(-1).
			Build()
		assert.Error(t, err)
	})

	t.Run("negative timeout", func(t *testing.T) {
		_, err := wizfi.NewConfigBuilder().
			WithTransport(wizfi.NewTestTransport()).
			WithCommandTimeout(-time.Second).
			Build()
		assert.Error(t, err)
	})
}
