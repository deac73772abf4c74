package wizfi_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

func TestSessionNew(t *testing.T) {
	t.Run("Initialization Success", func(t *testing.T) {
		tr := wizfi.NewTestTransport().Module()
		config, err := wizfi.NewConfigBuilder().
			WithTransport(tr).
			WithLogger(zaptest.NewLogger(t)).
			Build()
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := wizfi.New(ctx, config)
		require.NoError(t, err)
		require.NotNil(t, s)
		defer s.Close()

		assert.NoError(t, s.IsReady())
		assert.Equal(t, wizfi.DefaultBaudRate, s.BaudRate())
		assert.Equal(t, []int{wizfi.DefaultBaudRate}, tr.BaudRates())

		mac, ok := s.STAMAC()
		assert.True(t, ok)
		assert.Equal(t, "18:fe:34:a1:b2:c3", mac.String())
		ip, ok := s.APIP()
		assert.True(t, ok)
		assert.Equal(t, "192.168.4.1", ip.String())

		assert.Equal(t, "AT+RST\r\nAT\r\nATE1\r\nAT+CIPMUX=1\r\nAT+CIPDINFO=1\r\n"+
			"AT+CIPSTAMAC_CUR?\r\nAT+CIPAPMAC_CUR?\r\nAT+CIPAP_CUR?\r\n", tr.Written())
	})

	t.Run("Initialization through dialer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tr := wizfi.NewTestTransport().Module()
		mockDialer := wizfi.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(tr, nil)

		config, err := wizfi.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		require.NoError(t, err)

		s, err := wizfi.New(context.Background(), config)
		require.NoError(t, err)
		assert.NoError(t, s.Close())
		assert.ErrorIs(t, s.Close(), wizfi.ErrAlreadyClosed)
	})

	t.Run("ErrDeviceNotConnected after probing every baud rate", func(t *testing.T) {
		tr := wizfi.NewTestTransport()
		config, err := wizfi.NewConfigBuilder().
			WithTransport(tr).
			WithResetTimeout(10 * time.Millisecond).
			WithInitTimeout(5 * time.Second).
			Build()
		require.NoError(t, err)

		start := time.Now()
		s, err := wizfi.New(context.Background(), config)
		assert.ErrorIs(t, err, wizfi.ErrDeviceNotConnected)
		assert.NotErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, s, "New() should return nil session when error occurs")
		assert.Equal(t, append([]int{wizfi.DefaultBaudRate}, wizfi.BaudRates...), tr.BaudRates())
		assert.Less(t, time.Since(start), 2*time.Second, "each reset must end after the reset timeout")
	})

	t.Run("Commands time out on the default clock", func(t *testing.T) {
		tr := wizfi.NewTestTransport().Module()
		config, err := wizfi.NewConfigBuilder().
			WithTransport(tr).
			WithCommandTimeout(20 * time.Millisecond).
			Build()
		require.NoError(t, err)

		s, err := wizfi.New(context.Background(), config)
		require.NoError(t, err)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.ErrorIs(t, s.GetSTAIPBlocking(ctx), wizfi.ErrTimeout)
		assert.NoError(t, s.IsReady())
	})

	t.Run("Configured baud rate", func(t *testing.T) {
		tr := wizfi.NewTestTransport().Module()
		config, err := wizfi.NewConfigBuilder().
			WithTransport(tr).
			WithBaudRate(9600).
			Build()
		require.NoError(t, err)

		s, err := wizfi.New(context.Background(), config)
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, 9600, s.BaudRate())
	})

	t.Run("Write failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := wizfi.NewMockTransport(ctrl)
		mockDialer := wizfi.NewMockDialer(ctrl)
		closed := make(chan struct{})
		readDone := make(chan struct{})

		mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)
		mockTransport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			<-closed
			close(readDone)
			return 0, io.EOF
		})
		mockTransport.EXPECT().Write([]byte("AT+RST\r\n")).Return(0, errors.New("broken pipe"))
		mockTransport.EXPECT().Close().DoAndReturn(func() error {
			close(closed)
			return nil
		})

		config, err := wizfi.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		require.NoError(t, err)

		s, err := wizfi.New(context.Background(), config)
		assert.ErrorIs(t, err, wizfi.ErrDeviceNotConnected)
		assert.Nil(t, s)
		<-readDone
	})

	t.Run("Dialer error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := wizfi.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, errors.New("connection failed"))

		config, err := wizfi.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		require.NoError(t, err)

		s, err := wizfi.New(context.Background(), config)
		assert.EqualError(t, err, "connection failed")
		assert.Nil(t, s)
	})

	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		s, err := wizfi.New(context.Background(), wizfi.Config{})
		assert.ErrorIs(t, err, wizfi.ErrNoDialer)
		assert.Nil(t, s)
	})

	t.Run("ErrNotInitialized on nil transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := wizfi.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		config, err := wizfi.NewConfigBuilder().
			WithDialer(mockDialer).
			Build()
		require.NoError(t, err)

		_, err = wizfi.New(context.Background(), config)
		assert.ErrorIs(t, err, wizfi.ErrNotInitialized)
	})
}

// dataHandler forwards received payloads to a channel.
type dataHandler struct {
	wizfi.NopHandler
	data chan string
}

func (h *dataHandler) ServerConnectionDataReceived(_ *wizfi.Session, _ *wizfi.Connection, data []byte) {
	h.data <- string(data)
}

func TestSessionLoop(t *testing.T) {
	tr := wizfi.NewTestTransport().Module()
	h := &dataHandler{data: make(chan string, 1)}
	config, err := wizfi.NewConfigBuilder().
		WithTransport(tr).
		WithHandler(h).
		WithLogger(zaptest.NewLogger(t)).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := wizfi.New(ctx, config)
	require.NoError(t, err)

	loopErr := make(chan error, 1)
	go func() { loopErr <- s.Loop(ctx) }()

	tr.SendData("0,CONNECT\r\n+IPD,0,5,\"192.168.4.2\",40000:hello\r\n")
	select {
	case got := <-h.data:
		assert.Equal(t, "hello", got)
	case <-ctx.Done():
		t.Fatal("no data received")
	}

	// Closing the transport ends the receive goroutine and with it the loop.
	require.NoError(t, tr.Close())
	select {
	case err := <-loopErr:
		assert.ErrorIs(t, err, io.EOF)
	case <-ctx.Done():
		t.Fatal("loop did not stop")
	}
	assert.NoError(t, s.Close())
}
