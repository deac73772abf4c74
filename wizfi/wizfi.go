// Package wizfi drives a WizFi360 or ESP8266 Wi-Fi module through its AT
// command interface.
//
// A Session owns the module: it writes commands, parses everything the
// module prints and reports what happened through a Handler. At most one
// command is in flight at a time. Operations either return right after the
// command was written (the result arrives through Update and the Handler) or
// come in a Blocking form that drives Update until the command completes.
package wizfi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
	"github.com/wizfi/ESP8266-AT-Commands-parser/ringbuf"
)

// resetPulse is how long the reset line is held, and how long the module is
// given afterwards before it is talked to.
const resetPulse = 100 * time.Millisecond

// Session represents one WizFi360/ESP8266 module.
//
// Deliver may be called from any goroutine. Every other method must be
// called from a single goroutine, the one that drives Update or Loop;
// Handler callbacks run there too.
type Session struct {
	id        string
	transport Transport
	config    Config
	handler   Handler
	logger    *zap.Logger
	metrics   *sessionMetrics
	closed    bool
	// loopRunning indicates if Loop is currently driving the session
	loopRunning atomic.Bool

	// receive goroutine lifecycle
	receiveCancel context.CancelFunc
	receiveDone   chan struct{}
	receiveErr    error

	// live collects raw module output; deferred holds lines set aside while
	// a command was running.
	live        *ringbuf.Buffer
	deferred    *ringbuf.Buffer
	scratch     []byte
	sendBuf     []byte
	seenDropped uint64

	clock atomic.Uint32
	epoch time.Time

	active   command
	lastOK   bool
	timedOut bool

	awaitingPrompt bool
	sendConn       *Connection
	ipd            ipdCursor

	conns [MaxConnections]Connection

	wifiConnected bool
	gotIP         bool
	mode          Mode
	baudRate      int
	sta           NetConfig
	ap            NetConfig
	staMAC        [6]byte
	apMAC         [6]byte
	staMACSet     bool
	apMACSet      bool
	joined        JoinedNetwork
	joinError     WifiConnectError
	aps           []AccessPoint
	apConfig      APConfig
	stations      []ConnectedStation
	ping          Ping

	totalReceived uint64
	totalSent     uint64
}

// New creates a Session with the given configuration. It opens the
// transport through the configured Dialer unless a Transport is given,
// starts the receive goroutine and runs the init sequence: hardware reset,
// AT+RST with baud rate probing, echo on, multiplexed links, remote address
// reporting and the MAC and IP queries.
//
// Returns ErrDeviceNotConnected if the module never answers the reset.
func New(ctx context.Context, config Config) (*Session, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport := config.Transport
	if transport == nil {
		t, err := config.Dialer.Dial(ctx)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, ErrNotInitialized
		}
		transport = t
	}

	s, err := newSession(config, transport)
	if err != nil {
		transport.Close()
		return nil, err
	}
	s.startReceiver()

	initCtx := ctx
	if config.InitTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, config.InitTimeout)
		defer cancel()
	}
	if err := s.init(initCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize module: %w", err)
	}
	return s, nil
}

// newSession builds the session state around transport without touching
// the module. config must have its defaults applied.
func newSession(config Config, transport Transport) (*Session, error) {
	id := uuid.NewString()
	metrics, err := newSessionMetrics(config.Registerer, id)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	s := &Session{
		id:        id,
		transport: transport,
		config:    config,
		handler:   config.Handler,
		logger:    config.Logger.With(zap.String("session", id)),
		metrics:   metrics,
		live:      ringbuf.New(config.LiveBufferSize),
		deferred:  ringbuf.New(config.DeferredBufferSize),
		scratch:   make([]byte, MaxLineLength),
		sendBuf:   make([]byte, MaxSendSize),
		epoch:     time.Now(),
		baudRate:  config.BaudRate,
		conns:     newConnections(config.ConnectionBufferSize, config.SharedConnectionBuffer),
	}
	return s, nil
}

func (s *Session) startReceiver() {
	ctx, cancel := context.WithCancel(context.Background())
	s.receiveCancel = cancel
	s.receiveDone = make(chan struct{})
	go s.receive(ctx)
}

// receive copies transport input into the live buffer until the transport
// fails or the session is closed.
func (s *Session) receive(ctx context.Context) {
	defer close(s.receiveDone)
	buf := make([]byte, 512)
	for {
		n, err := s.transport.Read(buf)
		if n > 0 {
			s.Deliver(buf[:n])
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.logger.Warn("transport read failed", zap.Error(err))
			}
			s.receiveErr = err
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Loop drives Update until ctx is cancelled or the transport stops
// delivering data. It is the usual way to run a Session on a host; embedded
// style callers invoke Update themselves instead.
//
// Usage:
//
//	s, err := wizfi.New(ctx, config)
//	if err != nil { return err }
//	go s.Loop(ctx)
func (s *Session) Loop(ctx context.Context) error {
	if !s.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer s.loopRunning.Store(false)

	interval := max(s.config.PollInterval, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Update(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.receiveDone:
			// Process whatever arrived before the transport went away.
			if err := s.Update(); err != nil {
				return err
			}
			return s.Err()
		case <-ticker.C:
		}
	}
}

// Done is closed once the receive goroutine has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.receiveDone
}

// Err reports why the receive goroutine stopped: io.EOF when the transport
// was closed, the wrapped read error otherwise. It is nil while data is
// still being received.
func (s *Session) Err() error {
	select {
	case <-s.receiveDone:
	default:
		return nil
	}
	if s.receiveErr == nil || errors.Is(s.receiveErr, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("read error: %w", s.receiveErr)
}

// Close shuts down the session and closes the transport. After Close the
// session cannot be reused.
func (s *Session) Close() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	if s.receiveCancel != nil {
		s.receiveCancel()
	}
	if s.transport != nil {
		return s.transport.Close()
	}
	return nil
}

// init performs the start-up sequence. The module state afterwards is echo
// on, multiplexed links and remote address reporting, with both MAC
// addresses and the soft AP IP known.
func (s *Session) init(ctx context.Context) error {
	if err := s.pulseReset(ctx); err != nil {
		return err
	}
	if err := s.applyBaudRate(s.baudRate); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}

	if err := s.resetDevice(ctx); err != nil {
		if _, ok := s.transport.(BaudRateSetter); !ok {
			return err
		}
		if err := s.probeBaudRate(ctx); err != nil {
			return err
		}
	}

	if err := s.exec(ctx, simpleCommand(cmdAT, at.CmdAT, at.CmdAT)); err != nil {
		return fmt.Errorf("module not responding: %w", err)
	}
	if err := s.exec(ctx, simpleCommand(cmdEcho, at.CmdEchoOn, "ATE")); err != nil {
		return fmt.Errorf("enable echo: %w", err)
	}
	// The module rejects CIPMUX while it is still busy attaching, so keep
	// asking until it takes it or the init deadline hits.
	for {
		err := s.exec(ctx, simpleCommand(cmdMux, at.CmdMux, "AT+CIPMUX"))
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("enable multiple connections: %w", err)
		}
		s.logger.Debug("CIPMUX rejected, retrying", zap.Error(err))
	}
	if err := s.exec(ctx, simpleCommand(cmdDataInfo, at.CmdDataInfo, "AT+CIPDINFO")); err != nil {
		return fmt.Errorf("enable remote info: %w", err)
	}

	if err := s.GetSTAMACBlocking(ctx); err != nil {
		return fmt.Errorf("query station MAC: %w", err)
	}
	if err := s.GetAPMACBlocking(ctx); err != nil {
		return fmt.Errorf("query soft AP MAC: %w", err)
	}
	if err := s.GetAPIPBlocking(ctx); err != nil {
		return fmt.Errorf("query soft AP IP: %w", err)
	}

	s.logger.Info("module initialized",
		zap.Int("baud_rate", s.baudRate),
		zap.String("sta_mac", at.FormatMAC(s.staMAC)),
		zap.String("ap_mac", at.FormatMAC(s.apMAC)),
	)
	return nil
}

func (s *Session) pulseReset(ctx context.Context) error {
	r, ok := s.transport.(Resetter)
	if !ok {
		return nil
	}
	if err := r.SetReset(true); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	if err := sleep(ctx, resetPulse); err != nil {
		return err
	}
	if err := r.SetReset(false); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return sleep(ctx, resetPulse)
}

// resetDevice sends AT+RST and waits for the module to come back.
func (s *Session) resetDevice(ctx context.Context) error {
	if err := s.exec(ctx, resetCommand(s.config.ResetTimeout)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrDeviceNotConnected
	}
	return nil
}

// probeBaudRate walks BaudRates until the module answers AT+RST.
func (s *Session) probeBaudRate(ctx context.Context) error {
	for _, baud := range BaudRates {
		if err := s.applyBaudRate(baud); err != nil {
			return fmt.Errorf("set baud rate: %w", err)
		}
		s.live.Reset()
		s.logger.Debug("probing baud rate", zap.Int("baud_rate", baud))
		err := s.resetDevice(ctx)
		if err == nil {
			s.baudRate = baud
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return ErrDeviceNotConnected
}

func (s *Session) applyBaudRate(baud int) error {
	if b, ok := s.transport.(BaudRateSetter); ok {
		return b.SetBaudRate(baud)
	}
	return nil
}

// issue writes c to the module and makes it the active command. Nothing is
// sent and ErrBusy is returned while another command is in flight.
func (s *Session) issue(c command) error {
	if s.closed {
		return ErrAlreadyClosed
	}
	if s.active.kind != cmdIdle {
		return ErrBusy
	}
	if c.timeout == 0 {
		c.timeout = s.config.CommandTimeout
	}
	if _, err := s.transport.Write([]byte(c.wire + at.CRLF)); err != nil {
		return fmt.Errorf("write command %s: %w", c.kind, err)
	}
	c.started = s.now()
	s.active = c
	s.lastOK = false
	s.timedOut = false
	s.metrics.commands.WithLabelValues(c.kind.String()).Inc()
	if c.secret {
		s.logger.Debug("command sent", zap.Stringer("command", c.kind))
	} else {
		s.logger.Debug("command sent", zap.Stringer("command", c.kind), zap.String("wire", c.wire))
	}
	return nil
}

// exec issues c and waits for its outcome.
func (s *Session) exec(ctx context.Context, c command) error {
	if err := s.issue(c); err != nil {
		return err
	}
	return s.result(ctx)
}

// result waits for the active command and maps its outcome to an error.
func (s *Session) result(ctx context.Context) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}
	if !s.lastOK {
		return ErrGeneric
	}
	return nil
}

// finish returns the command slot to idle.
func (s *Session) finish() {
	s.active = command{}
}

// now returns the session clock in milliseconds.
func (s *Session) now() uint32 {
	if s.config.ManualClock {
		return s.clock.Load()
	}
	return uint32(time.Since(s.epoch).Milliseconds())
}

// TimeUpdate advances the manual clock by ms milliseconds. Sessions on the
// wall clock ignore it.
func (s *Session) TimeUpdate(ms uint32) {
	s.clock.Add(ms)
}

// pause yields between two updates of a blocking wait.
func (s *Session) pause() {
	if s.config.PollInterval > 0 {
		time.Sleep(s.config.PollInterval)
		return
	}
	runtime.Gosched()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ID returns the identifier used in logs and metric labels.
func (s *Session) ID() string {
	return s.id
}
