package wizfi

import (
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the factory line speed of the module.
	DefaultBaudRate = 115200
	// MaxConnections is the number of link ids the module multiplexes.
	MaxConnections = 5
	// MaxSendSize caps the payload written for one CIPSENDEX.
	MaxSendSize = 2046
	// MaxLineLength bounds a single response line.
	MaxLineLength = 256
)

// BaudRates lists the line speeds probed when the configured one gets no
// answer.
var BaudRates = []int{9600, 57600, 115200, 921600}

// Config holds the session settings. Use NewConfigBuilder to obtain one
// with validated values, or fill it directly; New applies the defaults.
type Config struct {
	Dialer    Dialer
	Transport Transport
	Handler   Handler
	Logger    *zap.Logger
	// Registerer receives the session metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	BaudRate       int
	CommandTimeout time.Duration
	ResetTimeout   time.Duration
	InitTimeout    time.Duration
	// PollInterval is slept between updates by the blocking operations and
	// Loop. Zero yields the processor instead.
	PollInterval time.Duration

	LiveBufferSize       int
	DeferredBufferSize   int
	ConnectionBufferSize int
	// SharedConnectionBuffer makes all connections receive into one buffer.
	// Only the data of the connection named by the latest callback is
	// valid then, so at most one transfer may be in progress at a time.
	SharedConnectionBuffer bool
	MaxDetectedAP          int
	MaxConnectedStations   int
	// ManualClock makes TimeUpdate the only time base of command deadlines.
	// By default they follow the wall clock. A manual clock must be advanced
	// by the caller, so New cannot time out a reset before it returns.
	ManualClock bool
}

func (c *Config) setDefaults() {
	if c.Handler == nil {
		c.Handler = NopHandler{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if c.ResetTimeout == 0 {
		c.ResetTimeout = time.Second
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = 60 * time.Second
	}
	if c.LiveBufferSize == 0 {
		c.LiveBufferSize = 4096
	}
	if c.DeferredBufferSize == 0 {
		c.DeferredBufferSize = 1024
	}
	if c.ConnectionBufferSize == 0 {
		c.ConnectionBufferSize = 2048
	}
	if c.MaxDetectedAP == 0 {
		c.MaxDetectedAP = 10
	}
	if c.MaxConnectedStations == 0 {
		c.MaxConnectedStations = 10
	}
}

func (c *Config) validate() error {
	if c.Dialer == nil && c.Transport == nil {
		return ErrNoDialer
	}
	if !slices.Contains(BaudRates, c.BaudRate) {
		return fmt.Errorf("unsupported baud rate %d", c.BaudRate)
	}
	for name, n := range map[string]int{
		"live buffer":       c.LiveBufferSize,
		"deferred buffer":   c.DeferredBufferSize,
		"connection buffer": c.ConnectionBufferSize,
	} {
		if n <= 0 {
			return fmt.Errorf("%s size must be positive, got %d", name, n)
		}
	}
	if c.CommandTimeout < 0 || c.ResetTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder holding an empty Config.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithTransport uses an already open transport, bypassing the Dialer.
func (b *ConfigBuilder) WithTransport(t Transport) *ConfigBuilder {
	b.config.Transport = t
	return b
}

func (b *ConfigBuilder) WithHandler(h Handler) *ConfigBuilder {
	b.config.Handler = h
	return b
}

func (b *ConfigBuilder) WithLogger(l *zap.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithRegisterer(r prometheus.Registerer) *ConfigBuilder {
	b.config.Registerer = r
	return b
}

func (b *ConfigBuilder) WithBaudRate(baud int) *ConfigBuilder {
	b.config.BaudRate = baud
	return b
}

// WithCommandTimeout sets the default command deadline. Zero means 30s.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

// WithResetTimeout bounds the wait for ready after AT+RST. Zero means 1s.
func (b *ConfigBuilder) WithResetTimeout(d time.Duration) *ConfigBuilder {
	b.config.ResetTimeout = d
	return b
}

// WithInitTimeout bounds the whole init sequence of New. Zero means 60s.
func (b *ConfigBuilder) WithInitTimeout(d time.Duration) *ConfigBuilder {
	b.config.InitTimeout = d
	return b
}

// WithPollInterval sets the pause between updates. Zero yields instead of sleeping.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

// WithLiveBufferSize sizes the receive buffer. Zero means 4096 bytes.
func (b *ConfigBuilder) WithLiveBufferSize(n int) *ConfigBuilder {
	b.config.LiveBufferSize = n
	return b
}

// WithDeferredBufferSize sizes the buffer of set-aside lines. Zero means 1024 bytes.
func (b *ConfigBuilder) WithDeferredBufferSize(n int) *ConfigBuilder {
	b.config.DeferredBufferSize = n
	return b
}

// WithConnectionBufferSize sizes each connection receive buffer. Zero means 2048 bytes.
func (b *ConfigBuilder) WithConnectionBufferSize(n int) *ConfigBuilder {
	b.config.ConnectionBufferSize = n
	return b
}

func (b *ConfigBuilder) WithSharedConnectionBuffer(shared bool) *ConfigBuilder {
	b.config.SharedConnectionBuffer = shared
	return b
}

func (b *ConfigBuilder) WithMaxDetectedAP(n int) *ConfigBuilder {
	b.config.MaxDetectedAP = n
	return b
}

// WithManualClock drives command deadlines from TimeUpdate calls only.
func (b *ConfigBuilder) WithManualClock() *ConfigBuilder {
	b.config.ManualClock = true
	return b
}

// Build applies defaults and validates the result.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
