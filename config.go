package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the daemon configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
	Wifi    WifiConfig    `mapstructure:"wifi"`
	Echo    EchoConfig    `mapstructure:"echo"`
}

type SerialConfig struct {
	// Port is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	Port string `mapstructure:"port"`
	// BaudRate is the line speed the module is expected at
	BaudRate int `mapstructure:"baud_rate"`
}

type HTTPConfig struct {
	// BindAddress is the address the status server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `mapstructure:"bind_address"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is json or console
	Format string `mapstructure:"format"`
}

type WifiConfig struct {
	// SSID of the network to join. Empty skips joining.
	SSID     string `mapstructure:"ssid"`
	Password string `mapstructure:"password"`
}

// EchoConfig selects what the daemon does with its links. In client mode it
// connects to Host:Port and sends Message; in server mode it listens on Port
// and sends every payload back. Interval is the minimum spacing between two
// sends in either mode.
type EchoConfig struct {
	Mode     string        `mapstructure:"mode"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Interval time.Duration `mapstructure:"interval"`
	Message  string        `mapstructure:"message"`
}

// Echo modes
const (
	EchoOff    = "off"
	EchoClient = "client"
	EchoServer = "server"
)

// ConfigOption is a function that modifies the underlying viper instance
type ConfigOption func(*viper.Viper) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	v := viper.New()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Echo.Mode {
	case EchoOff, EchoServer:
	case EchoClient:
		if c.Echo.Host == "" {
			return fmt.Errorf("echo.host is required in client mode")
		}
	default:
		return fmt.Errorf("invalid echo mode %q: must be off, client or server", c.Echo.Mode)
	}
	if c.Echo.Mode != EchoOff && (c.Echo.Port <= 0 || c.Echo.Port > 65535) {
		return fmt.Errorf("invalid echo port %d", c.Echo.Port)
	}
	if c.Echo.Interval <= 0 {
		return fmt.Errorf("echo.interval must be positive")
	}
	return nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(v *viper.Viper) error {
		v.SetDefault("serial.port", "/dev/ttyUSB0")
		v.SetDefault("serial.baud_rate", 115200)
		v.SetDefault("http.bind_address", "0.0.0.0:8080")
		v.SetDefault("logging.level", "info")
		v.SetDefault("logging.format", "json")
		v.SetDefault("wifi.ssid", "")
		v.SetDefault("wifi.password", "")
		v.SetDefault("echo.mode", EchoOff)
		v.SetDefault("echo.host", "")
		v.SetDefault("echo.port", 7)
		v.SetDefault("echo.interval", 10*time.Second)
		v.SetDefault("echo.message", "ping")
		return nil
	}
}

// WithFile reads the given config file. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(v *viper.Viper) error {
		if path == "" {
			return nil
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables, e.g.
// WIZFI_SERIAL_PORT or WIZFI_ECHO_MODE
func WithEnv() ConfigOption {
	return func(v *viper.Viper) error {
		v.SetEnvPrefix("WIZFI")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		return nil
	}
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"serial-port":   "serial.port",
	"baud-rate":     "serial.baud_rate",
	"bind-address":  "http.bind_address",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"ssid":          "wifi.ssid",
	"password":      "wifi.password",
	"echo-mode":     "echo.mode",
	"echo-host":     "echo.host",
	"echo-port":     "echo.port",
	"echo-interval": "echo.interval",
}

// WithFlags loads configuration from command-line flags. Only flags that
// were set on the command line override other sources.
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(v *viper.Viper) error {
		fSet.Visit(func(f *flag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
		return nil
	}
}

// NewLogger creates a zap logger for the given level (debug, info, warn,
// error) and format (json, console).
func NewLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
