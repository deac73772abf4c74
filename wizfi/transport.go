package wizfi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_test.go -package=wizfi . Transport,Dialer

// Transport represents an established, bidirectional byte stream to a
// WizFi360 module.
//
// A Transport is assumed to be already connected and ready for use. The
// session writes commands and payloads to it and a receive goroutine copies
// everything read from it into the live buffer. Typical implementations
// include serial ports, TCP bridges to a module, or in-memory fakes used for
// testing.
type Transport interface {
	io.ReadWriteCloser
}

// BaudRateSetter is implemented by transports whose line speed can be
// changed while open. It is used for baud rate probing during init and by
// SetUART.
type BaudRateSetter interface {
	SetBaudRate(baud int) error
}

// Resetter is implemented by transports that control the module's reset
// line.
type Resetter interface {
	// SetReset drives the reset line; true holds the module in reset.
	SetReset(asserted bool) error
}

// Dialer opens a Transport to a module.
//
// Dialer abstracts how the connection is created and is intended to be used
// during session construction only. Once a Transport is obtained, the Dialer
// is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport.
	// It may perform blocking operations and should respect cancellation and
	// deadlines provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens the module over a serial port using go.bug.st/serial.
// The DTR line is wired to the module's reset pin.
type SerialDialer struct {
	PortName string
	// BaudRate is used when Mode is nil.
	BaudRate int
	Mode     *serial.Mode
	// ReadTimeout bounds a single read so the receive goroutine can notice
	// shutdown. Zero means block until data arrives.
	ReadTimeout time.Duration
}

// Dial opens the serial port described by d.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("wizfi: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("wizfi: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("wizfi: open %s: %w", d.PortName, err)
	}
	if d.ReadTimeout > 0 {
		if err := port.SetReadTimeout(d.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("wizfi: set read timeout: %w", err)
		}
	}
	m := *mode
	return &serialTransport{Port: port, mode: m}, nil
}

// serialTransport adapts a serial.Port to Transport, BaudRateSetter and
// Resetter.
type serialTransport struct {
	serial.Port
	mode serial.Mode
}

func (t *serialTransport) SetBaudRate(baud int) error {
	t.mode.BaudRate = baud
	return t.Port.SetMode(&t.mode)
}

func (t *serialTransport) SetReset(asserted bool) error {
	return t.Port.SetDTR(asserted)
}

var (
	_ Transport      = (*serialTransport)(nil)
	_ BaudRateSetter = (*serialTransport)(nil)
	_ Resetter       = (*serialTransport)(nil)
)
