package wizfi

import (
	"context"
	"io"
	"testing"

	"go.bug.st/serial"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{}

	transport, err := dialer.Dial(context.Background())
	if err == nil {
		t.Fatal("expected error for empty port name")
	}
	if transport != nil {
		t.Error("expected nil transport for empty port name")
	}
	if err.Error() != "wizfi: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{PortName: "/dev/ttyUSB0"}

	//nolint:staticcheck // a nil context is the case under test
	transport, err := dialer.Dial(nil)
	if err == nil {
		t.Fatal("expected error for nil context")
	}
	if transport != nil {
		t.Error("expected nil transport for nil context")
	}
	if err.Error() != "wizfi: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{PortName: "/dev/nonexistent"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport, err := dialer.Dial(ctx)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport for canceled context")
	}
}

func TestSerialDialer_Dial_NonexistentPort(t *testing.T) {
	for name, dialer := range map[string]SerialDialer{
		"default mode": {PortName: "/dev/nonexistent", BaudRate: 921600},
		"explicit mode": {
			PortName: "/dev/nonexistent",
			Mode: &serial.Mode{
				BaudRate: 115200,
				Parity:   serial.NoParity,
				DataBits: 8,
				StopBits: serial.OneStopBit,
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			transport, err := dialer.Dial(context.Background())
			if err == nil {
				t.Error("expected error for non-existent port")
			}
			if transport != nil {
				t.Error("expected nil transport for non-existent port")
			}
		})
	}
}

func TestTestTransport(t *testing.T) {
	tr := NewTestTransport().Reply("AT\r\n", "AT\r\r\n\r\nOK\r\n")

	if _, err := tr.Write([]byte("AT+GMR\r\n")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if _, err := tr.Write([]byte("AT\r\n")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	// Short reads keep the rest of a reply for the next call.
	buf := make([]byte, 4)
	var got []byte
	for len(got) < len("AT\r\r\n\r\nOK\r\n") {
		n, err := tr.Read(buf)
		if err != nil {
			t.Fatalf("unexpected read error: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "AT\r\r\n\r\nOK\r\n" {
		t.Errorf("unexpected reply %q", got)
	}
	if w := tr.Written(); w != "AT+GMR\r\nAT\r\n" {
		t.Errorf("unexpected written data %q", w)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if _, err := tr.Read(buf); err != io.EOF {
		t.Errorf("expected io.EOF after close, got: %v", err)
	}
	if _, err := tr.Write([]byte("AT\r\n")); err == nil {
		t.Error("expected write error after close")
	}
}
