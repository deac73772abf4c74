package wizfi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

// settle is how long the line is left alone around a baud rate change.
const settle = 5 * time.Millisecond

// RestoreDefault wipes the module settings. The module reboots at
// DefaultBaudRate, so the transport is switched back to it.
func (s *Session) RestoreDefault(ctx context.Context) error {
	if err := s.exec(ctx, restoreCommand()); err != nil {
		return err
	}
	if err := s.applyBaudRate(DefaultBaudRate); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}
	s.baudRate = DefaultBaudRate
	s.live.Reset()
	return nil
}

// SetUART changes the line speed of the module and then of the transport.
func (s *Session) SetUART(ctx context.Context, baud int) error {
	if err := s.exec(ctx, uartCommand(baud)); err != nil {
		return err
	}
	if err := sleep(ctx, settle); err != nil {
		return err
	}
	if err := s.applyBaudRate(baud); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}
	s.baudRate = baud
	s.live.Reset()
	s.logger.Info("baud rate changed", zap.Int("baud_rate", baud))
	return sleep(ctx, settle)
}

// SetUARTDefault switches to DefaultBaudRate.
func (s *Session) SetUARTDefault(ctx context.Context) error {
	return s.SetUART(ctx, DefaultBaudRate)
}

// Sleep selects the modem sleep mode.
func (s *Session) Sleep(ctx context.Context, mode SleepMode) error {
	return s.exec(ctx, simpleCommand(cmdSleep, fmt.Sprintf(at.CmdSleep, int(mode)), at.RespSleep))
}

// DeepSleep powers the module down for d. It wakes up through a reset, so
// the session has to be recreated afterwards.
func (s *Session) DeepSleep(ctx context.Context, d time.Duration) error {
	return s.exec(ctx, simpleCommand(cmdDeepSleep, fmt.Sprintf(at.CmdDeepSleep, d.Milliseconds()), "AT+GSLP"))
}

// Ping starts an AT+PING to addr. PingFinished reports the result.
func (s *Session) Ping(addr string) error {
	if s.active.kind != cmdIdle {
		return ErrBusy
	}
	if !s.wifiConnected {
		return ErrWifiNotConnected
	}
	if err := s.issue(simpleCommand(cmdPing, fmt.Sprintf(at.CmdPing, at.Escape(addr)), at.RespPing)); err != nil {
		return err
	}
	s.ping = Ping{Address: addr}
	s.handler.PingStarted(s, addr)
	return nil
}

// PingBlocking pings addr and returns the result.
func (s *Session) PingBlocking(ctx context.Context, addr string) (Ping, error) {
	if err := s.Ping(addr); err != nil {
		return Ping{}, err
	}
	if err := s.result(ctx); err != nil {
		return s.ping, err
	}
	return s.ping, nil
}

// PingResult returns the outcome of the last ping.
func (s *Session) PingResult() Ping {
	return s.ping
}

// FirmwareUpdate starts an over the air update. Progress is reported
// through FirmwareUpdateStatus, completion through FirmwareUpdateSuccess or
// FirmwareUpdateError.
func (s *Session) FirmwareUpdate() error {
	if s.active.kind != cmdIdle {
		return ErrBusy
	}
	if !s.wifiConnected {
		return ErrWifiNotConnected
	}
	return s.issue(simpleCommand(cmdUpdate, at.CmdUpdate, at.RespCIPUPDATE))
}

// BaudRate returns the current line speed.
func (s *Session) BaudRate() int {
	return s.baudRate
}

// TotalBytesReceived returns the payload bytes received on all links.
func (s *Session) TotalBytesReceived() uint64 {
	return s.totalReceived
}

// TotalBytesSent returns the payload bytes sent on all links.
func (s *Session) TotalBytesSent() uint64 {
	return s.totalSent
}

// Status is a snapshot of the session suitable for reporting.
type Status struct {
	ID            string   `json:"id"`
	BaudRate      int      `json:"baud_rate"`
	Mode          Mode     `json:"mode"`
	WifiConnected bool     `json:"wifi_connected"`
	GotIP         bool     `json:"got_ip"`
	STAIP         string   `json:"sta_ip,omitempty"`
	APIP          string   `json:"ap_ip,omitempty"`
	STAMAC        string   `json:"sta_mac,omitempty"`
	APMAC         string   `json:"ap_mac,omitempty"`
	Busy          bool     `json:"busy"`
	ActiveLinks   []int    `json:"active_links"`
	BytesReceived uint64   `json:"bytes_received"`
	BytesSent     uint64   `json:"bytes_sent"`
	LastPing      *Ping    `json:"last_ping,omitempty"`
	AccessPoints  []string `json:"access_points,omitempty"`
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	st := Status{
		ID:            s.id,
		BaudRate:      s.baudRate,
		Mode:          s.mode,
		WifiConnected: s.wifiConnected,
		GotIP:         s.gotIP,
		Busy:          s.active.kind != cmdIdle,
		ActiveLinks:   []int{},
		BytesReceived: s.totalReceived,
		BytesSent:     s.totalSent,
	}
	if ip, ok := s.STAIP(); ok {
		st.STAIP = ip.String()
	}
	if ip, ok := s.APIP(); ok {
		st.APIP = ip.String()
	}
	if s.staMACSet {
		st.STAMAC = at.FormatMAC(s.staMAC)
	}
	if s.apMACSet {
		st.APMAC = at.FormatMAC(s.apMAC)
	}
	for i := range s.conns {
		if s.conns[i].Active {
			st.ActiveLinks = append(st.ActiveLinks, i)
		}
	}
	if s.ping.Address != "" {
		p := s.ping
		st.LastPing = &p
	}
	for _, ap := range s.aps {
		st.AccessPoints = append(st.AccessPoints, ap.SSID)
	}
	return st
}
