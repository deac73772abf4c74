package wizfi

import (
	"context"
	"net"
	"net/netip"
	"slices"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

// WifiConnect starts joining the access point ssid. The outcome is
// reported through WifiConnected, WifiGotIP or WifiConnectFailed.
func (s *Session) WifiConnect(ssid, pass string) error {
	if err := s.issue(joinCommand(ssid, pass)); err != nil {
		return err
	}
	s.joinError = 0
	return nil
}

// WifiConnectBlocking joins ssid and waits for the module's verdict.
func (s *Session) WifiConnectBlocking(ctx context.Context, ssid, pass string) error {
	if err := s.WifiConnect(ssid, pass); err != nil {
		return err
	}
	return s.result(ctx)
}

// WifiDisconnect leaves the current access point.
func (s *Session) WifiDisconnect(ctx context.Context) error {
	return s.exec(ctx, simpleCommand(cmdQuit, at.CmdQuit, at.CmdQuit))
}

// WifiGetConnected queries the access point the station is joined to. The
// answer is available through JoinedNetwork.
func (s *Session) WifiGetConnected() error {
	if err := s.issue(simpleCommand(cmdJoinQuery, at.CmdJoinQuery, at.RespCWJAP[:len(at.RespCWJAP)-1])); err != nil {
		return err
	}
	s.joined = JoinedNetwork{}
	return nil
}

// WifiGetConnectedBlocking queries the joined access point and waits for
// the answer.
func (s *Session) WifiGetConnectedBlocking(ctx context.Context) error {
	if err := s.WifiGetConnected(); err != nil {
		return err
	}
	return s.result(ctx)
}

// ListWifiStations scans for access points. Up to MaxDetectedAP results
// are passed to WifiDetected.
func (s *Session) ListWifiStations() error {
	if err := s.issue(simpleCommand(cmdListAP, at.CmdListAP, at.RespCWLAP)); err != nil {
		return err
	}
	s.aps = s.aps[:0]
	return nil
}

// ListWifiStationsBlocking scans for access points and waits for the scan
// to finish.
func (s *Session) ListWifiStationsBlocking(ctx context.Context) error {
	if err := s.ListWifiStations(); err != nil {
		return err
	}
	return s.result(ctx)
}

// SetMode switches the Wi-Fi role and refreshes the soft AP settings.
func (s *Session) SetMode(ctx context.Context, m Mode) error {
	if m < ModeSTA || m > ModeSTAAP {
		return ErrGeneric
	}
	if err := s.exec(ctx, modeCommand(m)); err != nil {
		return err
	}
	if s.mode != m {
		return ErrGeneric
	}
	return s.GetAPBlocking(ctx)
}

// GetSTAIP queries address, gateway and netmask of the station interface.
// WifiIPSet fires once the answer is complete.
func (s *Session) GetSTAIP() error {
	if err := s.issue(simpleCommand(cmdStationIP, at.CmdStationIP, at.RespCIPSTA)); err != nil {
		return err
	}
	s.sta = NetConfig{}
	return nil
}

// GetSTAIPBlocking queries the station IP configuration and waits for it.
func (s *Session) GetSTAIPBlocking(ctx context.Context) error {
	if err := s.GetSTAIP(); err != nil {
		return err
	}
	return s.result(ctx)
}

// GetSTAMAC queries the station MAC address. The answer is available
// through STAMAC.
func (s *Session) GetSTAMAC() error {
	if err := s.issue(simpleCommand(cmdStationMAC, at.CmdStationMAC, at.RespCIPSTAMAC)); err != nil {
		return err
	}
	s.staMACSet = false
	return nil
}

// GetSTAMACBlocking queries the station MAC address and waits for it.
func (s *Session) GetSTAMACBlocking(ctx context.Context) error {
	if err := s.GetSTAMAC(); err != nil {
		return err
	}
	return s.result(ctx)
}

// SetSTAMAC changes the station MAC address.
func (s *Session) SetSTAMAC(ctx context.Context, mac [6]byte) error {
	return s.exec(ctx, macCommand(cmdStationMAC, mac))
}

// WifiConnected reports whether the station is associated.
func (s *Session) WifiConnected() bool {
	return s.wifiConnected
}

// GotIP reports whether DHCP assigned the station an address.
func (s *Session) GotIP() bool {
	return s.gotIP
}

// Mode returns the Wi-Fi role last confirmed by the module.
func (s *Session) Mode() Mode {
	return s.mode
}

// STAConfig returns the last station IP configuration received.
func (s *Session) STAConfig() NetConfig {
	return s.sta
}

// STAIP returns the station address, if known.
func (s *Session) STAIP() (netip.Addr, bool) {
	return netip.AddrFrom4(s.sta.IP), s.sta.IPSet
}

// STAMAC returns the station MAC address, if known.
func (s *Session) STAMAC() (net.HardwareAddr, bool) {
	return net.HardwareAddr(slices.Clone(s.staMAC[:])), s.staMACSet
}

// JoinedNetwork returns the result of the last WifiGetConnected.
func (s *Session) JoinedNetwork() JoinedNetwork {
	return s.joined
}

// LastJoinError returns the reason reported by the last failed join.
func (s *Session) LastJoinError() WifiConnectError {
	return s.joinError
}

// AccessPoints returns the result of the last scan.
func (s *Session) AccessPoints() []AccessPoint {
	return slices.Clone(s.aps)
}
