package wizfi

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strconv"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

const (
	maxSSIDLength   = 64
	maxPassLength   = 64
	minPassLength   = 8
	maxAPStationNum = 4
)

// GetAP queries the soft AP settings. The answer is available through
// APConfig.
func (s *Session) GetAP() error {
	return s.issue(simpleCommand(cmdSoftAP, at.CmdSoftAPQuery, at.RespCWSAP))
}

// GetAPBlocking queries the soft AP settings and waits for the answer.
func (s *Session) GetAPBlocking(ctx context.Context) error {
	if err := s.GetAP(); err != nil {
		return err
	}
	return s.result(ctx)
}

// SetAP applies cfg to the soft AP. Settings the module would reject are
// refused with ErrGeneric before anything is sent.
func (s *Session) SetAP(cfg APConfig) error {
	if err := validateAP(cfg); err != nil {
		return err
	}
	return s.issue(softAPCommand(cfg))
}

// SetAPBlocking applies cfg to the soft AP and waits for the module.
func (s *Session) SetAPBlocking(ctx context.Context, cfg APConfig) error {
	if err := s.SetAP(cfg); err != nil {
		return err
	}
	return s.result(ctx)
}

func validateAP(cfg APConfig) error {
	switch {
	case len(cfg.SSID) > maxSSIDLength:
		return fmt.Errorf("%w: ssid longer than %d bytes", ErrGeneric, maxSSIDLength)
	case len(cfg.Pass) > maxPassLength:
		return fmt.Errorf("%w: password longer than %d bytes", ErrGeneric, maxPassLength)
	case cfg.Ecn != at.EcnOpen && len(cfg.Pass) < minPassLength:
		return fmt.Errorf("%w: password shorter than %d bytes", ErrGeneric, minPassLength)
	case cfg.Ecn == at.EcnWEP:
		return fmt.Errorf("%w: WEP is not supported for the soft AP", ErrGeneric)
	case cfg.Ecn < at.EcnOpen || cfg.Ecn > at.EcnWPAWPA2PSK:
		return fmt.Errorf("%w: unknown encryption %d", ErrGeneric, int(cfg.Ecn))
	case cfg.MaxConnections < 1 || cfg.MaxConnections > maxAPStationNum:
		return fmt.Errorf("%w: max connections must be 1 to %d", ErrGeneric, maxAPStationNum)
	}
	return nil
}

// GetAPIP queries address, gateway and netmask of the soft AP interface.
func (s *Session) GetAPIP() error {
	if err := s.issue(simpleCommand(cmdSoftAPIP, at.CmdSoftAPIP, at.RespCIPAP)); err != nil {
		return err
	}
	s.ap = NetConfig{}
	return nil
}

// GetAPIPBlocking queries the soft AP IP configuration and waits for it.
func (s *Session) GetAPIPBlocking(ctx context.Context) error {
	if err := s.GetAPIP(); err != nil {
		return err
	}
	return s.result(ctx)
}

// GetAPMAC queries the soft AP MAC address. The answer is available
// through APMAC.
func (s *Session) GetAPMAC() error {
	if err := s.issue(simpleCommand(cmdSoftAPMAC, at.CmdSoftAPMAC, at.RespCIPAPMAC)); err != nil {
		return err
	}
	s.apMACSet = false
	return nil
}

// GetAPMACBlocking queries the soft AP MAC address and waits for it.
func (s *Session) GetAPMACBlocking(ctx context.Context) error {
	if err := s.GetAPMAC(); err != nil {
		return err
	}
	return s.result(ctx)
}

// SetAPMAC changes the soft AP MAC address.
func (s *Session) SetAPMAC(ctx context.Context, mac [6]byte) error {
	return s.exec(ctx, macCommand(cmdSoftAPMAC, mac))
}

// GetConnectedStations lists the stations joined to the soft AP. AT+CWLIF
// answers with bare "<ip>,<mac>" lines, which are told apart by the first
// octet of the soft AP subnet.
func (s *Session) GetConnectedStations() error {
	c := simpleCommand(cmdListStations, at.CmdListStations, strconv.Itoa(int(s.ap.IP[0])))
	if err := s.issue(c); err != nil {
		return err
	}
	s.stations = s.stations[:0]
	return nil
}

// GetConnectedStationsBlocking lists the joined stations and waits for
// the list to complete.
func (s *Session) GetConnectedStationsBlocking(ctx context.Context) error {
	if err := s.GetConnectedStations(); err != nil {
		return err
	}
	return s.result(ctx)
}

// APConfig returns the last soft AP settings read or applied.
func (s *Session) APConfig() APConfig {
	return s.apConfig
}

// APNetConfig returns the last soft AP IP configuration received.
func (s *Session) APNetConfig() NetConfig {
	return s.ap
}

// APIP returns the soft AP address and whether the module reported one.
func (s *Session) APIP() (netip.Addr, bool) {
	return netip.AddrFrom4(s.ap.IP), s.ap.IPSet
}

// APMAC returns a copy of the soft AP MAC address and whether it is known.
func (s *Session) APMAC() (net.HardwareAddr, bool) {
	return net.HardwareAddr(slices.Clone(s.apMAC[:])), s.apMACSet
}

// ConnectedStations returns the result of the last GetConnectedStations.
func (s *Session) ConnectedStations() []ConnectedStation {
	return slices.Clone(s.stations)
}
