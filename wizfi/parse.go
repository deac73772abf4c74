package wizfi

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

// accepts reports whether line belongs to the running command. Final
// result codes and the boot banner always do.
func (s *Session) accepts(line string) bool {
	if at.Classify(line) == at.TypeFinal || line == at.Ready {
		return true
	}
	// A join reports its progress through the wifi banners; the DHCP
	// timeout check needs them as they happen.
	if s.active.kind == cmdJoin {
		switch line {
		case at.WifiConnected, at.WifiGotIP, at.WifiDisconnect:
			return true
		}
	}
	return strings.HasPrefix(line, s.active.expect)
}

// parseLine routes one complete line. Banners and link events are handled
// first; the per-command handling only sees the remaining lines (and the
// boot banner, which also completes a reset).
func (s *Session) parseLine(line string, live bool) {
	if live && s.active.kind != cmdIdle && !s.accepts(line) {
		s.deferLine(line)
		return
	}
	s.logger.Debug("line received", zap.String("line", redact(line)))

	if s.parseEvent(line) {
		return
	}

	after := s.parseCommandLine(line)
	s.parseFinal(line)
	if after != nil {
		after()
	}
}

// redact hides the echo of commands that carry credentials.
func redact(line string) string {
	for _, p := range []string{"AT+CWJAP_CUR=", "AT+CWSAP_CUR="} {
		if strings.HasPrefix(line, p) {
			return p + "..."
		}
	}
	return line
}

// parseEvent handles unsolicited output. It reports whether line was
// consumed.
func (s *Session) parseEvent(line string) bool {
	switch line {
	case at.Ready:
		s.handler.DeviceReady(s)
		return false
	case at.WatchdogReset:
		s.logger.Warn("module watchdog reset")
		s.handler.WatchdogReset(s)
		return true
	case at.WifiConnected:
		s.wifiConnected = true
		s.handler.WifiConnected(s)
		return true
	case at.WifiDisconnect:
		s.wifiConnected = false
		s.gotIP = false
		for i := range s.conns {
			s.conns[i].reset()
		}
		s.handler.WifiDisconnected(s)
		return true
	case at.WifiGotIP:
		s.gotIP = true
		s.handler.WifiGotIP(s)
		return true
	case at.SendOK:
		s.sendCompleted()
		return true
	case at.AlreadyConnected:
		s.logger.Debug("link already connected")
		return true
	}

	if id, ok := at.LinkEvent(line, at.LinkConnectFail); ok {
		if id < MaxConnections {
			c := &s.conns[id]
			s.handler.ClientConnectionError(s, c)
			c.reset()
		}
		return true
	}
	if id, ok := at.LinkEvent(line, at.LinkConnect); ok {
		if id < MaxConnections {
			s.linkConnected(&s.conns[id])
		}
		return true
	}
	if id, ok := at.LinkEvent(line, at.LinkClosed); ok {
		if id < MaxConnections {
			s.linkClosed(&s.conns[id])
		}
		return true
	}
	return false
}

func (s *Session) linkConnected(c *Connection) {
	c.Active = true
	if c.Client {
		if s.active.kind == cmdStart && s.active.conn == c.Number {
			s.finish()
			s.lastOK = true
		}
		s.handler.ClientConnectionConnected(s, c)
		return
	}
	// Accepted by the server. Forget whatever was left from a previous
	// link in this slot.
	number, data := c.Number, c.Data
	*c = Connection{Number: number, Data: data, Active: true, pending: c.pending[:0]}
	s.handler.ServerConnectionActive(s, c)
}

func (s *Session) linkClosed(c *Connection) {
	if !c.Active {
		c.reset()
		return
	}
	if c.Client {
		s.handler.ClientConnectionClosed(s, c)
	} else {
		s.handler.ServerConnectionClosed(s, c)
	}
	c.reset()
}

// parseCommandLine interprets line in the context of the active command.
// The returned func, if any, runs after the command slot was updated so
// that callbacks may issue the next command.
func (s *Session) parseCommandLine(line string) (after func()) {
	cmd := s.active
	switch cmd.kind {
	case cmdReset, cmdRestore:
		if line == at.Ready {
			s.finish()
			s.lastOK = true
		}

	case cmdJoin:
		switch {
		case strings.HasPrefix(line, at.RespCWJAP):
			v, _ := at.ParseInt(line[len(at.RespCWJAP):])
			s.joinError = WifiConnectError(v)
		case line == at.FAIL:
			reason := s.joinError
			return func() { s.handler.WifiConnectFailed(s, reason) }
		}

	case cmdJoinQuery:
		var n JoinedNetwork
		if at.ParseCWJAP(line, &n) {
			s.joined = n
		}

	case cmdListAP:
		var ap AccessPoint
		if strings.HasPrefix(line, at.RespCWLAP) && at.ParseCWLAP(line, &ap) {
			if len(s.aps) < s.config.MaxDetectedAP {
				s.aps = append(s.aps, ap)
			}
		}
		if line == at.OK {
			aps := s.aps
			return func() { s.handler.WifiDetected(s, aps) }
		}

	case cmdSoftAP:
		if cmd.set {
			if line == at.OK {
				s.apConfig = cmd.ap
			}
			break
		}
		var cfg APConfig
		if at.ParseCWSAP(line, &cfg) {
			s.apConfig = cfg
		}

	case cmdStationIP:
		at.ParseNetConfig(line, at.RespCIPSTA, &s.sta)
		if line == at.OK {
			return func() { s.handler.WifiIPSet(s) }
		}

	case cmdSoftAPIP:
		at.ParseNetConfig(line, at.RespCIPAP, &s.ap)

	case cmdStationMAC:
		if cmd.set {
			if line == at.OK {
				s.staMAC, s.staMACSet = cmd.mac, true
			}
		} else if at.ParseMACLine(line, at.RespCIPSTAMAC, &s.staMAC) {
			s.staMACSet = true
		}

	case cmdSoftAPMAC:
		if cmd.set {
			if line == at.OK {
				s.apMAC, s.apMACSet = cmd.mac, true
			}
		} else if at.ParseMACLine(line, at.RespCIPAPMAC, &s.apMAC) {
			s.apMACSet = true
		}

	case cmdMode:
		if line == at.OK {
			s.mode = cmd.mode
		}

	case cmdStart:
		if line == at.ERROR {
			c := &s.conns[cmd.conn]
			if c.Active {
				return func() {
					s.handler.ClientConnectionError(s, c)
					c.reset()
				}
			}
		}

	case cmdClose:
		if line == at.OK {
			var closed []*Connection
			for i := range s.conns {
				c := &s.conns[i]
				if (cmd.conn == allLinks || cmd.conn == i) && c.Active {
					closed = append(closed, c)
				}
			}
			return func() {
				for _, c := range closed {
					s.linkClosed(c)
				}
			}
		}

	case cmdPing:
		switch {
		case len(line) > 1 && line[0] == '+' && line[1] >= '0' && line[1] <= '9':
			s.ping.Time, _ = at.ParseInt(line[1:])
		case line == at.OK, line == at.ERROR:
			s.ping.Success = line == at.OK
			p := s.ping
			return func() { s.handler.PingFinished(s, p) }
		}

	case cmdUART:
		if line == at.OK {
			s.baudRate = cmd.baud
		}

	case cmdUpdate:
		switch {
		case strings.HasPrefix(line, at.RespCIPUPDATE):
			v, _ := at.ParseInt(line[len(at.RespCIPUPDATE):])
			status := FirmwareUpdateStatus(v)
			if status == FirmwareUpdateStartUpdate {
				s.active.timeout *= 10
			}
			s.handler.FirmwareUpdateStatus(s, status)
		case line == at.OK, line == at.Ready:
			s.finish()
			s.lastOK = true
			return func() { s.handler.FirmwareUpdateSuccess(s) }
		case line == at.ERROR:
			return func() { s.handler.FirmwareUpdateError(s) }
		}

	case cmdListStations:
		var st ConnectedStation
		if strings.HasPrefix(line, cmd.expect) && at.ParseCWLIF(line, &st) {
			if len(s.stations) < s.config.MaxConnectedStations {
				s.stations = append(s.stations, st)
			}
		}
		if line == at.OK {
			stations := s.stations
			return func() { s.handler.ConnectedStationsDetected(s, stations) }
		}
	}
	return nil
}

// parseFinal applies the generic meaning of final result codes to the
// active command.
func (s *Session) parseFinal(line string) {
	kind := s.active.kind
	if kind == cmdIdle {
		return
	}
	switch {
	case line == at.OK:
		switch kind {
		case cmdSend:
			s.active.kind = cmdSendData
			s.active.expect = at.SendOK
			s.lastOK = true
		case cmdSendData, cmdReset, cmdRestore:
			// completed by SEND OK or the boot banner
		default:
			s.finish()
			s.lastOK = true
		}
	case line == at.ERROR, line == at.FAIL, line == at.SendFail, strings.HasPrefix(line, at.Busy):
		if kind == cmdSend || kind == cmdSendData {
			s.sendFailed()
		}
		s.finish()
		s.lastOK = false
	}
}
