package wizfi

import (
	"fmt"
	"time"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

// commandKind is the closed set of commands the session can have in flight.
type commandKind int

const (
	cmdIdle commandKind = iota
	cmdReset
	cmdRestore
	cmdAT
	cmdEcho
	cmdMux
	cmdDataInfo
	cmdMode
	cmdJoin
	cmdJoinQuery
	cmdQuit
	cmdListAP
	cmdSoftAP
	cmdStationIP
	cmdSoftAPIP
	cmdStationMAC
	cmdSoftAPMAC
	cmdServer
	cmdServerTimeout
	cmdStart
	cmdClose
	cmdSend
	cmdSendData
	cmdPing
	cmdUART
	cmdSleep
	cmdDeepSleep
	cmdUpdate
	cmdListStations
)

var commandNames = [...]string{
	cmdIdle:          "IDLE",
	cmdReset:         "RST",
	cmdRestore:       "RESTORE",
	cmdAT:            "AT",
	cmdEcho:          "ATE",
	cmdMux:           "CIPMUX",
	cmdDataInfo:      "CIPDINFO",
	cmdMode:          "CWMODE",
	cmdJoin:          "CWJAP",
	cmdJoinQuery:     "CWJAP_GET",
	cmdQuit:          "CWQAP",
	cmdListAP:        "CWLAP",
	cmdSoftAP:        "CWSAP",
	cmdStationIP:     "CIPSTA",
	cmdSoftAPIP:      "CIPAP",
	cmdStationMAC:    "CIPSTAMAC",
	cmdSoftAPMAC:     "CIPAPMAC",
	cmdServer:        "CIPSERVER",
	cmdServerTimeout: "CIPSTO",
	cmdStart:         "CIPSTART",
	cmdClose:         "CIPCLOSE",
	cmdSend:          "SEND",
	cmdSendData:      "SENDDATA",
	cmdPing:          "PING",
	cmdUART:          "UART",
	cmdSleep:         "SLEEP",
	cmdDeepSleep:     "GSLP",
	cmdUpdate:        "CIUPDATE",
	cmdListStations:  "CWLIF",
}

func (k commandKind) String() string {
	if k >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// allLinks addresses every connection in AT+CIPCLOSE.
const allLinks = MaxConnections

// command is the content of the command slot: what was sent, which lines
// belong to its response and the data its completion needs.
type command struct {
	kind commandKind
	wire string
	// expect is the prefix of lines belonging to the response. Empty
	// accepts every line.
	expect string
	// secret keeps wire out of the logs.
	secret  bool
	timeout time.Duration
	started uint32

	conn int
	mode Mode
	baud int
	mac  [6]byte
	set  bool
	ap   APConfig
}

func simpleCommand(kind commandKind, wire, expect string) command {
	return command{kind: kind, wire: wire, expect: expect}
}

func resetCommand(timeout time.Duration) command {
	return command{kind: cmdReset, wire: at.CmdReset, expect: at.Ready, timeout: timeout}
}

func restoreCommand() command {
	return command{kind: cmdRestore, wire: at.CmdRestore, expect: at.Ready}
}

func modeCommand(m Mode) command {
	return command{kind: cmdMode, wire: fmt.Sprintf(at.CmdMode, int(m)), expect: "AT+CWMODE", mode: m}
}

func joinCommand(ssid, pass string) command {
	return command{
		kind:   cmdJoin,
		wire:   fmt.Sprintf(at.CmdJoin, at.Escape(ssid), at.Escape(pass)),
		expect: at.RespCWJAP,
		secret: true,
	}
}

func softAPCommand(cfg APConfig) command {
	hidden := 0
	if cfg.Hidden {
		hidden = 1
	}
	return command{
		kind: cmdSoftAP,
		wire: fmt.Sprintf(at.CmdSoftAP, at.Escape(cfg.SSID), at.Escape(cfg.Pass),
			cfg.Channel, int(cfg.Ecn), cfg.MaxConnections, hidden),
		expect: "AT+CWSAP",
		secret: true,
		set:    true,
		ap:     cfg,
	}
}

func macCommand(kind commandKind, mac [6]byte) command {
	wire, expect := at.CmdStationMACSet, "AT+CIPSTAMAC"
	if kind == cmdSoftAPMAC {
		wire, expect = at.CmdSoftAPMACSet, "AT+CIPAPMAC"
	}
	return command{kind: kind, wire: fmt.Sprintf(wire, at.FormatMAC(mac)), expect: expect, mac: mac, set: true}
}

func startCommand(conn int, proto Protocol, host string, port int) command {
	return command{kind: cmdStart, wire: fmt.Sprintf(at.CmdStart, conn, proto, host, port), conn: conn}
}

func closeCommand(conn int) command {
	return command{kind: cmdClose, wire: fmt.Sprintf(at.CmdClose, conn), expect: "AT+CIPCLOSE", conn: conn}
}

func sendCommand(conn int) command {
	return command{kind: cmdSend, wire: fmt.Sprintf(at.CmdSend, conn), expect: "AT+CIPSENDEX", conn: conn}
}

func uartCommand(baud int) command {
	return command{kind: cmdUART, wire: fmt.Sprintf(at.CmdUART, baud), expect: "AT+UART", baud: baud}
}
