package wizfi

import "github.com/wizfi/ESP8266-AT-Commands-parser/at"

type (
	AccessPoint      = at.AccessPoint
	APConfig         = at.APConfig
	JoinedNetwork    = at.JoinedNetwork
	NetConfig        = at.NetConfig
	ConnectedStation = at.ConnectedStation
	Ecn              = at.Ecn
)

// Mode is the Wi-Fi role of the module.
type Mode int

const (
	ModeSTA   Mode = 1
	ModeAP    Mode = 2
	ModeSTAAP Mode = 3
)

// WifiConnectError is the reason reported by "+CWJAP:<n>".
type WifiConnectError int

const (
	WifiConnectTimeout  WifiConnectError = 1
	WifiConnectWrongPwd WifiConnectError = 2
	WifiConnectNoAP     WifiConnectError = 3
	WifiConnectFail     WifiConnectError = 4
)

func (e WifiConnectError) String() string {
	switch e {
	case WifiConnectTimeout:
		return "timeout"
	case WifiConnectWrongPwd:
		return "wrong password"
	case WifiConnectNoAP:
		return "no access point"
	case WifiConnectFail:
		return "connect failed"
	}
	return "unknown"
}

// FirmwareUpdateStatus is a step reported by "+CIPUPDATE:<n>".
type FirmwareUpdateStatus int

const (
	FirmwareUpdateServerFound FirmwareUpdateStatus = 1
	FirmwareUpdateConnected   FirmwareUpdateStatus = 2
	FirmwareUpdateGotEdition  FirmwareUpdateStatus = 3
	FirmwareUpdateStartUpdate FirmwareUpdateStatus = 4
)

// SleepMode selects the modem sleep behaviour of AT+SLEEP.
type SleepMode int

const (
	SleepDisable SleepMode = iota
	SleepLight
	SleepModem
)

// Protocol of a client connection.
type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// Ping is the outcome of the last AT+PING.
type Ping struct {
	Address string
	// Time is the round trip in milliseconds.
	Time    int
	Success bool
}
