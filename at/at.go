// Package at holds the wire vocabulary of the WizFi360/ESP8266 AT protocol
// together with the stateless parsers that turn single response lines into
// typed records.
package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Final result codes
	OK       = "OK"
	ERROR    = "ERROR"
	FAIL     = "FAIL"
	SendOK   = "SEND OK"
	SendFail = "SEND FAIL"
	Busy     = "busy " // "busy p..." and "busy s..."

	// Banners and link events
	Ready            = "ready"
	WatchdogReset    = "wdt reset"
	WifiConnected    = "WIFI CONNECTED"
	WifiDisconnect   = "WIFI DISCONNECT"
	WifiGotIP        = "WIFI GOT IP"
	AlreadyConnected = "ALREADY CONNECTED"
	LinkConnect      = ",CONNECT"
	LinkConnectFail  = ",CONNECT FAIL"
	LinkClosed       = ",CLOSED"
	IPD              = "+IPD,"

	// Response prefixes
	RespCWJAP      = "+CWJAP:"
	RespCWJAPCur   = "+CWJAP_CUR:"
	RespCWLAP      = "+CWLAP:"
	RespCWSAP      = "+CWSAP"
	RespCIPSTA     = "+CIPSTA"
	RespCIPAP      = "+CIPAP"
	RespCIPSTAMAC  = "+CIPSTAMAC"
	RespCIPAPMAC   = "+CIPAPMAC"
	RespCIPUPDATE  = "+CIPUPDATE:"
	RespSleep      = "+SLEEP"
	RespPing       = "+"
	HeaderLength   = "Content-Length: "
	SendTerminator = `\0`
)

// Commands
const (
	CmdAT            = "AT"
	CmdReset         = "AT+RST"
	CmdRestore       = "AT+RESTORE"
	CmdEchoOn        = "ATE1"
	CmdMux           = "AT+CIPMUX=1"
	CmdDataInfo      = "AT+CIPDINFO=1"
	CmdMode          = "AT+CWMODE_CUR=%d"
	CmdJoin          = `AT+CWJAP_CUR="%s","%s"`
	CmdJoinQuery     = "AT+CWJAP_CUR?"
	CmdQuit          = "AT+CWQAP"
	CmdListAP        = "AT+CWLAP"
	CmdSoftAPQuery   = "AT+CWSAP_CUR?"
	CmdSoftAP        = `AT+CWSAP_CUR="%s","%s",%d,%d,%d,%d`
	CmdStationIP     = "AT+CIPSTA_CUR?"
	CmdSoftAPIP      = "AT+CIPAP_CUR?"
	CmdStationMAC    = "AT+CIPSTAMAC_CUR?"
	CmdStationMACSet = `AT+CIPSTAMAC_CUR="%s"`
	CmdSoftAPMAC     = "AT+CIPAPMAC_CUR?"
	CmdSoftAPMACSet  = `AT+CIPAPMAC_CUR="%s"`
	CmdServer        = "AT+CIPSERVER=1,%d"
	CmdServerOff     = "AT+CIPSERVER=0"
	CmdServerTimeout = "AT+CIPSTO=%d"
	CmdStart         = `AT+CIPSTART=%d,"%s","%s",%d`
	CmdClose         = "AT+CIPCLOSE=%d"
	CmdSend          = "AT+CIPSENDEX=%d,2048"
	CmdPing          = `AT+PING="%s"`
	CmdUART          = "AT+UART_CUR=%d,8,1,0,0"
	CmdSleep         = "AT+SLEEP=%d"
	CmdDeepSleep     = "AT+GSLP=%d"
	CmdUpdate        = "AT+CIUPDATE"
	CmdListStations  = "AT+CWLIF"
)

// ResponseType sorts a line received from the module.
type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR, SEND OK, busy ...
	TypeURC                        // Banners and link notifications
	TypeData                       // Intermediate command output (+CWLAP: ...)
	TypePrompt                     // Send-ready prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	}
	return "unknown"
}
