package at

import "strings"

// Ecn is the security mode of an access point.
type Ecn int

const (
	EcnOpen Ecn = iota
	EcnWEP
	EcnWPAPSK
	EcnWPA2PSK
	EcnWPAWPA2PSK
)

func (e Ecn) String() string {
	switch e {
	case EcnOpen:
		return "open"
	case EcnWEP:
		return "wep"
	case EcnWPAPSK:
		return "wpa-psk"
	case EcnWPA2PSK:
		return "wpa2-psk"
	case EcnWPAWPA2PSK:
		return "wpa-wpa2-psk"
	}
	return "unknown"
}

// AccessPoint is one entry of a CWLAP scan.
type AccessPoint struct {
	Ecn         Ecn
	SSID        string
	RSSI        int
	MAC         [6]byte
	Channel     int
	Offset      int
	Calibration int
}

// JoinedNetwork describes the network the station is associated with.
type JoinedNetwork struct {
	SSID    string
	MAC     [6]byte
	Channel int
	RSSI    int
}

// APConfig is the soft-AP configuration, as reported by CWSAP and as
// accepted by SetAP.
type APConfig struct {
	SSID           string
	Pass           string
	Ecn            Ecn
	Channel        int
	MaxConnections int
	Hidden         bool
}

// NetConfig holds the addressing of one interface. The *Set flags tell
// which fields the module has reported since the last query started.
type NetConfig struct {
	IP         [4]byte
	Netmask    [4]byte
	Gateway    [4]byte
	IPSet      bool
	NetmaskSet bool
	GatewaySet bool
}

// ConnectedStation is one client of the soft AP, as listed by CWLIF.
type ConnectedStation struct {
	IP  [4]byte
	MAC [6]byte
}

// IPDHeader is the parsed form of "+IPD,<id>,<len>[,<ip>,<port>]:".
type IPDHeader struct {
	Conn       int
	Length     int
	RemoteIP   [4]byte
	RemotePort int
	HasRemote  bool
}

// cursor walks a response line field by field.
type cursor struct {
	s   string
	pos int
	bad bool
}

func (c *cursor) rest() string {
	return c.s[c.pos:]
}

// more reports whether another field follows before the closing paren.
func (c *cursor) more() bool {
	return !c.bad && c.pos < len(c.s) && c.s[c.pos] != ')'
}

func (c *cursor) expect(sep byte) {
	if c.bad || c.pos >= len(c.s) || c.s[c.pos] != sep {
		c.bad = true
		return
	}
	c.pos++
}

func (c *cursor) skip(sep byte) {
	if !c.bad && c.pos < len(c.s) && c.s[c.pos] == sep {
		c.pos++
	}
}

func (c *cursor) int() int {
	if c.bad {
		return 0
	}
	v, n := ParseInt(c.rest())
	if n == 0 {
		c.bad = true
	}
	c.pos += n
	return v
}

// quoted reads a "..." field. The closing quote is the first one followed
// by a separator or the end of the line, so quotes inside SSIDs survive.
func (c *cursor) quoted() string {
	c.expect('"')
	if c.bad {
		return ""
	}
	start := c.pos
	for i := start; i < len(c.s); i++ {
		if c.s[i] != '"' {
			continue
		}
		if i+1 == len(c.s) || c.s[i+1] == ',' || c.s[i+1] == ')' {
			c.pos = i + 1
			return c.s[start:i]
		}
	}
	c.bad = true
	return ""
}

func (c *cursor) ipv4() [4]byte {
	if c.bad {
		return [4]byte{}
	}
	ip, n := ParseIPv4(c.rest())
	if n == 0 {
		c.bad = true
	}
	c.pos += n
	return ip
}

func (c *cursor) mac() [6]byte {
	if c.bad {
		return [6]byte{}
	}
	mac, n := ParseMAC(c.rest())
	if n == 0 {
		c.bad = true
	}
	c.pos += n
	return mac
}

// after returns a cursor positioned behind prefix, an optional "_CUR" and
// the following ':'.
func after(line, prefix string) (*cursor, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return nil, false
	}
	rest = strings.TrimPrefix(rest, "_CUR")
	rest, ok = strings.CutPrefix(rest, ":")
	if !ok {
		return nil, false
	}
	return &cursor{s: rest}, true
}

// ParseCWLAP parses `+CWLAP:(<ecn>,"<ssid>",<rssi>,"<mac>",<ch>,<off>,<cal>)`
// into ap. The trailing offset and calibration fields are optional.
func ParseCWLAP(line string, ap *AccessPoint) bool {
	c, ok := after(line, RespCWLAP[:len(RespCWLAP)-1])
	if !ok {
		return false
	}
	c.skip('(')
	var v AccessPoint
	v.Ecn = Ecn(c.int())
	c.expect(',')
	v.SSID = c.quoted()
	c.expect(',')
	v.RSSI = c.int()
	c.expect(',')
	c.expect('"')
	v.MAC = c.mac()
	c.expect('"')
	c.expect(',')
	v.Channel = c.int()
	if c.bad {
		return false
	}
	c.skip(',')
	if c.more() {
		v.Offset = c.int()
		c.skip(',')
		if c.more() {
			v.Calibration = c.int()
		}
	}
	if c.bad {
		return false
	}
	*ap = v
	return true
}

// ParseCWJAP parses `+CWJAP_CUR:"<ssid>","<mac>",<ch>,<rssi>` into n.
func ParseCWJAP(line string, n *JoinedNetwork) bool {
	c, ok := after(line, RespCWJAP[:len(RespCWJAP)-1])
	if !ok {
		return false
	}
	var v JoinedNetwork
	v.SSID = c.quoted()
	c.expect(',')
	c.expect('"')
	v.MAC = c.mac()
	c.expect('"')
	c.expect(',')
	v.Channel = c.int()
	c.expect(',')
	v.RSSI = c.int()
	if c.bad {
		return false
	}
	*n = v
	return true
}

// ParseCWSAP parses `+CWSAP:"<ssid>","<pass>",<ch>,<ecn>,<max>,<hidden>` into
// cfg. The _CUR form is accepted too.
func ParseCWSAP(line string, cfg *APConfig) bool {
	c, ok := after(line, RespCWSAP)
	if !ok {
		return false
	}
	var v APConfig
	v.SSID = c.quoted()
	c.expect(',')
	v.Pass = c.quoted()
	c.expect(',')
	v.Channel = c.int()
	c.expect(',')
	v.Ecn = Ecn(c.int())
	c.expect(',')
	v.MaxConnections = c.int()
	c.expect(',')
	v.Hidden = c.int() != 0
	if c.bad {
		return false
	}
	*cfg = v
	return true
}

// ParseNetConfig parses one `<prefix>[_CUR]:<field>:"<a.b.c.d>"` line, where
// prefix is RespCIPSTA or RespCIPAP and field is ip, netmask or gateway.
func ParseNetConfig(line, prefix string, cfg *NetConfig) bool {
	c, ok := after(line, prefix)
	if !ok {
		return false
	}
	field, _, found := strings.Cut(c.rest(), ":")
	if !found {
		return false
	}
	c.pos += len(field) + 1
	c.expect('"')
	ip := c.ipv4()
	c.expect('"')
	if c.bad {
		return false
	}
	switch field {
	case "ip":
		cfg.IP, cfg.IPSet = ip, true
	case "netmask":
		cfg.Netmask, cfg.NetmaskSet = ip, true
	case "gateway":
		cfg.Gateway, cfg.GatewaySet = ip, true
	default:
		return false
	}
	return true
}

// ParseMACLine parses `<prefix>[_CUR]:"<mac>"` into mac.
func ParseMACLine(line, prefix string, mac *[6]byte) bool {
	c, ok := after(line, prefix)
	if !ok {
		return false
	}
	c.expect('"')
	v := c.mac()
	c.expect('"')
	if c.bad {
		return false
	}
	*mac = v
	return true
}

// ParseCWLIF parses one `<ip>,<mac>` station line into st.
func ParseCWLIF(line string, st *ConnectedStation) bool {
	c := &cursor{s: line}
	ip := c.ipv4()
	c.expect(',')
	mac := c.mac()
	if c.bad {
		return false
	}
	st.IP, st.MAC = ip, mac
	return true
}

// ParseIPD parses an IPD header as returned by Splitter. The remote address
// is present only when CIPDINFO is enabled; the IP may or may not be quoted.
func ParseIPD(header string, h *IPDHeader) bool {
	rest, ok := strings.CutPrefix(header, IPD)
	if !ok {
		return false
	}
	rest, ok = strings.CutSuffix(rest, ":")
	if !ok {
		return false
	}
	c := &cursor{s: rest}
	var v IPDHeader
	v.Conn = c.int()
	c.expect(',')
	v.Length = c.int()
	if c.bad || v.Length < 0 {
		return false
	}
	if c.pos < len(c.s) {
		c.expect(',')
		c.skip('"')
		v.RemoteIP = c.ipv4()
		c.skip('"')
		c.expect(',')
		v.RemotePort = c.int()
		if c.bad {
			return false
		}
		v.HasRemote = true
	}
	*h = v
	return true
}
