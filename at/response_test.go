package at_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

func TestParseCWLAP(t *testing.T) {
	var ap at.AccessPoint
	require.True(t, at.ParseCWLAP(`+CWLAP:(3,"my,net",-61,"c8:d7:19:aa:bb:01",6,-12,0)`, &ap))
	assert.Equal(t, at.AccessPoint{
		Ecn:         at.EcnWPA2PSK,
		SSID:        "my,net",
		RSSI:        -61,
		MAC:         [6]byte{0xc8, 0xd7, 0x19, 0xaa, 0xbb, 0x01},
		Channel:     6,
		Offset:      -12,
		Calibration: 0,
	}, ap)

	t.Run("short form", func(t *testing.T) {
		var ap at.AccessPoint
		require.True(t, at.ParseCWLAP(`+CWLAP:(0,"open",-80,"00:11:22:33:44:55",11)`, &ap))
		assert.Equal(t, at.EcnOpen, ap.Ecn)
		assert.Equal(t, 11, ap.Channel)
	})

	t.Run("malformed leaves record untouched", func(t *testing.T) {
		prev := at.AccessPoint{SSID: "keep"}
		ap := prev
		assert.False(t, at.ParseCWLAP(`+CWLAP:(3,"broken`, &ap))
		assert.False(t, at.ParseCWLAP(`+CWJAP:1`, &ap))
		assert.Equal(t, prev, ap)
	})
}

func TestParseCWJAP(t *testing.T) {
	var n at.JoinedNetwork
	require.True(t, at.ParseCWJAP(`+CWJAP_CUR:"office","a0:b1:c2:d3:e4:f5",1,-48`, &n))
	assert.Equal(t, "office", n.SSID)
	assert.Equal(t, [6]byte{0xa0, 0xb1, 0xc2, 0xd3, 0xe4, 0xf5}, n.MAC)
	assert.Equal(t, 1, n.Channel)
	assert.Equal(t, -48, n.RSSI)

	assert.False(t, at.ParseCWJAP("+CWJAP:3", &n), "failure reason is not a joined network")
	assert.Equal(t, "office", n.SSID)
}

func TestParseCWSAP(t *testing.T) {
	var cfg at.APConfig
	require.True(t, at.ParseCWSAP(`+CWSAP_CUR:"wizfi","12345678",5,3,4,1`, &cfg))
	assert.Equal(t, at.APConfig{
		SSID:           "wizfi",
		Pass:           "12345678",
		Ecn:            at.EcnWPA2PSK,
		Channel:        5,
		MaxConnections: 4,
		Hidden:         true,
	}, cfg)

	require.True(t, at.ParseCWSAP(`+CWSAP:"free","",1,0,2,0`, &cfg))
	assert.Equal(t, "free", cfg.SSID)
	assert.Empty(t, cfg.Pass)
	assert.False(t, cfg.Hidden)
}

func TestParseNetConfig(t *testing.T) {
	var cfg at.NetConfig
	require.True(t, at.ParseNetConfig(`+CIPSTA_CUR:ip:"192.168.1.20"`, at.RespCIPSTA, &cfg))
	require.True(t, at.ParseNetConfig(`+CIPSTA:netmask:"255.255.255.0"`, at.RespCIPSTA, &cfg))
	require.True(t, at.ParseNetConfig(`+CIPSTA_CUR:gateway:"192.168.1.1"`, at.RespCIPSTA, &cfg))
	assert.Equal(t, [4]byte{192, 168, 1, 20}, cfg.IP)
	assert.Equal(t, [4]byte{255, 255, 255, 0}, cfg.Netmask)
	assert.Equal(t, [4]byte{192, 168, 1, 1}, cfg.Gateway)
	assert.True(t, cfg.IPSet && cfg.NetmaskSet && cfg.GatewaySet)

	var ap at.NetConfig
	assert.False(t, at.ParseNetConfig(`+CIPSTA_CUR:ip:"1.2.3.4"`, at.RespCIPAP, &ap))
	require.True(t, at.ParseNetConfig(`+CIPAP_CUR:ip:"192.168.4.1"`, at.RespCIPAP, &ap))
	assert.Equal(t, [4]byte{192, 168, 4, 1}, ap.IP)
	assert.False(t, ap.NetmaskSet)

	assert.False(t, at.ParseNetConfig(`+CIPSTAMAC_CUR:"18:fe:34:00:00:01"`, at.RespCIPSTA, &cfg))
}

func TestParseMACLine(t *testing.T) {
	var mac [6]byte
	require.True(t, at.ParseMACLine(`+CIPSTAMAC_CUR:"18:fe:34:00:00:01"`, at.RespCIPSTAMAC, &mac))
	assert.Equal(t, [6]byte{0x18, 0xfe, 0x34, 0, 0, 1}, mac)

	require.True(t, at.ParseMACLine(`+CIPAPMAC:"1a:fe:34:00:00:02"`, at.RespCIPAPMAC, &mac))
	assert.Equal(t, byte(0x1a), mac[0])

	assert.False(t, at.ParseMACLine(`+CIPAPMAC:1a`, at.RespCIPAPMAC, &mac))
}

func TestParseCWLIF(t *testing.T) {
	var st at.ConnectedStation
	require.True(t, at.ParseCWLIF("192.168.4.2,5c:cf:7f:01:02:03", &st))
	assert.Equal(t, [4]byte{192, 168, 4, 2}, st.IP)
	assert.Equal(t, [6]byte{0x5c, 0xcf, 0x7f, 1, 2, 3}, st.MAC)

	assert.False(t, at.ParseCWLIF("OK", &st))
}

func TestParseIPD(t *testing.T) {
	var h at.IPDHeader
	require.True(t, at.ParseIPD(`+IPD,2,10,"1.2.3.4",80:`, &h))
	assert.Equal(t, at.IPDHeader{
		Conn:       2,
		Length:     10,
		RemoteIP:   [4]byte{1, 2, 3, 4},
		RemotePort: 80,
		HasRemote:  true,
	}, h)

	require.True(t, at.ParseIPD(`+IPD,0,512,10.0.0.7,5000:`, &h))
	assert.Equal(t, [4]byte{10, 0, 0, 7}, h.RemoteIP)
	assert.Equal(t, 5000, h.RemotePort)

	require.True(t, at.ParseIPD(`+IPD,1,3:`, &h))
	assert.Equal(t, 1, h.Conn)
	assert.Equal(t, 3, h.Length)
	assert.False(t, h.HasRemote)

	assert.False(t, at.ParseIPD(`+IPD,1:`, &h))
	assert.False(t, at.ParseIPD(`+IPD,x,3:`, &h))
}
