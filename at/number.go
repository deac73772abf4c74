package at

import "fmt"

// ParseInt reads an optionally negative decimal number from the start of s.
// It returns the value and the number of characters consumed. When s does
// not start with a digit (after an optional '-') it returns 0, 0.
func ParseInt(s string) (value, consumed int) {
	i := 0
	neg := false
	if i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		value = value*10 + int(s[i]-'0')
		i++
	}
	if i == start {
		return 0, 0
	}
	if neg {
		value = -value
	}
	return value, i
}

// ParseHex reads a hexadecimal number from the start of s, with the same
// consumed-length reporting as ParseInt.
func ParseHex(s string) (value, consumed int) {
	i := 0
	for ; i < len(s); i++ {
		d, ok := hexDigit(s[i])
		if !ok {
			break
		}
		value = value<<4 | d
	}
	return value, i
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// ParseIPv4 reads a dotted-quad address. Missing or malformed octets are
// left zero; consumed tells how far parsing got.
func ParseIPv4(s string) (ip [4]byte, consumed int) {
	for k := 0; k < 4; k++ {
		if k > 0 {
			if consumed >= len(s) || s[consumed] != '.' {
				return ip, consumed
			}
			consumed++
		}
		v, n := ParseInt(s[consumed:])
		if n == 0 {
			return ip, consumed
		}
		ip[k] = byte(v)
		consumed += n
	}
	return ip, consumed
}

// ParseMAC reads a colon separated hardware address such as
// "18:fe:34:a1:b2:c3".
func ParseMAC(s string) (mac [6]byte, consumed int) {
	for k := 0; k < 6; k++ {
		if k > 0 {
			if consumed >= len(s) || s[consumed] != ':' {
				return mac, consumed
			}
			consumed++
		}
		v, n := ParseHex(s[consumed:])
		if n == 0 {
			return mac, consumed
		}
		mac[k] = byte(v)
		consumed += n
	}
	return mac, consumed
}

// FormatMAC renders mac the way the module expects it in CIPSTAMAC/CIPAPMAC.
func FormatMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
