package at

import "strings"

const escapeChars = `,"\`

// Escape prefixes every ',', '"' and '\' in s with a backslash so the value
// can sit inside a quoted, comma separated command argument.
func Escape(s string) string {
	if !strings.ContainsAny(s, escapeChars) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(escapeChars, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Unescape reverses Escape. A trailing lone backslash is kept.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
