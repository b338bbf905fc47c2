// Package macaddr canonicalizes raw MAC address strings scanned off device
// labels into the six-pair colon form.
package macaddr

import (
	"encoding/hex"
	"strings"

	"stocktake/internal/device"
)

const hexDigits = 12

// Normalize strips delimiters from a raw MAC address candidate and regroups
// it as six upper-case colon-separated octet pairs. Anything that does not
// reduce to exactly 12 hex digits comes back as the device.Unknown sentinel.
func Normalize(raw string) string {
	if device.IsUnknown(raw) {
		return device.Unknown
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		}
	}

	s := b.String()
	if len(s) != hexDigits {
		return device.Unknown
	}
	if _, err := hex.DecodeString(s); err != nil {
		return device.Unknown
	}

	pairs := make([]string, 0, hexDigits/2)
	for i := 0; i < hexDigits; i += 2 {
		pairs = append(pairs, s[i:i+2])
	}
	return strings.Join(pairs, ":")
}
