package part

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var xEscape = regexp.MustCompile(`_x([0-9A-Fa-f]{4})_`)

// EncodeXString escapes characters that XML 1.0 cannot carry using the
// _xHHHH_ notation of the file format. A literal "_x" that would read as
// an escape is protected by escaping its underscore.
func EncodeXString(s string) string {
	if !strings.Contains(s, "_x") && strings.IndexFunc(s, invalidXMLRune) < 0 {
		return s
	}
	s = xEscape.ReplaceAllStringFunc(s, func(m string) string {
		return "_x005F_" + m[1:]
	})
	var sb strings.Builder
	for _, r := range s {
		if invalidXMLRune(r) {
			fmt.Fprintf(&sb, "_x%04X_", r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// DecodeXString reverses EncodeXString.
func DecodeXString(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	return xEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, _ := strconv.ParseUint(m[2:6], 16, 32)
		return string(rune(n))
	})
}

func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r == 0xFFFE || r == 0xFFFF:
		return true
	}
	return false
}
