package part

import "strings"

// FirstCustomNumFmt is the lowest id available to workbook-defined number
// formats; lower ids are reserved for the built-in ones.
const FirstCustomNumFmt = 164

var builtinNumFmts = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}

var builtinNumFmtIDs = func() map[string]int {
	m := make(map[string]int, len(builtinNumFmts))
	for id, code := range builtinNumFmts {
		m[code] = id
	}
	return m
}()

// BuiltinNumFmt returns the code of a built-in number format.
func BuiltinNumFmt(id int) (string, bool) {
	code, ok := builtinNumFmts[id]
	return code, ok
}

// IsDateFormat reports whether a number format code displays a date or a
// time. Quoted literals, escaped characters and bracketed sections such as
// colors are ignored.
func IsDateFormat(code string) bool {
	code = strings.ToLower(code)
	inQuote := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case ch == '[':
			j := strings.IndexByte(code[i:], ']')
			if j < 0 {
				return false
			}
			tag := code[i+1 : i+j]
			if tag == "h" || tag == "hh" || tag == "m" || tag == "mm" || tag == "s" || tag == "ss" {
				return true
			}
			i += j
		case strings.IndexByte("ymdhs", ch) >= 0:
			return true
		}
	}
	return false
}
