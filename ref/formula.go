package ref

import (
	"regexp"
	"strconv"
	"strings"
)

// refPattern matches a possibly sheet-qualified cell, area, column range or
// row range inside formula text.
var refPattern = regexp.MustCompile(
	`(?:('(?:[^']|'')+'|[A-Za-z_\p{L}][A-Za-z0-9_.\p{L}]*)!)?` +
		`(\$?[A-Za-z]{1,3}\$?[0-9]+(?::\$?[A-Za-z]{1,3}\$?[0-9]+)?|\$?[A-Za-z]{1,3}:\$?[A-Za-z]{1,3}|\$?[0-9]+:\$?[0-9]+)`)

type refKind int

const (
	kindArea refKind = iota // A1 or A1:B2
	kindCols                // A:C
	kindRows                // 1:3
)

// endpoint is one side of a reference; zero Col or Row means "absent".
type endpoint struct {
	col, row       int
	absCol, absRow bool
}

type formulaRef struct {
	sheet  string // unquoted sheet name, "" when unqualified
	prefix string // sheet qualifier as written, including "!"
	kind   refKind
	a, b   endpoint
	pair   bool
}

func parseEndpoint(s string) (endpoint, bool) {
	var e endpoint
	i := 0
	if i < len(s) && s[i] == '$' {
		e.absCol = true
		i++
	}
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	if j > i {
		c, err := ParseColumn(s[i:j])
		if err != nil {
			return e, false
		}
		e.col = c
	} else {
		// row-only endpoint: the "$" seen belongs to the row
		e.absRow, e.absCol = e.absCol, false
	}
	if j < len(s) && s[j] == '$' {
		e.absRow = true
		j++
	}
	if j < len(s) {
		if !allDigits(s[j:]) || len(s[j:]) > 9 {
			return e, false
		}
		e.row, _ = strconv.Atoi(s[j:])
	}
	return e, true
}

func (e endpoint) String() string {
	var sb strings.Builder
	if e.col > 0 {
		if e.absCol {
			sb.WriteByte('$')
		}
		sb.WriteString(ColumnName(e.col))
	}
	if e.row > 0 {
		if e.absRow {
			sb.WriteByte('$')
		}
		sb.WriteString(strconv.Itoa(e.row))
	}
	return sb.String()
}

func (r formulaRef) String() string {
	if r.pair {
		return r.prefix + r.a.String() + ":" + r.b.String()
	}
	return r.prefix + r.a.String()
}

func parseFormulaRef(prefix, body string) (formulaRef, bool) {
	r := formulaRef{prefix: prefix}
	if prefix != "" {
		r.sheet = UnquoteSheet(strings.TrimSuffix(prefix, "!"))
	}
	left, right, pair := strings.Cut(body, ":")
	a, ok := parseEndpoint(left)
	if !ok {
		return r, false
	}
	r.a, r.pair = a, pair
	if pair {
		b, ok := parseEndpoint(right)
		if !ok {
			return r, false
		}
		r.b = b
	}
	switch {
	case a.col > 0 && a.row > 0:
		r.kind = kindArea
		if pair && (r.b.col == 0 || r.b.row == 0) {
			return r, false
		}
	case a.col > 0:
		r.kind = kindCols
	default:
		r.kind = kindRows
	}
	return r, true
}

func isIdentByte(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '.' || ch >= 0x80
}

// rewriteRefs calls fn for every reference token outside string literals and
// splices in the returned text when fn reports a change.
func rewriteRefs(formula string, fn func(r formulaRef) (string, bool)) string {
	var out strings.Builder
	changed := false
	last := 0
	inString := false
	segStart := 0
	flush := func(seg string, base int) {
		for _, m := range refPattern.FindAllStringSubmatchIndex(seg, -1) {
			start, end := m[0]+base, m[1]+base
			if start > 0 {
				p := formula[start-1]
				if isIdentByte(p) || p == '$' || p == '!' || p == ']' || p == ':' || p == '\'' {
					continue
				}
			}
			if end < len(formula) {
				n := formula[end]
				if isIdentByte(n) || n == '(' || n == '!' || n == '$' {
					continue
				}
			}
			prefix := ""
			if m[2] >= 0 {
				prefix = formula[m[2]+base : m[3]+base+1]
			}
			body := formula[m[4]+base : m[5]+base]
			r, ok := parseFormulaRef(prefix, body)
			if !ok {
				continue
			}
			repl, ok := fn(r)
			if !ok {
				continue
			}
			out.WriteString(formula[last:start])
			out.WriteString(repl)
			last = end
			changed = true
		}
	}
	for i := 0; i < len(formula); i++ {
		switch ch := formula[i]; {
		case !inString && ch == '\'':
			// a quoted sheet name may hold double quotes
			for i++; i < len(formula); i++ {
				if formula[i] != '\'' {
					continue
				}
				if i+1 < len(formula) && formula[i+1] == '\'' {
					i++
					continue
				}
				break
			}
		case ch != '"':
		case !inString:
			flush(formula[segStart:i], segStart)
			inString = true
		case i+1 < len(formula) && formula[i+1] == '"':
			i++
		default:
			inString = false
			segStart = i + 1
		}
	}
	if !inString {
		flush(formula[segStart:], segStart)
	}
	if !changed {
		return formula
	}
	out.WriteString(formula[last:])
	return out.String()
}

// ShiftFormula moves the references in formula that point at sheet target.
// home is the sheet the formula lives on, so unqualified references count
// as pointing at home. References into a deleted band, or pushed past the
// bounds of f, become #REF!.
func ShiftFormula(formula, home, target string, s Shift, f Format) string {
	limit := s.Limit(f)
	return rewriteRefs(formula, func(r formulaRef) (string, bool) {
		sheet := r.sheet
		if sheet == "" {
			sheet = home
		}
		if !strings.EqualFold(sheet, target) {
			return "", false
		}
		get := func(e *endpoint) *int {
			if s.Axis == Rows {
				return &e.row
			}
			return &e.col
		}
		pa, pb := get(&r.a), get(&r.b)
		if *pa == 0 {
			// column range under a row shift, or row range under a column shift
			return "", false
		}
		if !r.pair {
			v, ok := s.Map(*pa)
			if !ok || v > limit {
				return r.prefix + "#REF!", true
			}
			if v == *pa {
				return "", false
			}
			*pa = v
			return r.String(), true
		}
		lo, hi := *pa, *pb
		swapped := lo > hi
		if swapped {
			lo, hi = hi, lo
		}
		nlo, nhi, ok := s.Span(lo, hi)
		if !ok || nlo > limit {
			return r.prefix + "#REF!", true
		}
		nhi = min(nhi, limit)
		if nlo == lo && nhi == hi {
			return "", false
		}
		if swapped {
			nlo, nhi = nhi, nlo
		}
		*pa, *pb = nlo, nhi
		return r.String(), true
	})
}

// SharedFormulaSafe reports whether the relative references of a shared
// formula still agree with every dependent cell after s is applied. The
// dependents sit up to extent rows or columns past the master, so each
// relative reference stands for an interval that s must not split.
func SharedFormulaSafe(formula, home, target string, s Shift, extent int) bool {
	safe := true
	rewriteRefs(formula, func(r formulaRef) (string, bool) {
		sheet := r.sheet
		if sheet == "" {
			sheet = home
		}
		if !strings.EqualFold(sheet, target) {
			return "", false
		}
		ends := []endpoint{r.a}
		if r.pair {
			ends = append(ends, r.b)
		}
		for _, e := range ends {
			v, abs := e.row, e.absRow
			if s.Axis == Cols {
				v, abs = e.col, e.absCol
			}
			if v == 0 || abs {
				continue
			}
			if s.Splits(v, v+extent) {
				safe = false
			}
		}
		return "", false
	})
	return safe
}

// RenameSheetInFormula rewrites references qualified with sheet oldName to
// use newName instead.
func RenameSheetInFormula(formula, oldName, newName string) string {
	prefix := QuoteSheet(newName) + "!"
	return rewriteRefs(formula, func(r formulaRef) (string, bool) {
		if r.sheet == "" || !strings.EqualFold(r.sheet, oldName) {
			return "", false
		}
		r.prefix = prefix
		return r.String(), true
	})
}

// FormulaRefs lists the areas referenced by formula as A1 text, qualified
// references with their sheet name. Column and row ranges are skipped.
func FormulaRefs(formula string) []string {
	var out []string
	rewriteRefs(formula, func(r formulaRef) (string, bool) {
		if r.kind == kindArea {
			r.prefix = ""
			s := r.String()
			if r.sheet != "" {
				s = r.sheet + "!" + strings.ReplaceAll(s, "$", "")
			} else {
				s = strings.ReplaceAll(s, "$", "")
			}
			out = append(out, s)
		}
		return "", false
	})
	return out
}

var plainSheetName = regexp.MustCompile(`^[A-Za-z_\p{L}][A-Za-z0-9_.\p{L}]*$`)
var r1c1Like = regexp.MustCompile(`^(?i)(r[0-9]*c?[0-9]*|c[0-9]*)$`)

// QuoteSheet returns name in the form it must take in a formula qualifier.
func QuoteSheet(name string) string {
	if plainSheetName.MatchString(name) && !r1c1Like.MatchString(name) {
		if _, err := ParseCell(name); err != nil {
			return name
		}
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// UnquoteSheet reverses QuoteSheet.
func UnquoteSheet(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
