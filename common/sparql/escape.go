package sparql

import (
	"fmt"
	"strings"
)

// Literal renders s as a quoted SPARQL string literal. Every interpolated
// label is untrusted, so quote, backslash and control characters are
// escaped structurally before the value reaches query text.
func Literal(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(fmt.Sprintf(`\u%04X`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IRIRef renders iri inside angle brackets, dropping characters that
// could terminate or split the reference. IRIs interpolated here come
// from the graph itself or from parsed UUIDs, never raw user text.
func IRIRef(iri string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			return -1
		}
		if r <= 0x20 {
			return -1
		}
		return r
	}, iri)
	return "<" + clean + ">"
}
