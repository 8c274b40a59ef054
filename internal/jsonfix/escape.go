// Package jsonfix recovers valid JSON from LLM output that is almost,
// but not quite, well-formed: unescaped quotes inside string values,
// markdown code fences around the object, prose before or after it,
// and responses truncated mid-generation.
package jsonfix

import (
	"fmt"
	"strings"
)

// EscapeString escapes text so that wrapping the result in double quotes
// yields a valid JSON string literal that decodes back to the input.
// The single pass means backslashes already present are escaped before
// any escape sequences this function introduces, so nothing is escaped
// twice.
func EscapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
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
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
