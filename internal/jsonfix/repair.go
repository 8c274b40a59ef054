package jsonfix

import (
	"fmt"
	"strings"
)

// RecoveryError reports that the structural recovery parser could not
// locate anything to repair in the input.
type RecoveryError struct {
	Reason string
}

func (e *RecoveryError) Error() string {
	return "json recovery: " + e.Reason
}

// Repair rewrites a JSON-like string into one a standard decoder
// accepts. It strips markdown fences, slices to the outermost object,
// then runs a single left-to-right scan that escapes control characters
// and stray quotes inside string values and closes any string or
// containers left open at the end of input.
func Repair(raw string) (string, error) {
	s := stripFences(raw)
	obj, err := sliceObject(s)
	if err != nil {
		return "", err
	}
	return repairScan(obj), nil
}

// RepairTruncated is Repair for responses cut off mid-generation: it
// does not require a closing brace and lets the scan force-close
// whatever is still open.
func RepairTruncated(raw string) (string, error) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", &RecoveryError{Reason: "no JSON object boundaries found"}
	}
	return repairScan(s[start:]), nil
}

// stripFences removes a leading ```json or ``` fence and a trailing ```
// fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// sliceObject returns the substring from the first '{' through the last
// '}' inclusive.
func sliceObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return "", &RecoveryError{Reason: "no JSON object boundaries found"}
	}
	return s[start : end+1], nil
}

// Characters that may legally follow a backslash in a JSON string.
const validEscapes = `"\/bfnrtu`

// repairScan walks the input once, tracking whether the cursor is
// inside a string value and which containers are open.
//
// A bare quote inside a string is ambiguous: it is either the real end
// of the value or a quotation mark the model forgot to escape. The scan
// decides by looking at the next non-whitespace character — only
// structural punctuation (comma, colon, closing brace or bracket) can
// legally follow a string value, so anything else means the quote was
// content. A value that genuinely ends just before such punctuation is
// misread; that risk is accepted.
func repairScan(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	var open []byte // stack of '{' and '['

scan:
	for i := 0; i < len(s); i++ {
		c := s[i]

		if !inString {
			switch c {
			case '{', '[':
				open = append(open, c)
				b.WriteByte(c)
			case '}', ']':
				if len(open) > 0 {
					open = open[:len(open)-1]
				}
				b.WriteByte(c)
				if len(open) == 0 && c == '}' {
					// Matching close of the outermost object; anything
					// after it is model commentary.
					break scan
				}
			case '"':
				inString = true
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '"':
			if closesString(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		case c == '\\':
			if i+1 < len(s) && strings.IndexByte(validEscapes, s[i+1]) >= 0 {
				// Already a valid escape sequence; copy both characters.
				b.WriteByte(c)
				i++
				b.WriteByte(s[i])
			} else {
				b.WriteString(`\\`)
			}
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\b':
			b.WriteString(`\b`)
		case c == '\f':
			b.WriteString(`\f`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}

	// Close whatever the input left open, innermost first.
	if inString {
		b.WriteByte('"')
	}
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// closesString reports whether a quote followed by s[next:] should be
// read as the end of a string value.
func closesString(s string, next int) bool {
	for next < len(s) {
		switch s[next] {
		case ' ', '\t', '\n', '\r':
			next++
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	// Quote at end of input: treat as closing so the post-scan repair
	// only has containers left to deal with.
	return true
}
