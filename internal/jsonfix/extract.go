package jsonfix

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// snippetLen bounds how much of the original response an ExhaustedError
// carries for diagnostics.
const snippetLen = 500

// ExhaustedError reports that every recovery strategy failed to produce
// parseable JSON from a response.
type ExhaustedError struct {
	Attempts int
	Snippet  string // head of the original response
	Err      error  // last strategy's parse error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not parse JSON after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type strategy struct {
	name string
	fn   func(string) (string, error)
}

// Strategies are ordered cheapest first. Each one starts from the
// original text rather than the previous strategy's output so a bad
// rewrite cannot poison the later, more aggressive attempts.
var strategies = []strategy{
	{"direct", func(s string) (string, error) { return s, nil }},
	{"cleanup", basicCleanup},
	{"repair", Repair},
	{"partial", RepairTruncated},
}

// basicCleanup strips fences and slices to the outermost object without
// touching the content in between.
func basicCleanup(raw string) (string, error) {
	return sliceObject(stripFences(raw))
}

// Extract returns raw rewritten as a valid JSON object, trying each
// recovery strategy in turn. It is pure apart from debug logging and
// idempotent over the same input. On terminal failure it returns an
// *ExhaustedError carrying the head of the original text.
func Extract(raw string) ([]byte, error) {
	var lastErr error
	for i, st := range strategies {
		fixed, err := st.fn(raw)
		if err != nil {
			slog.Debug("json recovery strategy failed", "attempt", i+1, "strategy", st.name, "error", err)
			lastErr = err
			continue
		}

		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(fixed), &probe); err != nil {
			slog.Debug("json parse failed", "attempt", i+1, "strategy", st.name, "error", err)
			lastErr = err
			continue
		}

		if i > 0 {
			slog.Debug("recovered JSON", "attempt", i+1, "strategy", st.name)
		}
		return []byte(fixed), nil
	}
	return nil, &ExhaustedError{
		Attempts: len(strategies),
		Snippet:  snippet(raw),
		Err:      lastErr,
	}
}

// Unmarshal extracts a JSON object from raw and decodes it into v.
func Unmarshal(raw string, v any) error {
	data, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode recovered JSON: %w", err)
	}
	return nil
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	end := snippetLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
