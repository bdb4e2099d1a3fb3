package translator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ============================================================================
// REPLY PARSER — Extracts a JSON object from free-form model output
// ============================================================================
// Models wrap JSON in prose, code fences, typographic quotes and trailing
// commas. ExtractJSON peels those layers off in order and stops at the first
// one that decodes to an object.
// ============================================================================

var (
	fenceRe     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‘", "'", "’", "'")
)

// ExtractJSON decodes the first JSON object found in a model reply.
func ExtractJSON(reply string) (map[string]any, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return nil, ErrEmptyReply
	}
	if m, ok := decodeJSONObject(text); ok {
		return m, nil
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	text = smartQuotes.Replace(text)

	obj := firstBalancedObject(text)
	if obj == "" {
		return nil, fmt.Errorf("%w: %.120q", ErrNoJSON, reply)
	}
	if m, ok := decodeJSONObject(obj); ok {
		return m, nil
	}
	if m, ok := decodeJSONObject(stripTrailingCommas(obj)); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %.120q", ErrNoJSON, reply)
}

func decodeJSONObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// firstBalancedObject returns the first {...} span whose braces balance,
// ignoring braces inside string literals.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}

// stripTrailingCommas drops commas that directly precede a closing brace or
// bracket, leaving string literals untouched.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
