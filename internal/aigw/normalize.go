package aigw

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fenceRe matches a fenced code block, optionally tagged json. The body
// match is greedy so nested fences stay inside the captured interior.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*)```")

// ParseJSONResponse extracts a JSON object from free-form model text.
//
// Models wrap JSON in code fences, prepend prose, or emit raw control
// characters inside string values. The normalizer handles all three:
// strip fences, slice between the outermost braces, then parse strictly
// and fall back to a lenient pass that escapes control characters.
func ParseJSONResponse(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, newError(KindParseEmpty, "empty response from model")
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			text = inner
		}
	}

	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end == -1 || end < start {
			return nil, newError(KindParseEmpty, "no JSON content found")
		}
		text = text[start : end+1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	// Lenient pass: some providers emit literal newlines or tabs inside
	// quoted strings, which strict JSON rejects.
	if err := json.Unmarshal([]byte(escapeControlChars(text)), &out); err != nil {
		if looksTruncated(text) {
			return nil, wrapError(KindParseTruncated, err, "truncated JSON in model response")
		}
		return nil, wrapError(KindParseMalformed, err, "malformed JSON in model response")
	}
	return out, nil
}

// escapeControlChars rewrites raw control characters that appear inside
// JSON string literals to their escaped forms, leaving structure intact.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
				continue
			case r == '\\':
				escaped = true
				b.WriteRune(r)
				continue
			case r == '"':
				inString = false
				b.WriteRune(r)
				continue
			case r == '\n':
				b.WriteString(`\n`)
				continue
			case r == '\r':
				b.WriteString(`\r`)
				continue
			case r == '\t':
				b.WriteString(`\t`)
				continue
			case r < 0x20:
				// Other control characters are dropped.
				continue
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// looksTruncated reports whether the text has more opening than closing
// braces, the signature of a response cut off mid-object.
func looksTruncated(s string) bool {
	opens := strings.Count(s, "{")
	closes := strings.Count(s, "}")
	return opens > closes
}
