package butler

import (
	"encoding/json"
	"strings"
)

// ExtractFirstJSONObject finds the first balanced {...} span in text that decodes as a JSON
// object. Braces inside JSON strings are ignored. Spans that fail to decode are skipped and
// the scan resumes at the next opening brace.
func ExtractFirstJSONObject(text string) (map[string]any, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			var obj map[string]any
			if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil && obj != nil {
				return obj, true
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
