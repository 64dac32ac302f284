package extraction

import "encoding/json"

// UnmarshalLoose decodes JSON that a generative model may have wrapped in
// prose or markdown fences: it tries a direct parse, then the first
// balanced {...} span. Returns false when neither decodes; it never panics
// or propagates a parse error.
func UnmarshalLoose(text string, v interface{}) bool {
	if json.Unmarshal([]byte(text), v) == nil {
		return true
	}
	if span := firstBalancedObject(text); span != "" {
		return json.Unmarshal([]byte(span), v) == nil
	}
	return false
}

// firstBalancedObject returns the first balanced top-level {...} span,
// respecting string literals and escapes. Empty when none closes.
func firstBalancedObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
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
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
