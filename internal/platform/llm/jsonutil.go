package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlockPattern matches the body of a markdown code fence, with or
// without a json language tag.
var fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\r?\\n?(.*?)```")

// ExtractJSONObject finds a JSON object in model output. It tries, in
// order: the whole text, every fenced code block, then every balanced
// {...} span outside string literals. A candidate is accepted only if it is
// a JSON object that contains all marker keys at the top level.
func ExtractJSONObject(text string, markers []string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	if obj, ok := acceptObject(trimmed, markers); ok {
		return obj, true
	}
	for _, m := range fencedBlockPattern.FindAllStringSubmatch(trimmed, -1) {
		if len(m) < 2 {
			continue
		}
		if obj, ok := acceptObject(strings.TrimSpace(m[1]), markers); ok {
			return obj, true
		}
	}
	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		if end, ok := balancedObjectEnd(trimmed, start); ok {
			if obj, ok := acceptObject(trimmed[start:end+1], markers); ok {
				return obj, true
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func acceptObject(candidate string, markers []string) (json.RawMessage, bool) {
	if candidate == "" || candidate[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, false
	}
	for _, k := range markers {
		if _, ok := fields[k]; !ok {
			return nil, false
		}
	}
	return json.RawMessage(candidate), true
}

// balancedObjectEnd returns the index of the brace closing the object that
// opens at s[start]. Braces inside string literals are ignored.
func balancedObjectEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
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
				return i, true
			}
		}
	}
	return 0, false
}

// RequiredKeys returns the top-level "required" list of a JSON schema.
func RequiredKeys(schema map[string]any) []string {
	if schema == nil {
		return nil
	}
	switch req := schema["required"].(type) {
	case []string:
		return append([]string(nil), req...)
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
