package generation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSON pulls a structured value out of free-form generated text
// and unmarshals it into v. Extraction order: a fenced code block, then
// the whole text, then the first balanced top-level array or object
// substring. Returns an error only when every strategy fails.
func ExtractJSON(text string, v interface{}) error {
	candidates := []string{}

	if block, ok := fencedBlock(text); ok {
		candidates = append(candidates, block)
	}
	candidates = append(candidates, strings.TrimSpace(text))
	if sub, ok := firstJSONValue(text); ok {
		candidates = append(candidates, sub)
	}

	var lastErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no parseable content")
	}
	return fmt.Errorf("failed to extract structured response: %w", lastErr)
}

// fencedBlock returns the contents of the first ``` fenced block,
// tolerating a language tag after the opening fence.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// Drop a language tag like "json" on the fence line.
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{[") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// firstJSONValue scans for the first top-level '[' or '{' and returns
// the balanced substring it opens, skipping brackets inside strings.
func firstJSONValue(text string) (string, bool) {
	start := strings.IndexAny(text, "[{")
	if start == -1 {
		return "", false
	}
	open := text[start]
	var closing byte = ']'
	if open == '{' {
		closing = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closing:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// StringList unmarshals from either a JSON array of strings or a single
// delimited string ("a, b; c"), normalizing generated list fields that
// models return in either shape.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var asSlice []string
	if err := json.Unmarshal(data, &asSlice); err == nil {
		*l = trimNonEmpty(asSlice)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*l = trimNonEmpty(splitDelimited(asString))
		return nil
	}
	// Mixed arrays: stringify each element.
	var asAny []interface{}
	if err := json.Unmarshal(data, &asAny); err == nil {
		out := make([]string, 0, len(asAny))
		for _, v := range asAny {
			out = append(out, fmt.Sprintf("%v", v))
		}
		*l = trimNonEmpty(out)
		return nil
	}
	return fmt.Errorf("string list: unsupported shape %s", string(data))
}

// IntList unmarshals from a JSON array of numbers, an array of numeric
// strings, or one delimited string ("12, 14").
type IntList []int

func (l *IntList) UnmarshalJSON(data []byte) error {
	var asInts []int
	if err := json.Unmarshal(data, &asInts); err == nil {
		*l = asInts
		return nil
	}
	var parts []string
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parts = splitDelimited(asString)
	} else if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("int list: unsupported shape %s", string(data))
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

func splitDelimited(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
}

func trimNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
