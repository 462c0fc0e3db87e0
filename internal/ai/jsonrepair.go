package ai

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	errNotObject   = stderrors.New("value is not a JSON object")
	errNoJSONFound = stderrors.New("no JSON object or array found in reply")
)

// decodeObject strictly parses text as one JSON object.
// Missing fields keep their zero values; mismatched types fail.
func decodeObject[T any](text string) (T, error) {
	var out T
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return out, errNotObject
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// decodeRecovered parses text as-is, then by recovering the first balanced
// object, then the first balanced array whose first element is an object.
// recovered reports whether a substring had to be cut out of the reply.
func decodeRecovered[T any](text string) (out T, recovered bool, err error) {
	out, err = decodeObject[T](text)
	if err == nil {
		return out, false, nil
	}
	lastErr := err

	if span, ok := firstBalanced(text, '{', '}'); ok {
		out, err = decodeObject[T](span)
		if err == nil {
			return out, true, nil
		}
		lastErr = err
	}

	if span, ok := firstBalanced(text, '[', ']'); ok {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(span), &items); err != nil {
			return out, false, fmt.Errorf("recovered array is not valid JSON: %w", err)
		}
		if len(items) == 0 {
			return out, false, fmt.Errorf("recovered array is empty")
		}
		out, err = decodeObject[T](string(items[0]))
		if err != nil {
			return out, false, fmt.Errorf("first array element: %w", err)
		}
		return out, true, nil
	}

	if !strings.ContainsAny(text, "{[") {
		return out, false, errNoJSONFound
	}
	return out, false, lastErr
}

// firstBalanced returns the first substring that opens with open and closes
// with its matching close. Brackets inside JSON string literals are ignored.
// When an opener never balances (truncated output) the next opener is tried.
func firstBalanced(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	for start >= 0 {
		if end, ok := matchingClose(text, start, open, close); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchingClose scans from text[start] == open and returns the index of the closer at depth zero
func matchingClose(text string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
