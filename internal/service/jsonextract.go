package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when the text contains no balanced JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// extractJSONObject locates the first balanced brace-delimited substring in
// text and returns it. LLM responses often wrap the payload in prose or
// markdown fences, so a plain json.Unmarshal of the whole response is not
// reliable.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", ErrNoJSONObject
}

// decodeJSONObject extracts the first balanced JSON object from text and
// unmarshals it into out. Any failure is reported as an error so callers can
// take their documented fallback path instead of aborting.
func decodeJSONObject(text string, out any) error {
	raw, err := extractJSONObject(text)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal extracted object: %w", err)
	}

	return nil
}
