package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	reJSONFence = regexp.MustCompile("```json\n?")
	reFence     = regexp.MustCompile("```\n?")
)

// StripFences removes markdown code fences the model may wrap its answer in
// and trims surrounding whitespace. Clean JSON passes through unchanged.
func StripFences(raw string) string {
	s := reJSONFence.ReplaceAllString(raw, "")
	s = reFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

var (
	errEmptyResponse = errors.New("empty response")
	errNotObject     = errors.New("top-level value is not a JSON object")
	errTrailingData  = errors.New("unexpected data after JSON object")
)

// decodeObject parses s as exactly one JSON value, keeping numbers as literals.
func decodeObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, errEmptyResponse
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", errNotObject, jsonKind(v))
	}
	return m, nil
}

// coerceFields turns decoded values into strings. Nulls are dropped.
// Nested values become compact JSON unless strict is set, in which case
// they are an error.
func coerceFields(m map[string]any, strict bool) (map[string]string, []string, error) {
	out := make(map[string]string, len(m))
	var warns []string
	for k, v := range m {
		s, keep, err := coerceValue(v, strict)
		if err != nil {
			return nil, warns, fmt.Errorf("field %q: %w", k, err)
		}
		if !keep {
			warns = append(warns, k+"(null)")
			continue
		}
		if _, nested := v.(map[string]any); nested {
			warns = append(warns, k+"(object)")
		} else if _, nested := v.([]any); nested {
			warns = append(warns, k+"(array)")
		}
		out[k] = s
	}
	return out, warns, nil
}

func coerceValue(v any, strict bool) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case json.Number:
		return t.String(), true, nil
	case bool:
		if t {
			return "true", true, nil
		}
		return "false", true, nil
	case map[string]any, []any:
		if strict {
			return "", false, fmt.Errorf("nested %s value not allowed", jsonKind(v))
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return "", false, err
		}
		return strings.TrimSuffix(buf.String(), "\n"), true, nil
	default:
		return "", false, fmt.Errorf("unexpected %T value", v)
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
