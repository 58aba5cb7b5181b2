package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// argError marks an argument schema violation; it becomes an error envelope
// before any store access.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func argErrorf(format string, args ...any) *argError {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

// stringArg returns the string value for key. Present-but-wrong-type is a
// schema violation; absent and explicit null both report present=false.
func stringArg(args map[string]any, key string) (val string, present bool, err error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, argErrorf("argument %q must be a string", key)
	}
	return s, true, nil
}

func requiredString(args map[string]any, key string) (string, error) {
	s, present, err := stringArg(args, key)
	if err != nil {
		return "", err
	}
	if !present || s == "" {
		return "", argErrorf("argument %q is required", key)
	}
	return s, nil
}

// intArg accepts JSON numbers (float64 after decoding) and json.Number, and
// requires them to be integral.
func intArg(args map[string]any, key string) (val int64, present bool, err error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false, argErrorf("argument %q must be an integer", key)
		}
		return int64(n), true, nil
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, argErrorf("argument %q must be an integer", key)
		}
		return i, true, nil
	default:
		return 0, false, argErrorf("argument %q must be an integer", key)
	}
}

func requiredInt(args map[string]any, key string) (int64, error) {
	n, present, err := intArg(args, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, argErrorf("argument %q is required", key)
	}
	return n, nil
}

func boolArg(args map[string]any, key string) (val bool, present bool, err error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return false, false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, false, argErrorf("argument %q must be a boolean", key)
	}
	return b, true, nil
}

// stringListArg accepts a JSON array of strings.
func stringListArg(args map[string]any, key string) (val []string, present bool, err error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false, argErrorf("argument %q must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false, argErrorf("argument %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, true, nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
