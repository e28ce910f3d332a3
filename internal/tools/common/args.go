package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IntArg reads an integer argument. JSON numbers arrive as float64, and
// backends sometimes quote them, so numeric strings are accepted too.
func IntArg(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required argument %q", name)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", name, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer: %w", name, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %q", name, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", name, v)
	}
}

// StringArg reads a required, non-empty string argument.
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must not be empty", name)
	}
	return s, nil
}

// BoolArg reads an optional boolean argument, returning def when absent.
func BoolArg(args map[string]any, name string, def bool) (bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def, fmt.Errorf("argument %q must be a boolean, got %q", name, b)
		}
		return parsed, nil
	default:
		return def, fmt.Errorf("argument %q must be a boolean, got %T", name, v)
	}
}
