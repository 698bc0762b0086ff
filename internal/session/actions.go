package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNotPlanning   = errors.New("room is not in planning")
	ErrBadPayload    = errors.New("invalid action payload")
)

func stringField(p map[string]any, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrBadPayload, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrBadPayload, key)
	}
	return s, nil
}

func boolField(p map[string]any, key string) (bool, error) {
	switch v := p[key].(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %s is not a boolean", ErrBadPayload, key)
		}
		return b, nil
	case nil:
		return false, fmt.Errorf("%w: missing %s", ErrBadPayload, key)
	default:
		return false, fmt.Errorf("%w: %s is not a boolean", ErrBadPayload, key)
	}
}

// intField accepts JSON numbers, which decode as float64, and numeric strings.
func intField(p map[string]any, key string) (int, error) {
	switch v := p[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number", ErrBadPayload, key)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%w: missing %s", ErrBadPayload, key)
	default:
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadPayload, key)
	}
}
