package utils

import (
	"fmt"
	"math"

	"github.com/GriffinCanCode/shellcore/internal/shared/errs"
)

// GetString returns params[key] as a string
func GetString(params map[string]interface{}, key string, required bool) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%w: %s parameter required", errs.ErrInvalidArgument, key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errs.ErrInvalidArgument, key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: %s parameter required", errs.ErrInvalidArgument, key)
	}
	return s, nil
}

// GetInt returns params[key] as an int, or def when absent
func GetInt(params map[string]interface{}, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrInvalidArgument, key)
		}
		if v >= math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("%w: %s out of range", errs.ErrInvalidArgument, key)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", errs.ErrInvalidArgument, key)
	}
}

// GetUint16 returns params[key] as a uint16, or def when absent
func GetUint16(params map[string]interface{}, key string, def uint16) (uint16, error) {
	v, err := GetInt(params, key, int(def))
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s out of range", errs.ErrInvalidArgument, key)
	}
	return uint16(v), nil
}

// GetBool returns params[key] as a bool, or def when absent
func GetBool(params map[string]interface{}, key string, def bool) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", errs.ErrInvalidArgument, key)
	}
	return b, nil
}

// GetStringMap returns params[key] as a map of strings
func GetStringMap(params map[string]interface{}, key string) (map[string]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch m := raw.(type) {
	case map[string]string:
		return m, nil
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s must be a string", errs.ErrInvalidArgument, key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object", errs.ErrInvalidArgument, key)
	}
}
