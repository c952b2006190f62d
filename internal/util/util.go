package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

func TagMatch(inputTag, match string) bool {
	// Split the pattern by '*' and get the parts.
	if match == "" && inputTag != "" {
		return false
	}
	parts := strings.Split(match, "*")

	// Keep track of the current position in the input string.
	pos := 0

	for i, part := range parts {
		if part == "" {
			continue
		}

		// If it's the first part, the input string must start with this part.
		if i == 0 && !strings.HasPrefix(inputTag, part) {
			return false
		}

		// If it's the last part, the input string must end with this part.
		if i == len(parts)-1 && !strings.HasSuffix(inputTag, part) {
			return false
		}

		index := strings.Index(inputTag[pos:], part)
		if index == -1 {
			return false
		}

		pos += index + len(part)
	}

	return true
}

func MustString(data any) string {
	if data == nil {
		return ""
	}
	stringData, ok := data.(string)
	if !ok {
		panic(fmt.Sprintf("cant convert %T to string", data))
	}
	return stringData
}

// Int reads an integer config value. YAML decodes numbers as int, TOML as
// int64, JSON as float64; all are accepted. A missing key yields def.
func Int(config map[string]any, key string, def int) (int, error) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s: %v is not a whole number", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("cant convert %s parameter (%T) to int", key, raw)
	}
}

// Bool reads a boolean config value. A missing key yields def.
func Bool(config map[string]any, key string, def bool) (bool, error) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return def, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("cant convert %s parameter to bool", key)
	}
	return v, nil
}

// Seconds reads a duration given either as whole seconds or as a
// time.ParseDuration string ("500ms", "1m").
func Seconds(config map[string]any, key string, def time.Duration) (time.Duration, error) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return def, nil
	}
	if s, ok := raw.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	}
	n, err := Int(config, key, 0)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// StringSlice reads a list of strings. yaml.v3 and go-toml decode lists as
// []any, so both []string and []any of strings are accepted.
func StringSlice(config map[string]any, key string) ([]string, error) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("cant convert %s entry %v to string", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cant convert %s parameter to string array", key)
	}
}

// Map reads a nested config section.
func Map(config map[string]any, key string) (map[string]any, error) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cant convert %s parameter to a map", key)
	}
	return m, nil
}

// TimeLayout resolves a time format into a Go layout. Formats containing
// '%' are strftime patterns. An empty format yields RFC3339.
func TimeLayout(format string) (string, error) {
	if format == "" {
		return time.RFC3339, nil
	}
	layout := format
	if strings.Contains(format, "%") {
		var err error
		if layout, err = strftime.Layout(format); err != nil {
			return "", fmt.Errorf("not a valid time format %q: %w", format, err)
		}
	}
	// a layout without any reference fields formats to itself
	if time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC).Format(layout) == layout {
		return "", fmt.Errorf("not a valid time format %q", format)
	}
	return layout, nil
}
