package textutil

import "strings"

// NormalizeStringMap returns a copy of values with surrounding whitespace
// trimmed from keys and values. Entries whose trimmed key or value is empty
// are dropped, and a result without entries collapses to nil so callers can
// pass it straight to APIs that treat nil as "no attributes".
func NormalizeStringMap(values map[string]string) map[string]string {
	var out map[string]string
	for rawKey, rawValue := range values {
		key := strings.TrimSpace(rawKey)
		value := strings.TrimSpace(rawValue)
		if key == "" || value == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(values))
		}
		out[key] = value
	}
	return out
}
