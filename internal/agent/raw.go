package agent

// Accessors for decoded JSONL objects. Provider streams are loosely typed,
// so a missing or mistyped field yields the zero value instead of an error.

// GetString returns m[key] if it is a string
func GetString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// GetMap returns m[key] if it is an object, or an empty map
func GetMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

// GetSlice returns m[key] if it is an array
func GetSlice(m map[string]interface{}, key string) ([]interface{}, bool) {
	v, ok := m[key].([]interface{})
	return v, ok
}

// GetInt returns m[key] as an int; JSON numbers decode as float64
func GetInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// GetFloat returns m[key] as a float64
func GetFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// GetBool reports whether m[key] is truthy
func GetBool(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	}
	return true
}

// GetStringSlice returns the string elements of m[key], skipping others
func GetStringSlice(m map[string]interface{}, key string) []string {
	items, ok := GetSlice(m, key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Questions converts a decoded questions array into Question values
func Questions(items []interface{}) []Question {
	var out []Question
	for _, item := range items {
		switch q := item.(type) {
		case map[string]interface{}:
			out = append(out, Question(q))
		case string:
			out = append(out, Question{"question": q})
		}
	}
	return out
}
