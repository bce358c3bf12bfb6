package graph

import "fmt"

// coerce converts a property value to the Go type of its column.
func coerce(kind columnKind, v any) (any, bool) {
	switch kind {
	case colInt:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int64:
			return n, true
		case int32:
			return int64(n), true
		}
		return nil, false
	case colBool:
		b, ok := v.(bool)
		return b, ok
	default:
		if v == nil {
			return nil, false
		}
		return toString(v), true
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

// normalizeProps restores integer columns that a JSON round trip turned
// into float64.
func normalizeProps(p Props) Props {
	for k, v := range p {
		if f, ok := v.(float64); ok && knownColumns[k] == colInt {
			p[k] = int(f)
		}
	}
	return p
}
