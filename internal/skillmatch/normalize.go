package skillmatch

// Normalize unwraps schema-shaped model output into plain data.
//
// An object carrying a "properties" object becomes {k: p.value} (or the
// normalized p when it has no "value"). An object whose only key is "value"
// collapses to that value. Arrays and other objects are walked recursively.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if props, ok := t["properties"].(map[string]any); ok {
			out := make(map[string]any, len(props))
			for k, p := range props {
				if pm, ok := p.(map[string]any); ok {
					if val, ok := pm["value"]; ok {
						out[k] = val
						continue
					}
				}
				out[k] = Normalize(p)
			}
			return out
		}
		if val, ok := t["value"]; ok && len(t) == 1 {
			return val
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}
