package adapter

import "encoding/json"

// freezeConfigKey deterministically serializes an adapter's raw config into
// a stable string, used to key the bound-adapter cache by (name, cfg).
// Grounded on original_source/lg/adapters/processor.py's _freeze_cfg:
// recursively sort map keys so two configs with identical content but
// different map iteration order collide to the same key.
func freezeConfigKey(cfg map[string]any) string {
	data, err := json.Marshal(freezeValue(cfg))
	if err != nil {
		return ""
	}
	return string(data)
}

func freezeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		for i := 1; i < len(keys); i++ {
			for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
				keys[j-1], keys[j] = keys[j], keys[j-1]
			}
		}
		out := make([][2]any, 0, len(t))
		for _, k := range keys {
			out = append(out, [2]any{k, freezeValue(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = freezeValue(e)
		}
		return out
	default:
		return v
	}
}
