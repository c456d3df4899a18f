package migration

// v1 stored each data point as a bare list of values.
func toV2(doc map[string]any) {
	points, _ := doc["dataPoints"].([]any)
	for i, p := range points {
		if data, ok := p.([]any); ok {
			points[i] = map[string]any{
				"meta": map[string]any{"id": float64(i + 1)},
				"data": data,
			}
		}
	}
}

func toV3(doc map[string]any) {
	eachMeta(doc, func(meta map[string]any) {
		setDefault(meta, "enabled", true)
	})
}

func toV4(doc map[string]any) {
	eachObject(doc["scoreVariables"], func(v map[string]any) {
		setDefault(v, "enabled", true)
	})
}

func toV5(doc map[string]any) {
	for _, key := range []string{"valueVariables", "categoricalVariables"} {
		eachObject(doc[key], func(v map[string]any) {
			setDefault(v, "enabled", true)
		})
	}
}

func toV6(doc map[string]any) {
	eachMeta(doc, func(meta map[string]any) {
		setDefault(meta, "valid", true)
	})
}

func toV7(doc map[string]any) {
	if doc["constraints"] == nil {
		doc["constraints"] = []any{}
	}
}

// toV8 adds the point type, which earlier versions inferred from the
// variable lists on every read.
func toV8(doc map[string]any) {
	types := map[string]string{}
	eachObject(doc["scoreVariables"], func(v map[string]any) {
		if name, ok := v["name"].(string); ok {
			types[name] = "score"
		}
	})
	eachObject(doc["categoricalVariables"], func(v map[string]any) {
		if name, ok := v["name"].(string); ok {
			types[name] = "categorical"
		}
	})
	eachObject(doc["valueVariables"], func(v map[string]any) {
		if name, ok := v["name"].(string); ok {
			types[name] = "numeric"
		}
	})

	eachObject(doc["dataPoints"], func(entry map[string]any) {
		eachObject(entry["data"], func(p map[string]any) {
			if _, ok := p["type"]; ok {
				return
			}
			name, _ := p["name"].(string)
			if t, ok := types[name]; ok {
				p["type"] = t
			} else {
				p["type"] = "score"
			}
		})
	})

	extras, ok := doc["extras"].(map[string]any)
	if !ok {
		extras = map[string]any{}
		doc["extras"] = extras
	}
	if _, ok := extras["experimentSuggestionCount"]; !ok {
		cfg, _ := doc["optimizerConfig"].(map[string]any)
		if n, ok := cfg["initialPoints"]; ok {
			extras["experimentSuggestionCount"] = n
		} else {
			extras["experimentSuggestionCount"] = float64(0)
		}
	}
}

func toV9(doc map[string]any) {
	results, ok := doc["results"].(map[string]any)
	if !ok {
		return
	}
	results["next"] = formatNext(results["next"])
}

// formatNext wraps a single flat suggestion into a list of suggestions.
// Already nested lists are returned unchanged.
func formatNext(next any) []any {
	list, ok := next.([]any)
	if !ok {
		if next == nil {
			return []any{}
		}
		return []any{[]any{next}}
	}
	if len(list) > 0 {
		if _, nested := list[0].([]any); nested {
			return list
		}
	}
	return []any{list}
}

func eachObject(v any, fn func(map[string]any)) {
	list, _ := v.([]any)
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			fn(m)
		}
	}
}

func eachMeta(doc map[string]any, fn func(map[string]any)) {
	eachObject(doc["dataPoints"], func(entry map[string]any) {
		meta, ok := entry["meta"].(map[string]any)
		if !ok {
			meta = map[string]any{}
			entry["meta"] = meta
		}
		fn(meta)
	})
}

func setDefault(m map[string]any, key string, v any) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}
