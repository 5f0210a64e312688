package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Delta is a nested configuration patch built from `key=value` options.
type Delta map[string]any

// ParseDelta decodes each option as a TOML fragment such as `font.size=12`.
// Options that fail to parse are skipped with a warning; the rest are merged
// in order, later options overriding earlier ones.
func ParseDelta(options []string) (Delta, []Warning) {
	delta := Delta{}
	warnings := make([]Warning, 0)

	for _, option := range options {
		if strings.TrimSpace(option) == "" {
			continue
		}

		var fragment map[string]any
		if _, err := toml.Decode(option, &fragment); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("ignoring config option %q: %v", option, err)})
			continue
		}
		delta.Merge(fragment)
	}

	return delta, warnings
}

// Merge deep-merges src into d. Tables merge key by key; other values replace.
func (d Delta) Merge(src map[string]any) {
	for key, value := range src {
		srcTable, srcIsTable := value.(map[string]any)
		dstTable, dstIsTable := d[key].(map[string]any)
		if srcIsTable && dstIsTable {
			Delta(dstTable).Merge(srcTable)
			continue
		}
		d[key] = cloneValue(value)
	}
}

// Lookup returns the value at a dotted key path.
func (d Delta) Lookup(path string) (any, bool) {
	var current any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		table, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = table[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Clone returns a deep copy of d.
func (d Delta) Clone() Delta {
	out := Delta{}
	out.Merge(d)
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return value
	}
}
