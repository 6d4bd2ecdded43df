package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseControls turns name=value pairs into control values. Values are YAML,
// so 3 is a number, true a boolean, [1, 2] an array and {a: 1} a cluster.
func parseControls(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("control %q: expected name=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("control %q: %w", name, err)
		}
		if value == nil && strings.TrimSpace(raw) == "" {
			value = ""
		}
		values[name] = value
	}
	return values, nil
}
