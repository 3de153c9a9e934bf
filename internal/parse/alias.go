package parse

import (
	"strings"

	"orderdesk/internal"
)

// CombineAliases flattens alias rules into one lookup table with trimmed,
// lowercased keys. Per-store entries win over global entries on the same key.
func CombineAliases(rules internal.AliasRules) map[string]string {
	out := make(map[string]string, len(rules.Global)+len(rules.PerStore))
	for src, dst := range rules.Global {
		out[aliasKey(src)] = strings.TrimSpace(dst)
	}
	for src, dst := range rules.PerStore {
		out[aliasKey(src)] = strings.TrimSpace(dst)
	}
	return out
}

// applyAliases rewrites a candidate that equals an alias source phrase.
// Lookup is exact on the whole candidate, case-insensitive.
func applyAliases(candidate string, aliases map[string]string) string {
	if target, ok := aliases[aliasKey(candidate)]; ok && target != "" {
		return target
	}
	return candidate
}

func aliasKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
