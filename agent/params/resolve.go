package params

import (
	"strings"

	radix "github.com/armon/go-radix"
)

// Resolver maps user-facing parameter spellings ("power factor", "pf",
// "base pow") to canonical names via a radix tree of aliases. Resolution is
// deterministic: exact alias match wins, otherwise a prefix match is accepted
// only when unambiguous.
type Resolver struct {
	tree *radix.Tree
}

// NewResolver builds the alias tree for the known parameter set.
func NewResolver() *Resolver {
	t := radix.New()
	aliases := map[string]string{
		"grid":               Grid,
		"network":            Grid,
		"system":             Grid,
		"test system":        Grid,
		"monitored bus":      MonitoredBus,
		"bus":                MonitoredBus,
		"bus id":             MonitoredBus,
		"target bus":         MonitoredBus,
		"base power":         BasePower,
		"base mva":           BasePower,
		"step size":          StepSize,
		"step":               StepSize,
		"increment":          StepSize,
		"max scale":          MaxScale,
		"maximum scale":      MaxScale,
		"load multiplier":    MaxScale,
		"power factor":       PowerFactor,
		"pf":                 PowerFactor,
		"voltage limit":      VoltageLimit,
		"voltage floor":      VoltageLimit,
		"v limit":            VoltageLimit,
		"load type":          LoadType,
		"load":               LoadType,
		"continuation":       Continuation,
		"continuation curve": Continuation,
	}
	// Canonical names resolve to themselves, including underscore spellings.
	for _, name := range Names() {
		aliases[name] = name
		aliases[strings.ReplaceAll(name, "_", " ")] = name
	}
	for alias, canonical := range aliases {
		t.Insert(normalizeAlias(alias), canonical)
	}
	return &Resolver{tree: t}
}

// ResolveExact returns the canonical name only for a full alias match, with
// no prefix walking. Used where the input is free prose and a prefix hit
// would be too eager.
func (r *Resolver) ResolveExact(input string) (string, bool) {
	key := normalizeAlias(input)
	if key == "" {
		return "", false
	}
	if v, ok := r.tree.Get(key); ok {
		return v.(string), true
	}
	return "", false
}

// Resolve returns the canonical parameter name for a user spelling. The
// boolean is false when the spelling is unknown or its prefix is ambiguous.
func (r *Resolver) Resolve(input string) (string, bool) {
	key := normalizeAlias(input)
	if key == "" {
		return "", false
	}
	if v, ok := r.tree.Get(key); ok {
		return v.(string), true
	}
	// Prefix walk: accept only if every alias under the prefix agrees on the
	// canonical target.
	var canonical string
	ambiguous := false
	r.tree.WalkPrefix(key, func(_ string, v interface{}) bool {
		name := v.(string)
		if canonical == "" {
			canonical = name
			return false
		}
		if canonical != name {
			ambiguous = true
			return true // stop
		}
		return false
	})
	if canonical == "" || ambiguous {
		return "", false
	}
	return canonical, true
}

func normalizeAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}
