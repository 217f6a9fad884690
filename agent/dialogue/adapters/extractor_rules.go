package adapters

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// RulesExtractor parses parameter mutations out of raw text with the alias
// resolver and positional value matching: a parameter mention followed by the
// next value-like token. "reset" restores the full default snapshot.
type RulesExtractor struct {
	resolver *params.Resolver
}

func NewRulesExtractor() *RulesExtractor {
	return &RulesExtractor{resolver: params.NewResolver()}
}

func (e *RulesExtractor) Extract(_ context.Context, text string) (map[string]any, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "reset") {
		return defaultDeltas(), nil
	}

	words := strings.Fields(lower)
	for i := range words {
		words[i] = strings.Trim(words[i], ".,:;?!\"'()")
	}

	deltas := make(map[string]any)
	for i := 0; i < len(words); i++ {
		name, span := e.matchParameter(words, i)
		if name == "" {
			continue
		}
		if value, ok := nextValue(name, words[i+span:]); ok {
			deltas[name] = value
			i += span - 1
		}
	}
	return deltas, nil
}

// matchParameter tries a two-word phrase before a single exact alias, and
// returns how many words the mention consumed.
func (e *RulesExtractor) matchParameter(words []string, i int) (string, int) {
	if i+1 < len(words) {
		if name, ok := e.resolver.Resolve(words[i] + " " + words[i+1]); ok {
			return name, 2
		}
	}
	if name, ok := e.resolver.ResolveExact(words[i]); ok {
		return name, 1
	}
	return "", 0
}

// nextValue scans the words after a mention for the first token that parses
// as a value of the named parameter's kind.
func nextValue(name string, rest []string) (any, bool) {
	for _, w := range rest {
		switch name {
		case params.Grid:
			for _, g := range params.SupportedGrids {
				if w == g || "ieee"+w == g {
					return g, true
				}
			}
		case params.LoadType:
			if w == params.LoadInductive || w == params.LoadCapacitive {
				return w, true
			}
			if w == "lagging" {
				return params.LoadInductive, true
			}
			if w == "leading" {
				return params.LoadCapacitive, true
			}
		case params.Continuation:
			switch w {
			case "true", "on", "enabled", "yes":
				return true, true
			case "false", "off", "disabled", "no":
				return false, true
			}
		case params.MonitoredBus:
			if n, err := strconv.Atoi(w); err == nil {
				return n, true
			}
		default:
			if numberPattern.MatchString(w) {
				if f, err := strconv.ParseFloat(w, 64); err == nil {
					return f, true
				}
			}
		}
	}
	return nil, false
}

// defaultDeltas expands the canonical default snapshot into a full delta
// batch, so a reset commits through the same atomic path as any mutation.
func defaultDeltas() map[string]any {
	deltas := make(map[string]any, len(params.Names()))
	for _, name := range params.Names() {
		v, _ := params.Default.Value(name)
		deltas[name] = v
	}
	return deltas
}

var _ ports.Extractor = (*RulesExtractor)(nil)
