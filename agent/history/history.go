// Package history derives bounded views from the append-only interaction
// log. Every derivation is a pure function of the log plus configured
// limits: identical input yields identical output, and no view ever grows
// past its bound regardless of how long the conversation runs.
package history

import (
	"sort"
	"time"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// Change is one step of a parameter's evolution.
type Change struct {
	At   time.Time `json:"at"`
	Old  any       `json:"old"`
	New  any       `json:"new"`
	Turn string    `json:"turn"` // ID of the turn that carried the mutation
}

// View is the ephemeral per-turn bundle handed to responders. It is
// recomputed for every dispatch and never persisted.
type View struct {
	Conversation []ports.Turn        `json:"conversation"` // most recent first
	Simulations  []*curve.Result     `json:"simulations"`  // most recent first
	Evolution    map[string][]Change `json:"evolution"`    // chronological per parameter
	Summary      string              `json:"summary"`
}

// Context derives bounded views from interaction logs.
type Context struct {
	cfg config.HistoryConfig
}

// NewContext creates a derivation context with the given bounds.
func NewContext(cfg config.HistoryConfig) *Context {
	return &Context{cfg: cfg}
}

// ConversationWindow returns up to MaxConversationTurns turns, most recent
// first. A shorter log is returned whole, reversed; no padding.
func (c *Context) ConversationWindow(log []ports.Turn) []ports.Turn {
	n := c.cfg.MaxConversationTurns
	if n > len(log) {
		n = len(log)
	}
	out := make([]ports.Turn, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, log[i])
	}
	return out
}

// SimulationWindow returns up to MaxSimulationResults results carried by the
// log, most recent first.
func (c *Context) SimulationWindow(log []ports.Turn) []*curve.Result {
	out := make([]*curve.Result, 0, c.cfg.MaxSimulationResults)
	for i := len(log) - 1; i >= 0 && len(out) < c.cfg.MaxSimulationResults; i-- {
		if log[i].HasResult() {
			out = append(out, log[i].Result)
		}
	}
	return out
}

// ParameterEvolution rebuilds the per-parameter mutation trail by scanning
// the log for delta-carrying turns. The result is chronological per name and
// identical across calls on an unchanged log; there is no internal state.
func (c *Context) ParameterEvolution(log []ports.Turn) map[string][]Change {
	evo := make(map[string][]Change)
	for _, t := range log {
		for _, ch := range t.Changes {
			evo[ch.Name] = append(evo[ch.Name], Change{
				At:   t.CreatedAt,
				Old:  ch.Old,
				New:  ch.New,
				Turn: t.ID,
			})
		}
	}
	return evo
}

// ChangedRecently returns the names of parameters mutated within the last
// ChangedWindow turns, sorted for deterministic output.
func (c *Context) ChangedRecently(log []ports.Turn) []string {
	start := len(log) - c.cfg.ChangedWindow
	if start < 0 {
		start = 0
	}
	seen := make(map[string]struct{})
	for _, t := range log[start:] {
		for _, ch := range t.Changes {
			seen[ch.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Oscillating reports whether the named parameter has been flipped between
// two values at least cycles times within the evolution trail. Used for the
// loop advisory on parameter turns; it never blocks the mutation itself.
func Oscillating(trail []Change, cycles int) bool {
	if len(trail) < 2*cycles {
		return false
	}
	// Count A->B->A reversals over the recent trail.
	reversals := 0
	for i := 2; i < len(trail); i++ {
		if eqValue(trail[i].New, trail[i-2].New) && !eqValue(trail[i].New, trail[i-1].New) {
			reversals++
		}
	}
	return reversals >= cycles
}

func eqValue(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Derive computes the full per-turn view bundle.
func (c *Context) Derive(log []ports.Turn) View {
	conv := c.ConversationWindow(log)
	sims := c.SimulationWindow(log)
	evo := c.ParameterEvolution(log)
	return View{
		Conversation: conv,
		Simulations:  sims,
		Evolution:    evo,
		Summary:      c.Summarize(conv, sims, c.ChangedRecently(log)),
	}
}
