package history

import (
	"fmt"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// Summarize renders the bounded digest injected into prompts: recent turn
// intents, recent nose points, and recently changed parameter names. The
// output is deterministic for identical inputs and hard-truncated at
// MaxSummaryLen so it cannot grow with conversation length.
func (c *Context) Summarize(conversation []ports.Turn, sims []*curve.Result, changed []string) string {
	var b strings.Builder

	if len(conversation) > 0 {
		b.WriteString("Recent turns (newest first):\n")
		for _, t := range conversation {
			if t.Role != ports.RoleUser {
				continue
			}
			label := string(t.Label)
			if label == "" {
				label = string(ports.LabelUnclassifiable)
			}
			fmt.Fprintf(&b, "- [%s] %s\n", label, clip(t.Text, 120))
		}
	}

	if len(sims) > 0 {
		b.WriteString("Recent simulations (newest first):\n")
		for _, r := range sims {
			fmt.Fprintf(&b, "- %s bus %d: critical voltage %.3f pu, max power %.1f MW\n",
				r.Inputs.Grid, r.Inputs.MonitoredBus, r.CriticalVoltagePU, r.MaxPowerMW)
		}
	}

	if len(changed) > 0 {
		fmt.Fprintf(&b, "Recently changed parameters: %s\n", strings.Join(changed, ", "))
	}

	return clip(b.String(), c.cfg.MaxSummaryLen)
}

// clip truncates s to max bytes, marking the cut.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
