package dialogue

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// AnalysisResponder compares recent simulation results. It only reads the
// bounded simulation window and never proposes state changes.
type AnalysisResponder struct {
	retriever ports.Retriever
}

func NewAnalysisResponder(retriever ports.Retriever) *AnalysisResponder {
	return &AnalysisResponder{retriever: retriever}
}

func (a *AnalysisResponder) Respond(ctx context.Context, req Request) (Outcome, error) {
	sims := req.History.Simulations
	if len(sims) == 0 {
		return Outcome{Text: "There are no simulation results to analyze yet. Generate a PV curve first."}, nil
	}

	latest := sims[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Latest run (%s, bus %d): critical voltage %.3f pu at %.1f MW maximum power, load margin %.1f MW (%.1f%%).",
		latest.Inputs.Grid, latest.Inputs.MonitoredBus,
		latest.CriticalVoltagePU, latest.MaxPowerMW,
		latest.LoadMarginMW, latest.LoadMarginPercent)

	if len(sims) > 1 {
		b.WriteString(" ")
		b.WriteString(compareRuns(latest, sims[1]))
	} else if verdict := marginVerdict(latest); verdict != "" {
		b.WriteString(" ")
		b.WriteString(verdict)
	}

	return Outcome{Text: b.String()}, nil
}

// compareRuns states the deltas against the previous run.
func compareRuns(latest, previous *curve.Result) string {
	dv := latest.CriticalVoltagePU - previous.CriticalVoltagePU
	dp := latest.MaxPowerMW - previous.MaxPowerMW

	var parts []string
	switch {
	case math.Abs(dv) < 5e-4:
		parts = append(parts, "critical voltage is unchanged from the previous run")
	case dv > 0:
		parts = append(parts, fmt.Sprintf("critical voltage rose %.3f pu versus the previous run", dv))
	default:
		parts = append(parts, fmt.Sprintf("critical voltage fell %.3f pu versus the previous run", -dv))
	}
	switch {
	case math.Abs(dp) < 0.05:
		parts = append(parts, "maximum power is unchanged")
	case dp > 0:
		parts = append(parts, fmt.Sprintf("maximum power improved by %.1f MW", dp))
	default:
		parts = append(parts, fmt.Sprintf("maximum power dropped by %.1f MW", -dp))
	}
	return "Compared to the run before: " + strings.Join(parts, "; ") + "."
}

// marginVerdict gives a rough qualitative read on a single run.
func marginVerdict(r *curve.Result) string {
	switch {
	case r.LoadMarginPercent >= 100:
		return "The margin is comfortable: load can more than double before collapse."
	case r.LoadMarginPercent >= 30:
		return "The margin is moderate; watch it if load growth or contingencies are expected."
	case r.LoadMarginPercent > 0:
		return "The margin is thin; the operating point is close to the nose of the curve."
	}
	return ""
}

var _ Responder = (*AnalysisResponder)(nil)
