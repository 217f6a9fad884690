package dialogue

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/history"
)

// oscillationCycles is the number of set-revert reversals on one parameter
// before the advisory note fires.
const oscillationCycles = 3

// ParameterResponder turns natural-language mutation requests into a proposed
// delta batch. Validation and the atomic commit happen in the engine; this
// responder only extracts, narrates, and attaches the loop advisory.
type ParameterResponder struct {
	extractor ports.Extractor
}

func NewParameterResponder(extractor ports.Extractor) *ParameterResponder {
	return &ParameterResponder{extractor: extractor}
}

func (p *ParameterResponder) Respond(ctx context.Context, req Request) (Outcome, error) {
	deltas, err := p.extractor.Extract(ctx, req.Text)
	if err != nil {
		return Outcome{
			Text:   fmt.Sprintf("I couldn't parse a parameter change out of that: %v. Try e.g. \"set the step size to 0.05\".", err),
			Failed: true,
		}, nil
	}
	if len(deltas) == 0 {
		return Outcome{
			Text:   "I didn't find a parameter to change in that request. Name the parameter and the new value, e.g. \"set base power to 150\".",
			Failed: true,
		}, nil
	}

	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		old, err := req.Params.Value(name)
		if err != nil {
			lines = append(lines, fmt.Sprintf("Setting %s to %v.", pretty(name), deltas[name]))
			continue
		}
		lines = append(lines, fmt.Sprintf("Setting %s to %v (was %v).", pretty(name), deltas[name], old))
	}

	// Loop advisory: a parameter flipped back and forth repeatedly gets a
	// note, but the mutation still goes through.
	for _, name := range names {
		if history.Oscillating(req.History.Evolution[name], oscillationCycles) {
			lines = append(lines, fmt.Sprintf(
				"Note: %s has been toggled back and forth several times recently; consider settling on a value before generating curves.",
				pretty(name)))
		}
	}

	return Outcome{Text: strings.Join(lines, " "), Deltas: deltas}, nil
}

func pretty(name string) string { return strings.ReplaceAll(name, "_", " ") }

var _ Responder = (*ParameterResponder)(nil)
