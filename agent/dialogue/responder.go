package dialogue

import (
	"context"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/history"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// Request is the read-only bundle a responder consumes: the step's text, the
// current parameter snapshot, and history views derived fresh for this
// dispatch.
type Request struct {
	Text    string
	Params  params.Set
	History history.View
}

// Outcome is the value a responder proposes back to the engine. Responders
// never touch shared state; the engine validates and commits the outcome
// atomically.
type Outcome struct {
	Text     string
	Deltas   map[string]any     // proposed parameter mutations, canonical names
	Result   *curve.Result      // produced simulation result, if any
	Failed   bool               // the dispatch was recovered from an error
	FollowUp *ports.PlannedStep // chained dispatch request, bounded by the engine
}

// Responder handles one turn kind. A returned error is recovered at the
// engine boundary into a failed turn; it never aborts the session.
type Responder interface {
	Respond(ctx context.Context, req Request) (Outcome, error)
}
