package dialogue

import (
	"fmt"
	"hash/fnv"
	"io"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// State is everything that crosses the session boundary per turn. It is an
// explicit value the caller receives from Process and hands back unchanged on
// the next call; all mutation flows through the engine. The engine seals
// every State it returns so a foreign or externally mutated value is detected
// rather than silently accepted.
type State struct {
	SessionID  string        `json:"session_id"`
	Params     params.Set    `json:"params"`
	Log        []ports.Turn  `json:"log"`
	LastResult *curve.Result `json:"last_result,omitempty"`
	Summary    string        `json:"summary"`

	seal uint64
}

// TurnCount returns the number of committed log entries.
func (s State) TurnCount() int { return len(s.Log) }

// seal computes the integrity digest over everything the engine owns in a
// State. The engine's per-instance secret keys it, so a State built by hand
// or by another engine never verifies.
func (e *Engine) sealState(s State) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%+v|%d|%s|", e.secret, s.SessionID, s.Params, len(s.Log), s.Summary)
	for _, t := range s.Log {
		fmt.Fprintf(h, "%s:%s:%s:%t:%q:%d;", t.ID, t.Role, t.Label, t.Failed, t.Text, t.CreatedAt.UnixNano())
		for _, c := range t.Changes {
			fmt.Fprintf(h, "%s=%v>%v;", c.Name, c.Old, c.New)
		}
		writeResultDigest(h, t.Result)
	}
	writeResultDigest(h, s.LastResult)
	return h.Sum64()
}

// writeResultDigest folds a result reference into the seal. Every field a
// responder reads back out of the log is covered, so tampering with stored
// evolution data breaks verification.
func writeResultDigest(w io.Writer, r *curve.Result) {
	if r == nil {
		fmt.Fprint(w, "-;")
		return
	}
	fmt.Fprintf(w, "r:%+v:%+v:%g:%g:%g:%g:%d:%t:%d:%s:%d;",
		r.Inputs, r.Nose, r.CriticalVoltagePU, r.MaxPowerMW, r.LoadMarginMW,
		r.LoadMarginPercent, r.ConvergedSteps, r.StoppedAtLimit,
		r.GeneratedAt.UnixNano(), r.ArtifactPath, len(r.Points))
}

func (e *Engine) signed(s State) State {
	s.seal = e.sealState(s)
	return s
}

func (e *Engine) verify(s State) bool {
	return s.seal == e.sealState(s)
}
