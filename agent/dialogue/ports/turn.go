// Package ports declares the boundary types and interfaces of the dialogue
// layer. External collaborators (classifier, text generation, retrieval, the
// curve routine, persistence) are consumed through these ports only.
package ports

import (
	"time"

	"github.com/CURENT/pv-curve-llm/agent/curve"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParamChange records one committed parameter mutation carried by a turn.
type ParamChange struct {
	Name string `json:"name"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Turn is one immutable entry of the interaction log. Only the workflow
// engine appends turns; everything else reads.
type Turn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Label     Label         `json:"label"`
	Failed    bool          `json:"failed,omitempty"` // the dispatch behind this turn was recovered from an error
	Changes   []ParamChange `json:"changes,omitempty"`
	Result    *curve.Result `json:"result,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasResult reports whether this turn carries a simulation result reference.
func (t Turn) HasResult() bool { return t.Result != nil }
