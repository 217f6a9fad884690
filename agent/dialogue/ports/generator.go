package ports

import (
	"context"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// CurveGenerator is the numerical routine that computes a power-voltage
// curve from a parameter snapshot. Failures come back as *curve.FailureError.
type CurveGenerator interface {
	Generate(ctx context.Context, set params.Set) (*curve.Result, error)
}

// Extractor parses requested parameter mutations out of raw user text. The
// returned map is keyed by canonical parameter names; resolution of informal
// spellings happens inside the extractor.
type Extractor interface {
	Extract(ctx context.Context, text string) (map[string]any, error)
}
