package adapters

import (
	"context"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// LocalCurveGenerator runs the in-process sweep behind the CurveGenerator
// port. The sweep is CPU-bound and fast; the context is only consulted
// between the call boundary, not inside the solver.
type LocalCurveGenerator struct {
	generator *curve.Generator
}

func NewLocalCurveGenerator(generator *curve.Generator) *LocalCurveGenerator {
	return &LocalCurveGenerator{generator: generator}
}

func (g *LocalCurveGenerator) Generate(ctx context.Context, set params.Set) (*curve.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.generator.Generate(set)
}

var _ ports.CurveGenerator = (*LocalCurveGenerator)(nil)
