package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// GenerationResponder runs the curve routine against the current snapshot.
// Failures become explanatory text on a failed turn; a success carries the
// result for commit and chains an analysis follow-up.
type GenerationResponder struct {
	generator ports.CurveGenerator
}

func NewGenerationResponder(generator ports.CurveGenerator) *GenerationResponder {
	return &GenerationResponder{generator: generator}
}

func (g *GenerationResponder) Respond(ctx context.Context, req Request) (Outcome, error) {
	result, err := g.generator.Generate(ctx, req.Params)
	if err != nil {
		return Outcome{Text: describeGenerationFailure(&GenerationFailure{Err: err}), Failed: true}, nil
	}

	text := fmt.Sprintf(
		"Generated the PV curve for %s, bus %d: %d converged steps, nose at %.1f MW with critical voltage %.3f pu. Load margin from the base case is %.1f MW (%.1f%%).",
		result.Inputs.Grid, result.Inputs.MonitoredBus, result.ConvergedSteps,
		result.MaxPowerMW, result.CriticalVoltagePU,
		result.LoadMarginMW, result.LoadMarginPercent)
	if result.StoppedAtLimit {
		text += fmt.Sprintf(" The sweep stopped at the %.2f pu voltage limit.", result.Inputs.VoltageLimit)
	} else {
		text += " The sweep stopped when the power flow lost convergence, which marks the collapse boundary."
	}
	if result.ArtifactPath != "" {
		text += fmt.Sprintf(" Curve data written to %s.", result.ArtifactPath)
	}

	return Outcome{
		Text:     text,
		Result:   result,
		FollowUp: &ports.PlannedStep{Label: ports.LabelAnalysis, Text: "analyze the latest curve"},
	}, nil
}

// describeGenerationFailure maps structured failure reasons to user-facing
// text with enough detail to retry.
func describeGenerationFailure(failure *GenerationFailure) string {
	var fe *curve.FailureError
	if !errors.As(failure, &fe) {
		return fmt.Sprintf("Curve generation failed: %v. The parameter set is unchanged; adjust it and try again.", failure.Err)
	}
	switch fe.Reason {
	case curve.ReasonInvalidBus:
		return fmt.Sprintf("Curve generation failed: %s. Pick a monitored bus inside the selected grid and try again.", fe.Detail)
	case curve.ReasonUnsupportedGrid:
		return fmt.Sprintf("Curve generation failed: %s.", fe.Detail)
	case curve.ReasonBaseCaseDiverged:
		return fmt.Sprintf("Curve generation failed: the power flow did not converge at base load (%s). Lower the power factor burden or raise the voltage limit and try again.", fe.Detail)
	}
	return fmt.Sprintf("Curve generation failed: %s.", fe.Detail)
}

var _ Responder = (*GenerationResponder)(nil)
