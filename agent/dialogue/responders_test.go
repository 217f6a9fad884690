package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/history"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

type errProvider struct{}

func (errProvider) Complete(context.Context, ports.PromptInput) (string, error) {
	return "", errors.New("backend down")
}

func TestQuestionResponder_SnippetFallbackWhenProviderFails(t *testing.T) {
	q := NewQuestionResponder(&stubRetriever{snippets: []ports.Snippet{
		{Text: "The nose point is the maximum loadability.", Source: "terms:nose point"},
		{Text: "Load margin is the distance to the nose.", Source: "terms:load margin"},
	}}, errProvider{}, 4)

	out, err := q.Respond(context.Background(), Request{Text: "tell me about the nose point", Params: params.Default})
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.Contains(t, out.Text, "maximum loadability")
	assert.Contains(t, out.Text, "Related:")
}

func TestQuestionResponder_NoMaterial(t *testing.T) {
	q := NewQuestionResponder(&stubRetriever{}, nil, 4)

	out, err := q.Respond(context.Background(), Request{Text: "how do capacitors affect anything", Params: params.Default})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "don't have reference material")
}

func TestQuestionResponder_ParameterValueFromSnapshot(t *testing.T) {
	q := NewQuestionResponder(&stubRetriever{}, nil, 4)

	set := params.Default
	set.PowerFactor = 0.9
	out, err := q.Respond(context.Background(), Request{Text: "what is the current power factor?", Params: set})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "0.9")
	assert.Empty(t, out.Deltas)
}

func TestParameterResponder_NothingParsed(t *testing.T) {
	p := NewParameterResponder(&stubExtractor{byText: map[string]map[string]any{}})

	out, err := p.Respond(context.Background(), Request{Text: "please do the thing", Params: params.Default})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Empty(t, out.Deltas)
	assert.Contains(t, out.Text, "didn't find a parameter")
}

func TestParameterResponder_NarratesOldValue(t *testing.T) {
	p := NewParameterResponder(&stubExtractor{byText: map[string]map[string]any{
		"set pf to 0.9": {params.PowerFactor: 0.9},
	}})

	out, err := p.Respond(context.Background(), Request{Text: "set pf to 0.9", Params: params.Default})
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.Contains(t, out.Text, "0.9")
	assert.Contains(t, out.Text, "0.95") // the value being replaced
	assert.Equal(t, map[string]any{params.PowerFactor: 0.9}, out.Deltas)
}

func TestGenerationResponder_SuccessChainsAnalysis(t *testing.T) {
	g := NewGenerationResponder(&stubGenerator{result: sampleResult()})

	out, err := g.Respond(context.Background(), Request{Text: "run", Params: params.Default})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	require.NotNil(t, out.FollowUp)
	assert.Equal(t, ports.LabelAnalysis, out.FollowUp.Label)
	assert.Contains(t, out.Text, "nose at 14000.0 MW")
}

func TestGenerationResponder_InvalidBus(t *testing.T) {
	g := NewGenerationResponder(&stubGenerator{
		err: &curve.FailureError{Reason: curve.ReasonInvalidBus, Detail: "bus 99 does not exist in ieee39 (39 buses)"},
	})

	out, err := g.Respond(context.Background(), Request{Text: "run", Params: params.Default})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Nil(t, out.Result)
	assert.Nil(t, out.FollowUp)
	assert.Contains(t, out.Text, "bus 99")
}

func TestGenerationResponder_GenericFailure(t *testing.T) {
	g := NewGenerationResponder(&stubGenerator{err: errors.New("artifact directory is read-only")})

	out, err := g.Respond(context.Background(), Request{Text: "run", Params: params.Default})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t,
		"Curve generation failed: artifact directory is read-only. The parameter set is unchanged; adjust it and try again.",
		out.Text)
}

func TestGenerationFailure_KeepsStructuredReason(t *testing.T) {
	failure := &GenerationFailure{Err: &curve.FailureError{
		Reason: curve.ReasonBaseCaseDiverged, Detail: "mismatch 2.1e-01 after 30 iterations",
	}}

	var fe *curve.FailureError
	require.True(t, errors.As(failure, &fe))
	assert.Equal(t, curve.ReasonBaseCaseDiverged, fe.Reason)
	assert.Contains(t, failure.Error(), "generation failed")
	assert.Contains(t, describeGenerationFailure(failure), "did not converge at base load")
}

func TestAnalysisResponder_NoResults(t *testing.T) {
	a := NewAnalysisResponder(nil)

	out, err := a.Respond(context.Background(), Request{Text: "analyze", Params: params.Default})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "no simulation results")
	assert.Empty(t, out.Deltas)
}

func TestAnalysisResponder_ComparesRuns(t *testing.T) {
	older := sampleResult()
	newer := sampleResult()
	newer.CriticalVoltagePU = 0.58
	newer.MaxPowerMW = 15200

	a := NewAnalysisResponder(nil)
	out, err := a.Respond(context.Background(), Request{
		Text:   "compare",
		Params: params.Default,
		History: history.View{
			Simulations: []*curve.Result{newer, older}, // most recent first
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "critical voltage fell 0.040 pu")
	assert.Contains(t, out.Text, "maximum power improved by 1200.0 MW")
}
