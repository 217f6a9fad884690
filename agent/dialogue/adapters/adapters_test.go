package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

func TestRulesClassifier_Labels(t *testing.T) {
	c := NewRulesClassifier()
	cases := map[string]ports.Label{
		"What is a PV curve?":                ports.LabelQuestion,
		"Set the base power to 150":          ports.LabelParameter,
		"change the power factor to 0.9":     ports.LabelParameter,
		"generate the curve":                 ports.LabelGeneration,
		"run the simulation":                 ports.LabelGeneration,
		"plot the nose curve for bus 10":     ports.LabelGeneration,
		"compare the last run with previous": ports.LabelAnalysis,
		"analyze the results":                ports.LabelAnalysis,
		"":                                   ports.LabelUnclassifiable,
	}
	for text, want := range cases {
		cls, err := c.Classify(context.Background(), text, nil)
		require.NoError(t, err)
		assert.Equalf(t, want, cls.Label, "text %q", text)
	}
}

func TestRulesClassifier_CompoundSplit(t *testing.T) {
	c := NewRulesClassifier()

	cls, err := c.Classify(context.Background(), "Set the step size to 0.05 and run the simulation", nil)
	require.NoError(t, err)
	require.Len(t, cls.Steps, 2)
	assert.Equal(t, ports.LabelParameter, cls.Steps[0].Label)
	assert.Equal(t, "Set the step size to 0.05", cls.Steps[0].Text)
	assert.Equal(t, ports.LabelGeneration, cls.Steps[1].Label)
	assert.Equal(t, "run the simulation", cls.Steps[1].Text)
}

func TestRulesExtractor(t *testing.T) {
	e := NewRulesExtractor()

	cases := []struct {
		text string
		want map[string]any
	}{
		{"Set the base power to 150", map[string]any{params.BasePower: 150.0}},
		{"change step size to 0.05", map[string]any{params.StepSize: 0.05}},
		{"set pf to 0.9", map[string]any{params.PowerFactor: 0.9}},
		{"use bus 12", map[string]any{params.MonitoredBus: 12}},
		{"switch the load type to capacitive", map[string]any{params.LoadType: "capacitive"}},
		{"make the load leading", map[string]any{params.LoadType: "capacitive"}},
		{"set the grid to ieee14", map[string]any{params.Grid: "ieee14"}},
		{"turn continuation off", map[string]any{params.Continuation: false}},
		{"hello there", map[string]any{}},
	}
	for _, tc := range cases {
		got, err := e.Extract(context.Background(), tc.text)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, got, "text %q", tc.text)
	}
}

func TestRulesExtractor_CompoundSetsBoth(t *testing.T) {
	e := NewRulesExtractor()

	got, err := e.Extract(context.Background(), "set step size to 0.02 and power factor to 0.85")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{params.StepSize: 0.02, params.PowerFactor: 0.85}, got)
}

func TestRulesExtractor_Reset(t *testing.T) {
	e := NewRulesExtractor()

	got, err := e.Extract(context.Background(), "reset everything to defaults")
	require.NoError(t, err)
	assert.Len(t, got, len(params.Names()))
	assert.Equal(t, params.Default.BasePower, got[params.BasePower])
	assert.Equal(t, params.Default.Grid, got[params.Grid])
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 60))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 60))

	// Touch "a" so "b" is the eviction candidate.
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", []byte("3"), 60))

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 60))
	require.NoError(t, c.Set(ctx, "a", []byte("2"), 60))

	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

type scriptedProvider struct {
	reply string
	err   error
}

func (p scriptedProvider) Complete(context.Context, ports.PromptInput) (string, error) {
	return p.reply, p.err
}

func TestProviderClassifier_ValidJSON(t *testing.T) {
	c := NewProviderClassifier(scriptedProvider{
		reply: `The classification is: {"label": "generation", "confidence": 0.92}`,
	}, nil)

	cls, err := c.Classify(context.Background(), "run it", nil)
	require.NoError(t, err)
	assert.Equal(t, ports.LabelGeneration, cls.Label)
	assert.InDelta(t, 0.92, cls.Confidence, 1e-9)
}

func TestProviderClassifier_SchemaViolationFallsBack(t *testing.T) {
	// "mutate" is outside the closed label set; the rules fallback takes over.
	c := NewProviderClassifier(scriptedProvider{
		reply: `{"label": "mutate", "confidence": 0.99}`,
	}, nil)

	cls, err := c.Classify(context.Background(), "set step size to 0.05", nil)
	require.NoError(t, err)
	assert.Equal(t, ports.LabelParameter, cls.Label)
}

func TestProviderClassifier_ProviderErrorFallsBack(t *testing.T) {
	c := NewProviderClassifier(scriptedProvider{err: errors.New("down")}, nil)

	cls, err := c.Classify(context.Background(), "generate the curve", nil)
	require.NoError(t, err)
	assert.Equal(t, ports.LabelGeneration, cls.Label)
}

func TestProviderExtractor_ValidJSON(t *testing.T) {
	e := NewProviderExtractor(scriptedProvider{
		reply: `{"step_size": 0.05, "grid": "IEEE57"}`,
	}, nil)

	got, err := e.Extract(context.Background(), "step to 0.05 on ieee57")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"step_size": 0.05, "grid": "ieee57"}, got)
}

func TestProviderExtractor_UnknownKeyFallsBack(t *testing.T) {
	// additionalProperties is false, so an off-schema key rejects the reply.
	e := NewProviderExtractor(scriptedProvider{
		reply: `{"frequency": 60}`,
	}, nil)

	got, err := e.Extract(context.Background(), "set pf to 0.9")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{params.PowerFactor: 0.9}, got)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()

	out, err := p.Complete(context.Background(), ports.PromptInput{
		Query:   "what is the nose point",
		Context: []string{"The nose point is the maximum loadability.", "Load margin is the distance to the nose."},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "maximum loadability")

	empty, err := p.Complete(context.Background(), ports.PromptInput{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
