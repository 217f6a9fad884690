package dialogue

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CURENT/pv-curve-llm/agent/config"
)

func TestFactory_SelectsStaticProviderByDefault(t *testing.T) {
	f := NewFactory(config.Default(), nil, zerolog.Nop())

	engine, err := f.CreateEngine()
	require.NoError(t, err)
	require.NotNil(t, f.Provider)

	// The provider-backed boundary still routes an ordinary request: the
	// static provider cannot produce classification JSON, so the rules
	// fallback decides, and the turn commits normally.
	state := engine.NewState()
	state, reply, err := engine.Process(context.Background(), "set power factor to 0.9", state)
	require.NoError(t, err)
	assert.Contains(t, reply, "Setting power factor to 0.9")
	require.NotEmpty(t, state.Log)
	assert.InDelta(t, 0.9, state.Params.PowerFactor, 1e-12)
}

func TestFactory_ProviderNoneUsesRulesDirectly(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Kind = config.ProviderNone
	f := NewFactory(cfg, nil, zerolog.Nop())

	_, err := f.CreateEngine()
	require.NoError(t, err)
	assert.Nil(t, f.Provider)
}
