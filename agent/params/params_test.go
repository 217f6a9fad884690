package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyCommitsValidBatch(t *testing.T) {
	st := NewStore()

	got, err := st.Apply(map[string]any{
		StepSize:    0.05,
		PowerFactor: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.05, got.StepSize)
	assert.Equal(t, 0.9, got.PowerFactor)
	// Untouched parameters keep their defaults.
	assert.Equal(t, Default.Grid, got.Grid)
	assert.Equal(t, uint64(1), st.Version())
}

func TestStore_ApplyIsAtomic(t *testing.T) {
	st := NewStore()

	// One invalid delta among valid ones must leave the store unchanged.
	_, err := st.Apply(map[string]any{
		StepSize:     0.05,
		PowerFactor:  0.9,
		VoltageLimit: 1.5, // out of range
	})
	require.Error(t, err)

	var invalid *InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, VoltageLimit, invalid.Name)
	assert.Contains(t, invalid.Reason, "[0, 1)")

	assert.Equal(t, Default, st.GetAll())
	assert.Equal(t, uint64(0), st.Version())
}

func TestStore_ApplyUnknownName(t *testing.T) {
	st := NewStore()

	_, err := st.Apply(map[string]any{"frequency": 60.0})
	var unknown *UnknownParameterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "frequency", unknown.Name)
	assert.Equal(t, Default, st.GetAll())
}

func TestStore_ResetToDefaultRoundTrip(t *testing.T) {
	st := NewStore()

	_, err := st.Apply(map[string]any{Grid: "ieee14", MonitoredBus: 3, LoadType: LoadCapacitive})
	require.NoError(t, err)
	require.NotEqual(t, Default, st.GetAll())

	got := st.ResetToDefault()
	assert.Equal(t, Default, got)
	assert.Equal(t, Default, st.GetAll())
}

func TestStore_ValidateCoercions(t *testing.T) {
	st := NewStore()

	// Whole floats coerce to ints for bus indices; fractional ones do not.
	v, err := st.Validate(MonitoredBus, 7.0)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = st.Validate(MonitoredBus, 7.5)
	assert.Error(t, err)

	_, err = st.Validate(Grid, "ieee9000")
	assert.Error(t, err)

	_, err = st.Validate(Continuation, "yes")
	assert.Error(t, err)
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver()

	cases := map[string]string{
		"power factor":  PowerFactor,
		"pf":            PowerFactor,
		"Step Size":     StepSize,
		"step_size":     StepSize,
		"voltage":       VoltageLimit, // unambiguous prefix
		"base pow":      BasePower,
		"bus":           MonitoredBus,
		"load":          LoadType, // exact alias beats prefix ambiguity
		"max":           MaxScale,
		"monitored_bus": MonitoredBus,
	}
	for input, want := range cases {
		got, ok := r.Resolve(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	// Ambiguous or unknown spellings are rejected.
	// "b" prefixes both base_power and monitored-bus aliases; "m" prefixes
	// max_scale and monitored_bus.
	for _, input := range []string{"", "b", "m", "impedance"} {
		_, ok := r.Resolve(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestResolver_ResolveExact(t *testing.T) {
	r := NewResolver()

	got, ok := r.ResolveExact("pf")
	require.True(t, ok)
	assert.Equal(t, PowerFactor, got)

	// Prefixes that Resolve would accept are not exact matches.
	_, ok = r.ResolveExact("base pow")
	assert.False(t, ok)

	_, ok = r.ResolveExact("voltage")
	assert.False(t, ok)
}
