package curve

import (
	"testing"
	"time"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator() *Generator {
	cfg := config.Default().Curve
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	return NewGenerator(cfg, func() time.Time { return fixed })
}

func TestGenerate_ProducesNoseCurve(t *testing.T) {
	g := testGenerator()

	set := params.Default
	set.StepSize = 0.05 // coarse sweep keeps the test fast

	res, err := g.Generate(set)
	require.NoError(t, err)
	require.NotEmpty(t, res.Points)

	// Base case solves near nominal voltage.
	assert.Greater(t, res.Points[0].VoltagePU, 0.85)

	// Voltage declines monotonically along the upper branch.
	for i := 1; i < len(res.Points); i++ {
		assert.LessOrEqual(t, res.Points[i].VoltagePU, res.Points[i-1].VoltagePU+1e-9,
			"voltage rose at step %d", i)
	}

	// Nose point is the maximum power sample and carries the derived scalars.
	assert.Equal(t, res.MaxPowerMW, res.Nose.LoadMW)
	assert.Equal(t, res.CriticalVoltagePU, res.Nose.VoltagePU)
	assert.True(t, res.Points[res.Nose.Index].NosePoint)
	assert.Greater(t, res.LoadMarginMW, 0.0)

	// The sweep found a collapse margin beyond the base case but within the
	// configured ceiling.
	lastScale := res.Points[len(res.Points)-1].LoadScale
	assert.Greater(t, lastScale, 1.3)
	assert.LessOrEqual(t, lastScale, set.MaxScale)
}

func TestGenerate_DeterministicForIdenticalInputs(t *testing.T) {
	g := testGenerator()

	set := params.Default
	set.Grid = "ieee14"
	set.StepSize = 0.05

	a, err := g.Generate(set)
	require.NoError(t, err)
	b, err := g.Generate(set)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerate_InvalidBus(t *testing.T) {
	g := testGenerator()

	set := params.Default
	set.Grid = "ieee14"
	set.MonitoredBus = 99

	_, err := g.Generate(set)
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonInvalidBus, fe.Reason)
	assert.Contains(t, fe.Detail, "ieee14")
}

func TestGenerate_CapacitiveLoadHoldsVoltageHigher(t *testing.T) {
	g := testGenerator()

	ind := params.Default
	ind.StepSize = 0.05

	lead := ind
	lead.LoadType = params.LoadCapacitive

	resInd, err := g.Generate(ind)
	require.NoError(t, err)
	resCap, err := g.Generate(lead)
	require.NoError(t, err)

	// Leading reactive power supports the bus voltage at the base case.
	assert.Greater(t, resCap.Points[0].VoltagePU, resInd.Points[0].VoltagePU)
}

func TestLookupCase_UnknownGrid(t *testing.T) {
	_, err := LookupCase("ieee9000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ieee14")
}

func TestSectionIndex_Bounds(t *testing.T) {
	c, err := LookupCase("ieee39")
	require.NoError(t, err)

	assert.Equal(t, 1, c.sectionIndex(0))
	assert.Equal(t, c.Sections, c.sectionIndex(c.BusCount-1))
	for bus := 0; bus < c.BusCount; bus++ {
		idx := c.sectionIndex(bus)
		assert.GreaterOrEqual(t, idx, 1)
		assert.LessOrEqual(t, idx, c.Sections)
	}
}
