// Package curve generates power-voltage ("nose") curves for the supported
// test systems by sweeping system load through a Newton-Raphson power flow
// until the voltage limit is reached or the flow stops converging.
package curve

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// FailureReason classifies why a generation attempt produced no curve.
type FailureReason string

const (
	ReasonInvalidBus       FailureReason = "invalid_bus"
	ReasonBaseCaseDiverged FailureReason = "base_case_diverged"
	ReasonUnsupportedGrid  FailureReason = "unsupported_grid"
)

// FailureError is the structured failure surface of the generator; callers
// turn it into user-facing text rather than crashing the session.
type FailureError struct {
	Reason FailureReason
	Detail string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("curve generation failed (%s): %s", e.Reason, e.Detail)
}

// Point is one converged step of the sweep.
type Point struct {
	Step        int     `json:"step"`
	LoadMW      float64 `json:"load_mw"`
	VoltagePU   float64 `json:"voltage_pu"`
	LoadScale   float64 `json:"load_scale_factor"`
	DropPU      float64 `json:"voltage_drop_from_initial_pu"`
	DropPercent float64 `json:"voltage_drop_percent"`
	NosePoint   bool    `json:"is_nose_point"`
}

// Nose marks the maximum-power point of the curve.
type Nose struct {
	LoadMW    float64 `json:"load_mw"`
	VoltagePU float64 `json:"voltage_pu"`
	Index     int     `json:"index"`
}

// Result is one completed simulation. It is immutable once produced; later
// turns reference it, never mutate it.
type Result struct {
	Inputs            params.Set `json:"inputs"`
	Points            []Point    `json:"curve_points"`
	Nose              Nose       `json:"nose_point"`
	CriticalVoltagePU float64    `json:"critical_voltage_pu"` // voltage at the nose
	MaxPowerMW        float64    `json:"max_power_mw"`
	LoadMarginMW      float64    `json:"load_margin_mw"`
	LoadMarginPercent float64    `json:"load_margin_percent"`
	ConvergedSteps    int        `json:"converged_steps"`
	StoppedAtLimit    bool       `json:"stopped_at_voltage_limit"`
	GeneratedAt       time.Time  `json:"generated_at"`
	ArtifactPath      string     `json:"artifact_path,omitempty"`
}

// Generator runs load sweeps against the reduced case models.
type Generator struct {
	cfg config.CurveConfig
	now func() time.Time
}

// NewGenerator creates a generator. The clock is injectable for tests; nil
// defaults to time.Now.
func NewGenerator(cfg config.CurveConfig, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{cfg: cfg, now: now}
}

// Generate sweeps the load of the configured grid from the base case upward
// and returns the resulting curve. Failures are reported as *FailureError.
func (g *Generator) Generate(set params.Set) (*Result, error) {
	c, err := LookupCase(set.Grid)
	if err != nil {
		return nil, &FailureError{Reason: ReasonUnsupportedGrid, Detail: err.Error()}
	}
	if set.MonitoredBus >= c.BusCount {
		return nil, &FailureError{
			Reason: ReasonInvalidBus,
			Detail: fmt.Sprintf("bus %d does not exist in %s (%d buses)", set.MonitoredBus, c.Name, c.BusCount),
		}
	}

	f := newFeeder(c)
	monitored := c.sectionIndex(set.MonitoredBus)

	// Reactive demand follows the power factor; capacitive loads lead.
	tanPhi := math.Tan(math.Acos(set.PowerFactor))
	if set.Capacitive() {
		tanPhi = -tanPhi
	}

	share := 1.0 / float64(c.Sections) // even load split across sections
	loadP := make([]float64, c.Sections)
	loadQ := make([]float64, c.Sections)

	var samples []sample

	state := f.flatStart()
	stoppedAtLimit := false

	scale := 1.0
	for step := 0; scale <= set.MaxScale && step < g.cfg.MaxSteps; step++ {
		for i := range loadP {
			loadP[i] = share * scale
			loadQ[i] = loadP[i] * tanPhi
		}

		// Warm-start each step from the previous solution; the first step
		// starts flat.
		next, err := f.solve(state, loadP, loadQ, g.cfg.NRTolerance, g.cfg.NRMaxIter)
		if err != nil {
			// Collapse point reached: the sweep ends here.
			break
		}
		state = next

		v := state.v[monitored]
		samples = append(samples, sample{scale: scale, v: v})

		if v < set.VoltageLimit {
			stoppedAtLimit = true
			break
		}
		scale += set.StepSize
	}

	if len(samples) == 0 {
		return nil, &FailureError{
			Reason: ReasonBaseCaseDiverged,
			Detail: fmt.Sprintf("power flow for %s did not converge at base load; check power_factor and load_type", c.Name),
		}
	}

	res := g.buildResult(set, c, samples, stoppedAtLimit)

	if g.cfg.PersistCurves {
		if path, err := g.writeArtifact(res); err == nil {
			res.ArtifactPath = path
		}
	}

	return res, nil
}

// sample is one converged sweep step before derivation.
type sample struct {
	scale float64
	v     float64
}

func (g *Generator) buildResult(set params.Set, c Case, samples []sample, stoppedAtLimit bool) *Result {
	initialV := samples[0].v
	initialMW := samples[0].scale * c.TotalLoadMW

	noseIdx := 0
	for i, s := range samples {
		if s.scale > samples[noseIdx].scale {
			noseIdx = i
		}
	}

	points := make([]Point, len(samples))
	for i, s := range samples {
		mw := s.scale * c.TotalLoadMW
		drop := initialV - s.v
		pct := 0.0
		if initialV > 0 {
			pct = drop / initialV * 100
		}
		points[i] = Point{
			Step:        i + 1,
			LoadMW:      mw,
			VoltagePU:   s.v,
			LoadScale:   s.scale,
			DropPU:      drop,
			DropPercent: pct,
			NosePoint:   i == noseIdx,
		}
	}

	noseMW := samples[noseIdx].scale * c.TotalLoadMW
	marginMW := noseMW - initialMW
	marginPct := 0.0
	if initialMW > 0 {
		marginPct = marginMW / initialMW * 100
	}

	return &Result{
		Inputs:            set,
		Points:            points,
		Nose:              Nose{LoadMW: noseMW, VoltagePU: samples[noseIdx].v, Index: noseIdx},
		CriticalVoltagePU: samples[noseIdx].v,
		MaxPowerMW:        noseMW,
		LoadMarginMW:      marginMW,
		LoadMarginPercent: marginPct,
		ConvergedSteps:    len(samples),
		StoppedAtLimit:    stoppedAtLimit,
		GeneratedAt:       g.now(),
	}
}

// writeArtifact dumps the curve as CSV next to the configured output dir,
// mirroring the reference implementation's saved plot files.
func (g *Generator) writeArtifact(res *Result) (string, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}
	name := fmt.Sprintf("pv_curve_%s_%s.csv", res.Inputs.Grid, res.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(g.cfg.OutputDir, name)

	fh, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create curve artifact: %w", err)
	}
	defer fh.Close()

	w := csv.NewWriter(fh)
	defer w.Flush()

	if err := w.Write([]string{"step", "load_mw", "voltage_pu", "load_scale", "is_nose"}); err != nil {
		return "", err
	}
	for _, p := range res.Points {
		rec := []string{
			strconv.Itoa(p.Step),
			strconv.FormatFloat(p.LoadMW, 'f', 3, 64),
			strconv.FormatFloat(p.VoltagePU, 'f', 5, 64),
			strconv.FormatFloat(p.LoadScale, 'f', 4, 64),
			strconv.FormatBool(p.NosePoint),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	return path, nil
}
