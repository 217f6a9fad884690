package curve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// errNotConverged is returned by the Newton-Raphson loop when the mismatch
// cannot be driven below tolerance; during a sweep this marks the collapse
// point rather than a fault.
var errNotConverged = errors.New("power flow did not converge")

// feeder is the radial chain being solved: bus 0 is the slack source, buses
// 1..n carry loads. Conductance g and susceptance b describe the (n+1)x(n+1)
// bus admittance matrix; only the tri-diagonal entries are non-zero for a
// chain but the solve is written against the full matrix for clarity.
type feeder struct {
	n      int // load buses
	g, b   *mat.Dense
	slackV float64
}

func newFeeder(c Case) *feeder {
	n := c.Sections
	size := n + 1
	g := mat.NewDense(size, size, nil)
	b := mat.NewDense(size, size, nil)

	// Series admittance of one section: y = 1/(r + jx).
	den := c.SectionR*c.SectionR + c.SectionX*c.SectionX
	gs := c.SectionR / den
	bs := -c.SectionX / den

	for k := 0; k < n; k++ {
		i, j := k, k+1
		g.Set(i, j, -gs)
		g.Set(j, i, -gs)
		b.Set(i, j, -bs)
		b.Set(j, i, -bs)
		g.Set(i, i, g.At(i, i)+gs)
		g.Set(j, j, g.At(j, j)+gs)
		b.Set(i, i, b.At(i, i)+bs)
		b.Set(j, j, b.At(j, j)+bs)
	}

	return &feeder{n: n, g: g, b: b, slackV: c.SlackV}
}

// solution carries the bus voltage state; index 0 is the slack bus.
type solution struct {
	v     []float64 // magnitudes, pu
	theta []float64 // angles, rad
}

func (f *feeder) flatStart() solution {
	v := make([]float64, f.n+1)
	theta := make([]float64, f.n+1)
	v[0] = f.slackV
	for i := 1; i <= f.n; i++ {
		v[i] = 1.0
	}
	return solution{v: v, theta: theta}
}

func (s solution) clone() solution {
	v := make([]float64, len(s.v))
	theta := make([]float64, len(s.theta))
	copy(v, s.v)
	copy(theta, s.theta)
	return solution{v: v, theta: theta}
}

// injections computes real and reactive power injected at bus i for the
// current voltage state.
func (f *feeder) injections(s solution, i int) (p, q float64) {
	for k := 0; k <= f.n; k++ {
		gik, bik := f.g.At(i, k), f.b.At(i, k)
		if gik == 0 && bik == 0 {
			continue
		}
		d := s.theta[i] - s.theta[k]
		p += s.v[i] * s.v[k] * (gik*math.Cos(d) + bik*math.Sin(d))
		q += s.v[i] * s.v[k] * (gik*math.Sin(d) - bik*math.Cos(d))
	}
	return p, q
}

// mismatch fills out with [dP1..dPn, dQ1..dQn] for the given specified load
// (positive consumption) per bus.
func (f *feeder) mismatch(s solution, loadP, loadQ []float64, out []float64) float64 {
	worst := 0.0
	for i := 1; i <= f.n; i++ {
		p, q := f.injections(s, i)
		dp := p + loadP[i-1] // injection is the negative of consumption
		dq := q + loadQ[i-1]
		out[i-1] = dp
		out[f.n+i-1] = dq
		worst = math.Max(worst, math.Max(math.Abs(dp), math.Abs(dq)))
	}
	return worst
}

// solve runs Newton-Raphson from the supplied starting state. The Jacobian is
// built by forward differences and solved with a dense LU via gonum.
func (f *feeder) solve(start solution, loadP, loadQ []float64, tol float64, maxIter int) (solution, error) {
	s := start.clone()
	m := 2 * f.n
	fx := make([]float64, m)
	fxh := make([]float64, m)

	const h = 1e-7

	for iter := 0; iter < maxIter; iter++ {
		worst := f.mismatch(s, loadP, loadQ, fx)
		if worst < tol {
			return s, nil
		}

		jac := mat.NewDense(m, m, nil)
		for j := 0; j < m; j++ {
			pert := s.clone()
			if j < f.n {
				pert.theta[j+1] += h
			} else {
				pert.v[j-f.n+1] += h
			}
			f.mismatch(pert, loadP, loadQ, fxh)
			for i := 0; i < m; i++ {
				jac.Set(i, j, (fxh[i]-fx[i])/h)
			}
		}

		rhs := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			rhs.SetVec(i, -fx[i])
		}

		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			// Singular Jacobian: the operating point is at or past the nose.
			return solution{}, errNotConverged
		}

		for j := 0; j < f.n; j++ {
			s.theta[j+1] += dx.AtVec(j)
		}
		for j := 0; j < f.n; j++ {
			s.v[j+1] += dx.AtVec(f.n + j)
			if s.v[j+1] <= 0 || math.IsNaN(s.v[j+1]) {
				return solution{}, errNotConverged
			}
		}
	}

	return solution{}, errNotConverged
}
