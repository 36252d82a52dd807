// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fixedpoint implements the stationary nonlin.Solver variant:
// a damped fixed-point iteration for systems 𝐆(𝐲) = 𝐲.
//
// The correction is the map displacement itself,
//
//	𝛅ₘ = 𝐆(𝐲ₘ) - 𝐲ₘ,  𝐲ₘ₊₁ = 𝐲ₘ + 𝛽·𝛅ₘ,  0 < 𝛽 ≤ 1
//
// so no linear solve is involved and the LSetup/LSolve capabilities do
// not apply. The undamped iteration (𝛽 = 1) converges whenever 𝐆 is a
// contraction; damping trades speed for a wider basin.
package fixedpoint

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nonlinear/nonlin"
)

// Config specifies a fixed-point solver.
type Config struct {
	// MaxIters bounds the iteration of one solve attempt.
	// Zero resolves to the default of 10.
	MaxIters int
	// Damping is the relaxation factor 𝛽 ∈ (0,1].
	// Zero resolves to 1 (undamped).
	Damping float64
}

const defaultMaxIters = 10

// Solver is the fixed-point implementation of nonlin.Solver.
type Solver struct {
	sys   nonlin.SysFn
	ctest nonlin.ConvTestFn

	maxIters int
	damping  float64

	gy     []float64 // 𝐆(𝐲) work vector
	delta  []float64 // applied correction 𝛽·(𝐆(𝐲)-𝐲)
	niters int
}

// New creates a fixed-point solver. The system and convergence-test
// callbacks must be bound before the first Solve.
func New(cfg Config) (*Solver, error) {
	switch {
	case cfg.MaxIters < 0:
		return nil, nonlin.ErrMaxIters
	case cfg.Damping < 0 || cfg.Damping > 1:
		return nil, errors.New("fixedpoint: damping must lie in (0,1]")
	}
	maxIters := cfg.MaxIters
	if maxIters == 0 {
		maxIters = defaultMaxIters
	}
	damping := cfg.Damping
	if damping == 0 {
		damping = 1
	}
	return &Solver{maxIters: maxIters, damping: damping}, nil
}

// Type reports nonlin.Stationary.
func (s *Solver) Type() nonlin.SolverType { return nonlin.Stationary }

// Init sizes the work vectors like tmpl and resets the iteration state.
func (s *Solver) Init(tmpl []float64) error {
	if len(tmpl) == 0 {
		return nonlin.ErrEmptyTemplate
	}
	if len(s.gy) != len(tmpl) {
		s.gy = make([]float64, len(tmpl))
		s.delta = make([]float64, len(tmpl))
	}
	s.niters = 0
	return nil
}

// Setup is a no-op: a stationary iteration has nothing to prepare.
func (s *Solver) Setup(y []float64, mem any) nonlin.Status { return nonlin.Success }

// Free releases the work vectors. Init must run again before any
// further Solve.
func (s *Solver) Free() {
	s.gy, s.delta = nil, nil
}

// Solve iterates the fixed-point map from the prediction y0 and leaves
// the solution in y. The callSetup flag is ignored: there is no linear
// solver to prepare. The convergence test sees the applied (damped)
// correction norm, so what it judges is exactly how far the iterate
// moved.
func (s *Solver) Solve(y0, y, w []float64, tol float64, callSetup bool, mem any) nonlin.Status {
	n := len(s.gy)
	switch {
	case n == 0 || len(y0) != n || len(y) != n || len(w) != n:
		return nonlin.IllegalInput
	case s.sys == nil || s.ctest == nil:
		return nonlin.IllegalInput
	}

	copy(y, y0)

	s.niters = 0
	for m := 0; ; {
		s.niters++

		if st := s.sys(y, s.gy, mem); st != nonlin.Success {
			if st.Fatal() {
				return nonlin.SysFail
			}
			return nonlin.SysRecoverable
		}

		// 𝛅 = 𝛽·(𝐆(𝐲) - 𝐲), applied in place.
		floats.SubTo(s.delta, s.gy, y)
		if s.damping != 1 {
			floats.Scale(s.damping, s.delta)
		}
		floats.Add(y, s.delta)

		delnrm := nonlin.WRMSNorm(s.delta, w)
		switch st := s.ctest(m, delnrm, tol, mem); st {
		case nonlin.Success:
			return nonlin.Success
		case nonlin.Continue:
		default:
			return st
		}

		if m++; m >= s.maxIters {
			return nonlin.ConvRecoverable
		}
	}
}

// SetSysFn binds the fixed-point map 𝐆.
func (s *Solver) SetSysFn(fn nonlin.SysFn) error {
	if fn == nil {
		return nonlin.ErrNilCallback
	}
	s.sys = fn
	return nil
}

// SetLSetupFn is not applicable to a stationary solver.
func (s *Solver) SetLSetupFn(nonlin.LSetupFn) error { return nonlin.ErrNotApplicable }

// SetLSolveFn is not applicable to a stationary solver.
func (s *Solver) SetLSolveFn(nonlin.LSolveFn) error { return nonlin.ErrNotApplicable }

// SetConvTestFn binds the convergence test.
func (s *Solver) SetConvTestFn(fn nonlin.ConvTestFn) error {
	if fn == nil {
		return nonlin.ErrNilCallback
	}
	s.ctest = fn
	return nil
}

// SetMaxIters bounds the iteration of one solve attempt.
func (s *Solver) SetMaxIters(maxIters int) error {
	if maxIters <= 0 {
		return nonlin.ErrMaxIters
	}
	s.maxIters = maxIters
	return nil
}

// NumIters reports the iteration count of the most recent Solve.
func (s *Solver) NumIters() int { return s.niters }

var _ nonlin.Solver = (*Solver)(nil)
