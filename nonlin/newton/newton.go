// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package newton implements the root-finding nonlin.Solver variant:
// an inexact Newton iteration for systems 𝐅(𝐲) = 0.
//
// Each iteration evaluates the residual, solves the linearized system
//
//	𝐉(𝐲ₘ)·𝛅ₘ = -𝐅(𝐲ₘ)
//
// through the bound LSolveFn (typically a preconditioned Krylov
// method), updates 𝐲ₘ₊₁ = 𝐲ₘ + 𝛅ₘ, and asks the bound convergence test
// to judge ‖𝛅ₘ‖. How 𝐉 is formed is entirely the linear solver's
// business: the solver only decides when the LSetupFn must refresh it.
package newton

import (
	"os"

	"github.com/curioloop/nonlinear/nonlin"
)

// Default iteration limit of a single Newton solve. The outer step
// controller is expected to shrink its step and retry on
// non-convergence, so the limit is deliberately small.
const defaultMaxIters = 3

// Config specifies a Newton solver.
type Config struct {
	// MaxIters bounds the inner iteration of one solve attempt.
	// Zero resolves to the default of 3.
	MaxIters int
	// ForceSetup makes every iteration refresh the linear solver,
	// turning the method into a full Newton iteration. The default
	// is the modified iteration where the setup runs only when the
	// caller requests it or a stale Jacobian is suspected.
	ForceSetup bool
	// Log receives optional iteration traces.
	Log *Logger
}

// Solver is the Newton implementation of nonlin.Solver.
type Solver struct {
	sys    nonlin.SysFn
	lsetup nonlin.LSetupFn
	lsolve nonlin.LSolveFn
	ctest  nonlin.ConvTestFn

	maxIters int
	force    bool
	log      Logger

	delta  []float64 // correction work vector
	jcur   bool      // linear solver data matches the current iterate
	niters int       // iterations of the most recent solve
}

// New creates a Newton solver. The system, linear-solve and
// convergence-test callbacks must be bound before the first Solve.
func New(cfg Config) (*Solver, error) {
	if cfg.MaxIters < 0 {
		return nil, nonlin.ErrMaxIters
	}
	maxIters := cfg.MaxIters
	if maxIters == 0 {
		maxIters = defaultMaxIters
	}

	log := Logger{Level: LogNoop}
	if cfg.Log != nil {
		log = *cfg.Log
	}
	if log.Msg == nil {
		log.Msg = os.Stdout
	}

	return &Solver{
		maxIters: maxIters,
		force:    cfg.ForceSetup,
		log:      log,
	}, nil
}

// Type reports nonlin.RootFind.
func (s *Solver) Type() nonlin.SolverType { return nonlin.RootFind }

// Init sizes the correction work vector like tmpl and resets the
// iteration state. It must run before the first Solve and after any
// change of problem size.
func (s *Solver) Init(tmpl []float64) error {
	if len(tmpl) == 0 {
		return nonlin.ErrEmptyTemplate
	}
	if len(s.delta) != len(tmpl) {
		s.delta = make([]float64, len(tmpl))
	}
	s.jcur = false
	s.niters = 0
	return nil
}

// Free releases the work vector. Init must run again before any
// further Solve.
func (s *Solver) Free() {
	s.delta = nil
	s.jcur = false
}

// Setup evaluates the residual at y and runs the bound LSetupFn with a
// full rebuild requested. It is the hook an integrator uses to force a
// preconditioner build before the iteration starts; without a bound
// LSetupFn it is a no-op.
func (s *Solver) Setup(y []float64, mem any) nonlin.Status {
	if s.lsetup == nil {
		return nonlin.Success
	}
	if s.sys == nil || len(s.delta) != len(y) {
		return nonlin.IllegalInput
	}
	if st := s.sys(y, s.delta, mem); st != nonlin.Success {
		return sysStatus(st)
	}
	jcur, st := s.lsetup(y, s.delta, true, mem)
	if st != nonlin.Success {
		return lsetupStatus(st)
	}
	s.jcur = jcur
	return nonlin.Success
}

// SetSysFn binds the residual function.
func (s *Solver) SetSysFn(fn nonlin.SysFn) error {
	if fn == nil {
		return nonlin.ErrNilCallback
	}
	s.sys = fn
	return nil
}

// SetLSetupFn binds the linear setup function. A nil setup is legal:
// the linear solver is then assumed to need no preparation.
func (s *Solver) SetLSetupFn(fn nonlin.LSetupFn) error {
	s.lsetup = fn
	return nil
}

// SetLSolveFn binds the linear solve function.
func (s *Solver) SetLSolveFn(fn nonlin.LSolveFn) error {
	if fn == nil {
		return nonlin.ErrNilCallback
	}
	s.lsolve = fn
	return nil
}

// SetConvTestFn binds the convergence test.
func (s *Solver) SetConvTestFn(fn nonlin.ConvTestFn) error {
	if fn == nil {
		return nonlin.ErrNilCallback
	}
	s.ctest = fn
	return nil
}

// SetMaxIters bounds the inner iteration of one solve attempt.
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

// sysStatus normalizes a SysFn callback code onto the shared table.
func sysStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.SysFail
	}
	return nonlin.SysRecoverable
}

// lsetupStatus normalizes an LSetupFn callback code.
func lsetupStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.LSetupFail
	}
	return nonlin.LSetupRecoverable
}

// lsolveStatus normalizes an LSolveFn callback code.
func lsolveStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.LSolveFail
	}
	return nonlin.LSolveRecoverable
}
