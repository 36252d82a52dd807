// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nonlin defines the contract shared by the iterative nonlinear
// solvers in this module.
//
// A nonlinear system is posed in one of two forms:
//
//   - root finding: 𝐅(𝐲) = 0, solved by driving the residual 𝐅 to zero
//   - stationary: 𝐆(𝐲) = 𝐲, solved by iterating 𝐲 ← 𝐆(𝐲)
//
// A Solver does not know how either function is evaluated, how the
// linearized correction equations are solved, or what "converged"
// means to its caller: all four concerns enter through callbacks bound
// with the Set* methods before the first Solve. The host (typically a
// time integrator) supplies them and may rebind them between solves.
//
// Numerical outcomes travel as Status codes so the caller can tell a
// recoverable failure (retry with a smaller step or a fresh
// linearization) from a fatal one (abort the attempt). Illegal input
// is caught eagerly at construction or Init time and reported as an
// ordinary error, never as a Status.
package nonlin

// SolverType identifies which problem form a Solver expects its SysFn
// to evaluate.
type SolverType int

const (
	// RootFind solvers drive a residual 𝐅(𝐲) toward zero.
	RootFind SolverType = iota
	// Stationary solvers iterate a fixed-point map 𝐆(𝐲).
	Stationary
)

// SysFn evaluates the problem function at y: the residual 𝐅(𝐲) for a
// RootFind solver, or the fixed-point map 𝐆(𝐲) for a Stationary one.
// The result is stored in f. The mem argument is the opaque context the
// caller handed to Solve.
type SysFn func(y, f []float64, mem any) Status

// LSetupFn prepares the linear solver for a sequence of corrections at
// the iterate y with residual f. When jbad is true the caller believes
// the current Jacobian data is stale and a full rebuild is required.
// The returned jcur reports whether the linear solver data now matches
// the current iterate.
type LSetupFn func(y, f []float64, jbad bool, mem any) (jcur bool, st Status)

// LSolveFn solves the linearized correction equation at the iterate y,
// overwriting the right-hand side b with the correction.
type LSolveFn func(y, b []float64, mem any) Status

// ConvTestFn judges convergence after inner iteration m produced a
// correction of weighted norm delnrm against tolerance tol. It returns
// Success when converged, Continue to keep iterating, or any other
// Status to abort with that code.
type ConvTestFn func(m int, delnrm, tol float64, mem any) Status

// Solver is an iterative nonlinear solver over one of the two problem
// forms. A Solver instance is owned by a single logical solve context:
// no method may be invoked concurrently with an in-flight Solve, and
// the Set* methods are legal only before or between solves.
type Solver interface {
	// Type reports the problem form. Pure, no side effects.
	Type() SolverType

	// Init sizes the internal work vectors like tmpl and resets the
	// iteration counters. It must be called before the first Solve and
	// again after any change of problem size.
	Init(tmpl []float64) error

	// Setup is an optional pre-solve hook, e.g. to force a
	// preconditioner rebuild before the iteration starts.
	Setup(y []float64, mem any) Status

	// Solve runs the outer iteration from the prediction y0, leaving
	// the solution in y. The weight vector w and tolerance tol are
	// passed through to the convergence test. When callSetup is true
	// the first iteration calls the bound LSetupFn unconditionally.
	Solve(y0, y, w []float64, tol float64, callSetup bool, mem any) Status

	// Free releases the internal work vectors. The Solver must be
	// re-initialized before any further Solve.
	Free()

	SetSysFn(SysFn) error
	SetLSetupFn(LSetupFn) error
	SetLSolveFn(LSolveFn) error
	SetConvTestFn(ConvTestFn) error
	SetMaxIters(int) error

	// NumIters reports the iteration count of the most recent Solve.
	NumIters() int
}
