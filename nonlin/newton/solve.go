// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newton

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nonlinear/nonlin"
)

// Solve computes the root of 𝐅(𝐲) = 0 starting from the prediction y0
// and leaves the solution in y.
//
// The outer loop makes solve attempts: each attempt evaluates the
// residual at the prediction, optionally refreshes the linear solver,
// and runs the inner Newton iteration
//
//	solve 𝐉·𝛅ₘ = -𝐅(𝐲ₘ), update 𝐲ₘ₊₁ = 𝐲ₘ + 𝛅ₘ, test ‖𝛅ₘ‖
//
// until the convergence test reports Success, a callback fails, or
// MaxIters is exhausted (ConvRecoverable). When an attempt fails
// recoverably while the Jacobian data was not current, one further
// attempt is made with a forced fresh setup before the failure is
// surfaced: a stale linearization is the most common cause of a
// convergence failure and rebuilding it is far cheaper than making the
// caller shrink its step.
//
// The convergence test sees the inner iteration index m starting at 0;
// a solve converging on the very first test reports NumIters() == 1.
func (s *Solver) Solve(y0, y, w []float64, tol float64, callSetup bool, mem any) nonlin.Status {
	n := len(s.delta)
	switch {
	case n == 0 || len(y0) != n || len(y) != n || len(w) != n:
		return nonlin.IllegalInput
	case s.sys == nil || s.lsolve == nil || s.ctest == nil:
		return nonlin.IllegalInput
	}

	// Assume the current Jacobian data is usable until an attempt
	// fails with it.
	jbad := false
	callSetup = callSetup || s.force

	s.niters = 0
	for {
		// Residual at the prediction.
		if st := s.sys(y0, s.delta, mem); st != nonlin.Success {
			return sysStatus(st)
		}

		if callSetup && s.lsetup != nil {
			jcur, st := s.lsetup(y0, s.delta, jbad, mem)
			if st != nonlin.Success {
				return lsetupStatus(st)
			}
			s.jcur = jcur
		}

		// Load the prediction into the iterate.
		copy(y, y0)

		st := s.iterate(y, w, tol, mem)
		if st == nonlin.Success {
			return nonlin.Success
		}

		// A recoverable failure with stale Jacobian data gets one
		// retry with a forced rebuild.
		if st.Recoverable() && !s.jcur && !jbad && s.lsetup != nil {
			callSetup, jbad = true, true
			if s.log.enable(LogSolve) {
				s.log.log("Retrying with a fresh linear setup after status %q.\n", st)
			}
			continue
		}
		if s.log.enable(LogSolve) {
			s.log.log("Solve failed after %d iteration(s): %q.\n", s.niters, st)
		}
		return st
	}
}

// iterate runs the inner Newton loop on the iterate y. On entry
// s.delta holds the residual at y.
func (s *Solver) iterate(y, w []float64, tol float64, mem any) nonlin.Status {
	for m := 0; ; {
		s.niters++

		// Full Newton refreshes the linearization at every iterate.
		// The first iterate was already set up by the caller loop.
		if s.force && m > 0 && s.lsetup != nil {
			jcur, st := s.lsetup(y, s.delta, true, mem)
			if st != nonlin.Success {
				return lsetupStatus(st)
			}
			s.jcur = jcur
		}

		// Negate the residual to form the right-hand side, then solve
		// for the correction in place.
		floats.Scale(-1, s.delta)
		if st := s.lsolve(y, s.delta, mem); st != nonlin.Success {
			return lsolveStatus(st)
		}

		floats.Add(y, s.delta)

		delnrm := nonlin.WRMSNorm(s.delta, w)
		if s.log.enable(LogIter) {
			s.log.log("At iterate %5d    ‖δ‖= %12.5e\n", m, delnrm)
		}

		switch st := s.ctest(m, delnrm, tol, mem); st {
		case nonlin.Success:
			// The solution moved off the setup point.
			s.jcur = false
			return nonlin.Success
		case nonlin.Continue:
		default:
			return st
		}

		if m++; m >= s.maxIters {
			return nonlin.ConvRecoverable
		}

		// Residual at the updated iterate for the next correction.
		if st := s.sys(y, s.delta, mem); st != nonlin.Success {
			return sysStatus(st)
		}
	}
}
