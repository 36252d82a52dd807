// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spgmr implements a preconditioned restarted GMRES iteration
// for linear systems 𝐀𝐱 = 𝐛.
//
// GMRES builds an orthonormal Krylov basis by modified Gram–Schmidt
// and minimizes the residual over the spanned subspace through a QR
// update of the Hessenberg matrix by Givens rotations. The operator 𝐀
// enters only as a matrix-vector product callback; right
// preconditioning hooks accept a setup/solve callback pair, so the
// iterate actually produced solves 𝐀𝐏⁻¹·(𝐏𝐱) = 𝐛 with the same
// solution 𝐱. A band-block-diagonal Precond.Apply plugs directly into
// the PrecSolve slot.
package spgmr

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nonlinear/nonlin"
)

// AtimesFn computes the matrix-vector product av = 𝐀·v.
type AtimesFn func(v, av []float64) nonlin.Status

// PrecSetupFn prepares the preconditioner, e.g. rebuilds and factors
// an approximate Jacobian. Called once per Solve, before the first
// iteration.
type PrecSetupFn func() nonlin.Status

// PrecSolveFn solves 𝐏·z = r in place, overwriting r with z.
type PrecSolveFn func(r []float64) nonlin.Status

// Config specifies a GMRES solver.
type Config struct {
	// N is the problem dimension.
	N int
	// KrylovDim is the maximum basis size before a restart.
	// Zero resolves to 𝚖𝚒𝚗(5, N).
	KrylovDim int
	// MaxRestarts bounds the restarts after the first pass.
	MaxRestarts int
	// Atimes is the operator product. Required.
	Atimes AtimesFn
	// PrecSetup and PrecSolve hook in an optional right
	// preconditioner. PrecSolve alone is legal (a preconditioner
	// needing no per-solve setup); PrecSetup alone is not.
	PrecSetup PrecSetupFn
	PrecSolve PrecSolveFn
}

// Result carries the outcome of one Solve.
type Result struct {
	// Converged reports whether the residual norm reached the
	// tolerance.
	Converged bool
	// ResNorm is the final L2 residual norm.
	ResNorm float64
	// Iters is the total number of Krylov iterations across restarts.
	Iters int
	// PrecSolves counts the preconditioner applications.
	PrecSolves int
}

// Solver is a restarted GMRES solver with preallocated workspace.
// A Solver is owned by one solve context; Solve is not reentrant.
type Solver struct {
	n, maxl  int
	restarts int

	atimes AtimesFn
	psetup PrecSetupFn
	psolve PrecSolveFn

	v     [][]float64 // maxl+1 Krylov basis vectors
	hes   [][]float64 // (maxl+1)×maxl Hessenberg matrix
	givc  []float64   // Givens rotation cosines
	givs  []float64   // Givens rotation sines
	g     []float64   // rotated residual vector, length maxl+1
	yg    []float64   // least-squares solution, length maxl
	vtemp []float64
}

// New validates cfg and preallocates the Krylov workspace:
// (maxl+1)·(n+maxl+3) real words in total.
func New(cfg Config) (*Solver, error) {
	switch {
	case cfg.N <= 0:
		return nil, errors.New("spgmr: dimension must greater than 0")
	case cfg.Atimes == nil:
		return nil, errors.New("spgmr: matrix-vector product is required")
	case cfg.KrylovDim < 0 || cfg.KrylovDim > cfg.N:
		return nil, errors.New("spgmr: krylov dimension must lie in [1,n]")
	case cfg.MaxRestarts < 0:
		return nil, errors.New("spgmr: max restarts must not less than 0")
	case cfg.PrecSetup != nil && cfg.PrecSolve == nil:
		return nil, errors.New("spgmr: preconditioner setup without solve")
	}

	maxl := cfg.KrylovDim
	if maxl == 0 {
		maxl = min(5, cfg.N)
	}

	s := &Solver{
		n: cfg.N, maxl: maxl,
		restarts: cfg.MaxRestarts,
		atimes:   cfg.Atimes,
		psetup:   cfg.PrecSetup,
		psolve:   cfg.PrecSolve,
	}

	s.v = make([][]float64, maxl+1)
	for i := range s.v {
		s.v[i] = make([]float64, cfg.N)
	}
	s.hes = make([][]float64, maxl+1)
	for i := range s.hes {
		s.hes[i] = make([]float64, maxl)
	}
	s.givc = make([]float64, maxl)
	s.givs = make([]float64, maxl)
	s.g = make([]float64, maxl+1)
	s.yg = make([]float64, maxl)
	s.vtemp = make([]float64, cfg.N)
	return s, nil
}

// Solve runs the restarted GMRES iteration on 𝐀𝐱 = 𝐛 until the L2
// residual norm falls below tol, the Krylov space is exhausted across
// all restarts, or a callback fails. x holds the initial guess on
// entry (a zero slice is the usual choice) and the final iterate on
// return, whatever the status.
//
// A solve that stalls short of tol is recoverable: the outer nonlinear
// iteration can still make progress with the partial correction or
// retry with a rebuilt preconditioner.
func (s *Solver) Solve(x, b []float64, tol float64) (Result, nonlin.Status) {
	var res Result
	if len(x) != s.n || len(b) != s.n {
		return res, nonlin.IllegalInput
	}

	if s.psetup != nil {
		if st := s.psetup(); st != nonlin.Success {
			return res, lsetupStatus(st)
		}
	}

	// Initial residual r = b - A·x, skipping the product for the
	// usual all-zero guess.
	r := s.v[0]
	if zeroed(x) {
		copy(r, b)
	} else {
		if st := s.atimes(x, r); st != nonlin.Success {
			return res, lsolveStatus(st)
		}
		floats.SubTo(r, b, r)
	}

	res.ResNorm = floats.Norm(r, 2)
	if res.ResNorm <= tol {
		res.Converged = true
		return res, nonlin.Success
	}

	for restart := 0; restart <= s.restarts; restart++ {
		st := s.cycle(x, &res, tol)
		if st != nonlin.Success {
			return res, st
		}
		if res.Converged {
			return res, nonlin.Success
		}
		if restart < s.restarts {
			// True residual for the next cycle.
			if st := s.atimes(x, s.v[0]); st != nonlin.Success {
				return res, lsolveStatus(st)
			}
			floats.SubTo(s.v[0], b, s.v[0])
			res.ResNorm = floats.Norm(s.v[0], 2)
			if res.ResNorm <= tol {
				res.Converged = true
				return res, nonlin.Success
			}
		}
	}
	return res, nonlin.LSolveRecoverable
}

// cycle runs one Krylov pass of up to maxl iterations. On entry v[0]
// holds the unnormalized residual and res.ResNorm its norm; on return
// x has been advanced by the subspace minimizer.
func (s *Solver) cycle(x []float64, res *Result, tol float64) nonlin.Status {
	beta := res.ResNorm
	floats.Scale(1/beta, s.v[0])

	for i := range s.hes {
		clear(s.hes[i])
	}
	clear(s.g)
	s.g[0] = beta

	rho := beta
	krydim := 0
	for l := 0; l < s.maxl; l++ {
		res.Iters++
		krydim = l + 1

		// New basis candidate: v[l+1] = A·P⁻¹·v[l].
		vl := s.v[l]
		copy(s.vtemp, vl)
		if s.psolve != nil {
			if st := s.psolve(s.vtemp); st != nonlin.Success {
				return lsolveStatus(st)
			}
			res.PrecSolves++
		}
		if st := s.atimes(s.vtemp, s.v[l+1]); st != nonlin.Success {
			return lsolveStatus(st)
		}

		// Modified Gram-Schmidt orthogonalization.
		w := s.v[l+1]
		for k := 0; k <= l; k++ {
			s.hes[k][l] = floats.Dot(w, s.v[k])
			floats.AddScaled(w, -s.hes[k][l], s.v[k])
		}
		hsub := floats.Norm(w, 2)
		s.hes[l+1][l] = hsub

		// qrUpdate rotates the subdiagonal away, so the breakdown and
		// normalization checks below must use the saved norm.
		rho = s.qrUpdate(l)
		res.ResNorm = rho

		if hsub != 0 {
			floats.Scale(1/hsub, w)
		}
		if rho <= tol || hsub == 0 {
			// Converged, or the Krylov space is an invariant
			// subspace and cannot grow further.
			break
		}
	}

	// Minimizer y of ‖g - H·y‖ by back substitution on the rotated
	// triangular system, then x += P⁻¹·(V·y).
	for k := krydim - 1; k >= 0; k-- {
		sum := s.g[k]
		for j := k + 1; j < krydim; j++ {
			sum -= s.hes[k][j] * s.yg[j]
		}
		s.yg[k] = sum / s.hes[k][k]
	}
	clear(s.vtemp)
	for k := 0; k < krydim; k++ {
		floats.AddScaled(s.vtemp, s.yg[k], s.v[k])
	}
	if s.psolve != nil {
		if st := s.psolve(s.vtemp); st != nonlin.Success {
			return lsolveStatus(st)
		}
		res.PrecSolves++
	}
	floats.Add(x, s.vtemp)

	res.Converged = rho <= tol
	return nonlin.Success
}

// qrUpdate applies the accumulated Givens rotations to the new
// Hessenberg column l, generates the rotation annihilating its
// subdiagonal and rotates the residual vector g, returning the new
// least-squares residual norm |g[l+1]|.
func (s *Solver) qrUpdate(l int) float64 {
	for k := 0; k < l; k++ {
		h0, h1 := s.hes[k][l], s.hes[k+1][l]
		s.hes[k][l] = s.givc[k]*h0 - s.givs[k]*h1
		s.hes[k+1][l] = s.givs[k]*h0 + s.givc[k]*h1
	}

	// Generate the rotation zeroing hes[l+1][l], avoiding overflow in
	// the hypotenuse the LAPACK way.
	a, b := s.hes[l][l], s.hes[l+1][l]
	var c, sn float64
	switch {
	case b == 0:
		c, sn = 1, 0
	case math.Abs(b) >= math.Abs(a):
		t := a / b
		sn = -1 / math.Sqrt(1+t*t)
		c = -sn * t
	default:
		t := b / a
		c = 1 / math.Sqrt(1+t*t)
		sn = -c * t
	}
	s.givc[l], s.givs[l] = c, sn
	s.hes[l][l] = c*a - sn*b
	s.hes[l+1][l] = 0

	g0, g1 := s.g[l], s.g[l+1]
	s.g[l] = c*g0 - sn*g1
	s.g[l+1] = sn*g0 + c*g1
	return math.Abs(s.g[l+1])
}

func zeroed(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}

// lsetupStatus normalizes a PrecSetupFn callback code.
func lsetupStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.LSetupFail
	}
	return nonlin.LSetupRecoverable
}

// lsolveStatus normalizes an Atimes or PrecSolve callback code.
func lsolveStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.LSolveFail
	}
	return nonlin.LSolveRecoverable
}
