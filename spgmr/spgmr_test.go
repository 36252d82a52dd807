// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgmr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nonlinear/bbd"
	"github.com/curioloop/nonlinear/nonlin"
	"github.com/curioloop/nonlinear/spgmr"
)

// triangle operator A = 𝚝𝚛𝚒𝚍𝚒𝚊𝚐(-1, 3, -1), diagonally dominant.
func triMatVec(v, av []float64) nonlin.Status {
	n := len(v)
	for i := 0; i < n; i++ {
		av[i] = 3 * v[i]
		if i > 0 {
			av[i] -= v[i-1]
		}
		if i < n-1 {
			av[i] -= v[i+1]
		}
	}
	return nonlin.Success
}

func residualNorm(atimes spgmr.AtimesFn, x, b []float64) float64 {
	r := make([]float64, len(b))
	atimes(x, r)
	floats.SubTo(r, b, r)
	return floats.Norm(r, 2)
}

func TestConfigValidation(t *testing.T) {
	atimes := spgmr.AtimesFn(triMatVec)
	cases := []spgmr.Config{
		{N: 0, Atimes: atimes},
		{N: 5},
		{N: 5, Atimes: atimes, KrylovDim: -1},
		{N: 5, Atimes: atimes, KrylovDim: 6},
		{N: 5, Atimes: atimes, MaxRestarts: -1},
		{N: 5, Atimes: atimes, PrecSetup: func() nonlin.Status { return nonlin.Success }},
	}
	for i, cfg := range cases {
		_, err := spgmr.New(cfg)
		require.Error(t, err, "case %d", i)
	}
	_, err := spgmr.New(spgmr.Config{N: 5, Atimes: atimes})
	require.NoError(t, err)
}

func TestSolveIdentity(t *testing.T) {
	const n = 8
	s, err := spgmr.New(spgmr.Config{
		N: n,
		Atimes: func(v, av []float64) nonlin.Status {
			copy(av, v)
			return nonlin.Success
		},
	})
	require.NoError(t, err)

	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i) - 3.5
	}
	x := make([]float64, n)
	res, st := s.Solve(x, b, 1e-12)
	require.Equal(t, nonlin.Success, st)
	require.True(t, res.Converged)
	require.Equal(t, 1, res.Iters)
	for i := range x {
		require.InDelta(t, b[i], x[i], 1e-12)
	}
}

func TestSolveTridiagonal(t *testing.T) {
	const n = 30
	s, err := spgmr.New(spgmr.Config{
		N:           n,
		KrylovDim:   10,
		MaxRestarts: 5,
		Atimes:      triMatVec,
	})
	require.NoError(t, err)

	want := make([]float64, n)
	for i := range want {
		want[i] = math.Sin(float64(i + 1))
	}
	b := make([]float64, n)
	triMatVec(want, b)

	x := make([]float64, n)
	res, st := s.Solve(x, b, 1e-10)
	require.Equal(t, nonlin.Success, st)
	require.True(t, res.Converged)
	// The basis must grow past the first vector: a cycle that cuts
	// off after one iteration cannot solve this system.
	require.Greater(t, res.Iters, 1)
	require.LessOrEqual(t, residualNorm(triMatVec, x, b), 1e-9)
	for i := range x {
		require.InDelta(t, want[i], x[i], 1e-8)
	}
}

// A nonzero initial guess advances from where it stands.
func TestSolveWarmStart(t *testing.T) {
	const n = 12
	s, err := spgmr.New(spgmr.Config{N: n, KrylovDim: n, Atimes: triMatVec})
	require.NoError(t, err)

	want := make([]float64, n)
	for i := range want {
		want[i] = 1 / float64(i+1)
	}
	b := make([]float64, n)
	triMatVec(want, b)

	x := append([]float64(nil), want...)
	x[0] += 0.25 // perturbed exact solution
	res, st := s.Solve(x, b, 1e-10)
	require.Equal(t, nonlin.Success, st)
	require.True(t, res.Converged)
	for i := range x {
		require.InDelta(t, want[i], x[i], 1e-8)
	}
}

// An exhausted Krylov space without restarts is a recoverable stall,
// and the partial iterate is still returned.
func TestSolveStall(t *testing.T) {
	const n = 30
	s, err := spgmr.New(spgmr.Config{N: n, KrylovDim: 2, Atimes: triMatVec})
	require.NoError(t, err)

	b := make([]float64, n)
	b[n/2] = 1
	x := make([]float64, n)
	res, st := s.Solve(x, b, 1e-14)
	require.Equal(t, nonlin.LSolveRecoverable, st)
	require.False(t, res.Converged)
	require.Equal(t, 2, res.Iters)
	require.Less(t, residualNorm(triMatVec, x, b), 1.0) // progress was made
}

func TestCallbackFailures(t *testing.T) {
	const n = 6
	b := ones(n)

	s, err := spgmr.New(spgmr.Config{
		N: n,
		Atimes: func(v, av []float64) nonlin.Status {
			return nonlin.Status(3)
		},
	})
	require.NoError(t, err)
	_, st := s.Solve(make([]float64, n), b, 1e-10)
	require.Equal(t, nonlin.LSolveRecoverable, st)

	s, err = spgmr.New(spgmr.Config{
		N:      n,
		Atimes: triMatVec,
		PrecSetup: func() nonlin.Status {
			return nonlin.Status(-5)
		},
		PrecSolve: func(r []float64) nonlin.Status { return nonlin.Success },
	})
	require.NoError(t, err)
	_, st = s.Solve(make([]float64, n), b, 1e-10)
	require.Equal(t, nonlin.LSetupFail, st)
}

// With the band preconditioner built from the operator itself, GMRES
// must converge almost immediately, and far faster than unpreconditioned.
func TestPreconditionedConvergence(t *testing.T) {
	const n = 64

	prec, err := bbd.New(bbd.Config{
		LocalSize:      n,
		UpperBandwidth: 1, LowerBandwidth: 1,
		DQUpperBandwidth: 1, DQLowerBandwidth: 1,
		Local: func(_ float64, y, g []float64) nonlin.Status {
			return triMatVec(y, g)
		},
	})
	require.NoError(t, err)

	b := make([]float64, n)
	for i := range b {
		b[i] = math.Cos(float64(i))
	}
	w := ones(n)

	bare, err := spgmr.New(spgmr.Config{N: n, KrylovDim: 30, MaxRestarts: 10, Atimes: triMatVec})
	require.NoError(t, err)
	x := make([]float64, n)
	resBare, st := bare.Solve(x, b, 1e-10)
	require.Equal(t, nonlin.Success, st)

	pre, err := spgmr.New(spgmr.Config{
		N: n, KrylovDim: 30, MaxRestarts: 10,
		Atimes: triMatVec,
		PrecSetup: func() nonlin.Status {
			return prec.Precondition(0, make([]float64, n), w)
		},
		PrecSolve: prec.Apply,
	})
	require.NoError(t, err)
	clear(x)
	resPre, st := pre.Solve(x, b, 1e-10)
	require.Equal(t, nonlin.Success, st)
	require.True(t, resPre.Converged)
	require.Greater(t, resPre.PrecSolves, 0)
	require.Less(t, resPre.Iters, resBare.Iters)
	require.LessOrEqual(t, resPre.Iters, 3)
	require.LessOrEqual(t, residualNorm(triMatVec, x, b), 1e-9)
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
