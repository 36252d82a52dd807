// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fixedpoint_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/nonlinear/nonlin"
	"github.com/curioloop/nonlinear/nonlin/fixedpoint"
)

func wrmsTest(m int, delnrm, tol float64, mem any) nonlin.Status {
	if delnrm <= tol {
		return nonlin.Success
	}
	return nonlin.Continue
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func TestConfigAndSetters(t *testing.T) {
	_, err := fixedpoint.New(fixedpoint.Config{MaxIters: -1})
	require.ErrorIs(t, err, nonlin.ErrMaxIters)
	_, err = fixedpoint.New(fixedpoint.Config{Damping: 1.5})
	require.Error(t, err)
	_, err = fixedpoint.New(fixedpoint.Config{Damping: -0.1})
	require.Error(t, err)

	s, err := fixedpoint.New(fixedpoint.Config{})
	require.NoError(t, err)
	require.Equal(t, nonlin.Stationary, s.Type())

	// A stationary solver has no linear-solver capabilities.
	require.ErrorIs(t, s.SetLSetupFn(nil), nonlin.ErrNotApplicable)
	require.ErrorIs(t, s.SetLSolveFn(nil), nonlin.ErrNotApplicable)
	require.ErrorIs(t, s.SetSysFn(nil), nonlin.ErrNilCallback)
	require.ErrorIs(t, s.SetMaxIters(-3), nonlin.ErrMaxIters)
	require.ErrorIs(t, s.Init(nil), nonlin.ErrEmptyTemplate)
}

// Componentwise 𝐆(y) = cos(y) is a contraction on ℝ: the iteration
// must settle on the Dottie number.
func TestSolveContraction(t *testing.T) {
	const dottie = 0.7390851332151607

	s, err := fixedpoint.New(fixedpoint.Config{MaxIters: 100})
	require.NoError(t, err)
	require.NoError(t, s.Init(make([]float64, 3)))

	require.NoError(t, s.SetSysFn(func(y, g []float64, mem any) nonlin.Status {
		for i, v := range y {
			g[i] = math.Cos(v)
		}
		return nonlin.Success
	}))
	require.NoError(t, s.SetConvTestFn(wrmsTest))

	y0 := []float64{0, 0.5, 1}
	y, w := make([]float64, 3), ones(3)
	require.Equal(t, nonlin.Success, s.Solve(y0, y, w, 1e-10, false, nil))
	for _, v := range y {
		require.InDelta(t, dottie, v, 1e-9)
	}
	require.Greater(t, s.NumIters(), 1)
}

// Damping slows the iteration but must still converge, and the test
// must see the damped correction, not the raw displacement.
func TestSolveDamped(t *testing.T) {
	s, err := fixedpoint.New(fixedpoint.Config{MaxIters: 500, Damping: 0.5})
	require.NoError(t, err)
	require.NoError(t, s.Init(make([]float64, 1)))

	var lastDel float64
	require.NoError(t, s.SetSysFn(func(y, g []float64, mem any) nonlin.Status {
		g[0] = math.Cos(y[0])
		return nonlin.Success
	}))
	require.NoError(t, s.SetConvTestFn(func(m int, delnrm, tol float64, mem any) nonlin.Status {
		lastDel = delnrm
		return wrmsTest(m, delnrm, tol, mem)
	}))

	y0, y, w := []float64{0}, make([]float64, 1), ones(1)

	// First correction is 𝛽·(cos(0) - 0) = 0.5, observable on a
	// one-iteration budget.
	require.NoError(t, s.SetMaxIters(1))
	require.Equal(t, nonlin.ConvRecoverable, s.Solve(y0, y, w, 1e-10, false, nil))
	require.InDelta(t, 0.5, lastDel, 1e-15)

	require.NoError(t, s.SetMaxIters(500))
	require.Equal(t, nonlin.Success, s.Solve(y0, y, w, 1e-10, false, nil))
	require.InDelta(t, 0.7390851332151607, y[0], 1e-8)
}

func TestSolveIterationLimit(t *testing.T) {
	const maxIters = 6
	s, err := fixedpoint.New(fixedpoint.Config{MaxIters: maxIters})
	require.NoError(t, err)
	require.NoError(t, s.Init(make([]float64, 1)))

	require.NoError(t, s.SetSysFn(func(y, g []float64, mem any) nonlin.Status {
		g[0] = y[0] + 1 // no fixed point at all
		return nonlin.Success
	}))
	require.NoError(t, s.SetConvTestFn(wrmsTest))

	y0, y, w := []float64{0}, make([]float64, 1), ones(1)
	require.Equal(t, nonlin.ConvRecoverable, s.Solve(y0, y, w, 1e-10, false, nil))
	require.Equal(t, maxIters, s.NumIters())
}

func TestSolveCallbackFailures(t *testing.T) {
	s, err := fixedpoint.New(fixedpoint.Config{})
	require.NoError(t, err)
	require.NoError(t, s.Init(make([]float64, 1)))
	require.NoError(t, s.SetConvTestFn(wrmsTest))

	y0, y, w := []float64{0}, make([]float64, 1), ones(1)

	// Missing system function.
	require.Equal(t, nonlin.IllegalInput, s.Solve(y0, y, w, 1e-10, false, nil))

	require.NoError(t, s.SetSysFn(func(y, g []float64, mem any) nonlin.Status {
		return nonlin.Status(7) // positive: recoverable
	}))
	require.Equal(t, nonlin.SysRecoverable, s.Solve(y0, y, w, 1e-10, false, nil))

	require.NoError(t, s.SetSysFn(func(y, g []float64, mem any) nonlin.Status {
		return nonlin.Status(-7) // negative: fatal
	}))
	require.Equal(t, nonlin.SysFail, s.Solve(y0, y, w, 1e-10, false, nil))
}
