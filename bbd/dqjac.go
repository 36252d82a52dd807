// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbd

import (
	"math"

	"github.com/curioloop/nonlinear/nonlin"
)

// buildJacobian fills the band store with a forward difference-quotient
// approximation of the local Jacobian ∂𝐠/∂𝐲 at (t, y).
//
// The unknowns are colored by index modulo width = mldq+mudq+1: within
// one group no two unknowns can influence a shared output row inside
// the differencing band, so a single perturbed evaluation recovers one
// Jacobian column per group member. The whole band therefore costs
//
//	ngroups + 1 = 𝚖𝚒𝚗(width, n) + 1
//
// local evaluations regardless of n. Of each recovered column only the
// rows within the retained band [j-mu, j+ml] are stored; rows outside
// it are never computed.
//
// The perturbation of unknown j is
//
//	inc = relInc · 𝚖𝚊𝚡(|yⱼ|, 1/scaleⱼ)
//
// falling back to relInc·|yⱼ| for a zero scale component and to relInc
// itself when that too vanishes, so the quotient never divides by zero.
func (p *Precond) buildJacobian(t float64, y, yscale []float64) nonlin.Status {
	n := p.n

	// Baseline evaluation at the unperturbed y.
	copy(p.ytemp, y)
	if st := p.local(t, y, p.gbase); st != nonlin.Success {
		return localStatus(st)
	}

	width := p.mldq + p.mudq + 1
	ngroups := min(width, n)

	for group := 1; group <= ngroups; group++ {
		// Perturb every unknown of the group at once.
		for j := group - 1; j < n; j += width {
			p.ytemp[j] += p.increment(y[j], yscale[j])
		}

		if st := p.local(t, p.ytemp, p.gtemp); st != nonlin.Success {
			return localStatus(st)
		}

		// Restore the perturbed unknowns, then form and store the
		// difference quotients of the retained rows.
		for j := group - 1; j < n; j += width {
			p.ytemp[j] = y[j]
			incInv := 1 / p.increment(y[j], yscale[j])
			i1 := max(0, j-p.mu)
			i2 := min(j+p.ml, n-1)
			for i := i1; i <= i2; i++ {
				p.mat.Set(i, j, incInv*(p.gtemp[i]-p.gbase[i]))
			}
		}
	}

	p.nge += ngroups + 1
	return nonlin.Success
}

// increment computes the perturbation for one unknown.
func (p *Precond) increment(yj, wj float64) float64 {
	u := math.Abs(yj)
	if wj != 0 {
		u = math.Max(u, 1/math.Abs(wj))
	}
	if u == 0 {
		return p.relInc
	}
	return p.relInc * u
}

// localStatus normalizes a LocalFn callback code: the local function
// plays the system-function role of the shared table.
func localStatus(st nonlin.Status) nonlin.Status {
	if st.Fatal() {
		return nonlin.SysFail
	}
	return nonlin.SysRecoverable
}
