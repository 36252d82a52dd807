// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bbd implements a band-block-diagonal preconditioner for
// Krylov solves inside a nonlinear iteration.
//
// Each process of a distributed problem owns one diagonal block of the
// global Jacobian and approximates it by a band matrix: the block is
// filled with grouped difference quotients of a cheap local function
// 𝐠(𝐲) ≈ 𝐅(𝐲), LU-factored in place, and later applied as a backsolve
// whenever the Krylov method asks for a preconditioner solve. With a
// single process the result is simply a banded preconditioner.
//
// The cross-partition coupling enters exclusively through the CommFn
// callback, invoked once per rebuild before the local function is
// evaluated. Everything else is process-local, which is the point: the
// preconditioner trades global accuracy for an embarrassingly local,
// cheaply factorable approximation.
package bbd

import (
	"math"

	"github.com/curioloop/nonlinear/band"
	"github.com/curioloop/nonlinear/nonlin"
)

// LocalFn computes the local block 𝐠(t,𝐲) of the approximating
// function into g. It must tolerate perturbed y values and must not
// touch cross-partition state: any neighbor data it needs has been
// staged by the preceding CommFn call.
type LocalFn func(t float64, y, g []float64) nonlin.Status

// CommFn performs all inter-partition data exchange needed before
// LocalFn can be evaluated. It is expected to block until the neighbor
// data is staged.
type CommFn func(t float64, y []float64) nonlin.Status

// Config specifies a band-block-diagonal preconditioner.
type Config struct {
	// LocalSize is the number of unknowns owned by this process.
	LocalSize int

	// UpperBandwidth and LowerBandwidth (mu, ml) bound the band that
	// is retained, factored and applied.
	UpperBandwidth, LowerBandwidth int

	// DQUpperBandwidth and DQLowerBandwidth (mudq, mldq) bound the
	// band assumed when coloring the unknowns for differencing. They
	// must not be narrower than the retained band and may be wider:
	// a wider coloring costs more local evaluations but captures
	// coupling that the retained band then truncates, a deliberate
	// accuracy/cost trade.
	DQUpperBandwidth, DQLowerBandwidth int

	// RelativeIncrement scales the finite-difference perturbations.
	// Values ≤ 0 resolve to √(machine roundoff) once at setup.
	RelativeIncrement float64

	// Local is the local approximation function. Required.
	Local LocalFn

	// Comm stages cross-partition data before each rebuild. A nil
	// Comm means the local function needs no exchange.
	Comm CommFn
}

// Precond state machine values.
type state int

const (
	uninitialized state = iota // freed, terminal until Reinit
	ready                      // storage allocated, no valid factors
	factored                   // last Precondition succeeded
	failed                     // last Precondition failed fatally
)

// Precond is the per-process preconditioner state: the owned band
// store, its pivot sequence, the difference-quotient work vectors and
// the local evaluation counter.
type Precond struct {
	n          int // local problem size
	mu, ml     int // retained half-bandwidths, clipped to n-1
	mudq, mldq int // differencing half-bandwidths, clipped to n-1
	relInc     float64

	local LocalFn
	comm  CommFn

	mat    *band.Matrix
	pivots []int

	ytemp, gbase, gtemp []float64

	nge   int // local function evaluations, reset by Reinit only
	state state
}

// sqrtRoundoff is the default relative increment √(machine roundoff).
var sqrtRoundoff = math.Sqrt(math.Nextafter(1, 2) - 1)

func (c *Config) validate() error {
	switch {
	case c.LocalSize <= 0:
		return ErrLocalSize
	case c.Local == nil:
		return ErrNilLocalFn
	case c.UpperBandwidth < 0 || c.LowerBandwidth < 0:
		return ErrBandwidth
	case c.DQUpperBandwidth < c.UpperBandwidth || c.DQLowerBandwidth < c.LowerBandwidth:
		return ErrBandwidth
	}
	return nil
}

// New validates cfg and allocates the band store, the pivot slice and
// the difference-quotient work vectors for a LocalSize×LocalSize block.
func New(cfg Config) (*Precond, error) {
	p := new(Precond)
	if err := p.setup(cfg, true); err != nil {
		return nil, err
	}
	return p, nil
}

// Reinit revalidates cfg against an existing preconditioner. Storage
// is reallocated only when the size or a retained bandwidth changed;
// otherwise the band store is zeroed and reused, which amortizes
// allocation across repeated solves of same-shaped problems. The
// evaluation counter is reset either way.
func (p *Precond) Reinit(cfg Config) error {
	realloc := p.state == uninitialized ||
		cfg.LocalSize != p.n ||
		min(cfg.UpperBandwidth, cfg.LocalSize-1) != p.mu ||
		min(cfg.LowerBandwidth, cfg.LocalSize-1) != p.ml
	return p.setup(cfg, realloc)
}

func (p *Precond) setup(cfg Config, realloc bool) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	n := cfg.LocalSize
	p.n = n
	p.mu = min(cfg.UpperBandwidth, n-1)
	p.ml = min(cfg.LowerBandwidth, n-1)
	p.mudq = min(cfg.DQUpperBandwidth, n-1)
	p.mldq = min(cfg.DQLowerBandwidth, n-1)
	p.local, p.comm = cfg.Local, cfg.Comm

	p.relInc = cfg.RelativeIncrement
	if p.relInc <= 0 {
		p.relInc = sqrtRoundoff
	}

	if realloc {
		// Extra superdiagonals reserve fill-in room for pivoting.
		smu := min(n-1, p.mu+p.ml)
		mat, err := band.New(n, p.mu, p.ml, smu)
		if err != nil {
			return err
		}
		p.mat = mat
		p.pivots = make([]int, n)
		p.ytemp = make([]float64, n)
		p.gbase = make([]float64, n)
		p.gtemp = make([]float64, n)
	} else {
		p.mat.Zero()
	}

	p.nge = 0
	p.state = ready
	return nil
}

// Precondition rebuilds and factors the local block at the point
// (t, y): it stages neighbor data through the communication callback,
// refills the band store with difference quotients scaled by yscale,
// and LU-factors it in place.
//
// A singular factorization returns LSetupRecoverable: the current
// linearization point is degenerate and the caller should retry with a
// different one, not abort. Callback codes propagate with their own
// class. On any failure the previous factors are gone; Apply refuses
// to run until a later Precondition succeeds.
func (p *Precond) Precondition(t float64, y, yscale []float64) nonlin.Status {
	if p.state == uninitialized || len(y) != p.n || len(yscale) != p.n {
		return nonlin.IllegalInput
	}
	p.state = ready

	if p.comm != nil {
		if st := p.comm(t, y); st != nonlin.Success {
			if st.Fatal() {
				p.state = failed
				return nonlin.LSetupFail
			}
			return nonlin.LSetupRecoverable
		}
	}

	p.mat.Zero()
	if st := p.buildJacobian(t, y, yscale); st != nonlin.Success {
		if st.Fatal() {
			p.state = failed
		}
		return st
	}

	if err := p.mat.Factor(p.pivots); err != nil {
		return nonlin.LSetupRecoverable
	}
	p.state = factored
	return nonlin.Success
}

// Apply solves P·z = r in place: r enters as the right-hand side and
// leaves as the solution. It requires a successfully factored block;
// calling it in any other state is an invalid-state misuse and fails
// fatally rather than backsolving on stale or absent factors.
func (p *Precond) Apply(r []float64) nonlin.Status {
	if p.state != factored || len(r) != p.n {
		return nonlin.IllegalInput
	}
	p.mat.Backsolve(p.pivots, r)
	return nonlin.Success
}

// NumLocalEvals reports how many times the local function has been
// evaluated since setup, ngroups+1 per rebuild.
func (p *Precond) NumLocalEvals() int { return p.nge }

// WorkspaceSizes reports the real and integer words owned by the
// preconditioner.
func (p *Precond) WorkspaceSizes() (realWords, intWords int) {
	if p.state == uninitialized {
		return 0, 0
	}
	return p.mat.StorageSize() + 3*p.n, p.n
}

// Free releases all owned storage. The preconditioner is unusable
// until a successful Reinit.
func (p *Precond) Free() {
	p.mat = nil
	p.pivots = nil
	p.ytemp, p.gbase, p.gtemp = nil, nil, nil
	p.state = uninitialized
}
