// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nonlin

import "errors"

// Sentinel errors reported by Solver constructors, Init and the Set*
// methods. All belong to the illegal-input class: they are caught
// eagerly, never retried, and tests match them via errors.Is.
var (
	// ErrNilCallback is returned when a Set* method receives nil.
	ErrNilCallback = errors.New("nonlin: callback is nil")

	// ErrNotApplicable is returned by a Set* method for a capability
	// the solver variant does not have, e.g. a linear solve on a
	// stationary solver.
	ErrNotApplicable = errors.New("nonlin: operation not applicable to solver type")

	// ErrMaxIters is returned for a non-positive iteration limit.
	ErrMaxIters = errors.New("nonlin: max iterations must greater than 0")

	// ErrEmptyTemplate is returned by Init for a zero-length template
	// vector.
	ErrEmptyTemplate = errors.New("nonlin: template vector is empty")
)
