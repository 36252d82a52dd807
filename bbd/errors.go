// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbd

import "errors"

// Sentinel errors reported by New and Reinit. All belong to the
// illegal-input class and are matched via errors.Is.
var (
	// ErrLocalSize is returned for a non-positive local problem size.
	ErrLocalSize = errors.New("bbd: local size must greater than 0")

	// ErrBandwidth is returned when a half-bandwidth is negative or a
	// difference-quotient half-bandwidth is narrower than the retained
	// one: the retained band could then never be populated.
	ErrBandwidth = errors.New("bbd: invalid half-bandwidths")

	// ErrNilLocalFn is returned when no local approximation function
	// is supplied.
	ErrNilLocalFn = errors.New("bbd: local function is nil")
)
