// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nonlin

import "math"

// WRMSNorm returns the weighted root-mean-square norm
//
//	‖v‖ = √( 1/n · ∑ (vᵢ·wᵢ)² )
//
// used by the solvers to measure corrections: with error weights
// wᵢ = 1/(rtol·|yᵢ| + atol) a norm of 1 means the correction sits
// exactly at the caller's tolerance. Panics when the lengths differ.
func WRMSNorm(v, w []float64) float64 {
	if len(v) != len(w) {
		panic("nonlin: weight vector length mismatch")
	}
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for i, vi := range v {
		p := vi * w[i]
		sum += p * p
	}
	return math.Sqrt(sum / float64(len(v)))
}
