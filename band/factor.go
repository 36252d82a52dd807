// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package band

import "math"

// Factor performs an in-place LU factorization of the band matrix
//
//	P·A = L·U
//
// by Gaussian elimination with partial pivoting, where the pivot
// search is restricted to the ml-wide sub-band of each column.
//
// on entry
//
//	m         the band matrix A, allocated with smu = 𝚖𝚒𝚗(n-1, mu+ml)
//	          so that row interchanges have room to fill in up to
//	          mu+ml superdiagonals.
//
//	p         integer slice of length n receiving the pivot sequence.
//
// on return
//
//	m         holds the factors: U occupies the diagonal and
//	          superdiagonal band, and the strictly lower band holds
//	          the negated row multipliers -A(i,k)/A(k,k) consumed by
//	          Backsolve.
//
//	p[k]      is the index of the row swapped into pivot position at
//	          elimination step k.
//
// A zero pivot after the column search yields a *SingularError carrying
// the 1-based column index; the factor content is then undefined and a
// subsequent Backsolve must not be attempted. This is a recoverable
// condition: the linearization that produced A is singular, not the
// caller's bookkeeping.
func (m *Matrix) Factor(p []int) error {
	n, ml, smu, mu := m.n, m.ml, m.smu, m.mu
	if len(p) != n {
		return &shapeError{"pivot", len(p), n}
	}

	// Clear the fill-in workspace rows above the retained band.
	if rows := smu - mu; rows > 0 {
		for c := 0; c < n; c++ {
			col := m.col(c)
			for r := 0; r < rows; r++ {
				col[r] = zero
			}
		}
	}

	// k = elimination step number
	for k := 0; k < n-1; k++ {
		colK := m.col(k)
		lastRow := min(n-1, k+ml)

		// Find the pivot row l in the sub-band of column k.
		l := k
		pivot := math.Abs(colK[smu])
		for i := k + 1; i <= lastRow; i++ {
			if v := math.Abs(colK[i-k+smu]); v > pivot {
				l, pivot = i, v
			}
		}
		p[k] = l

		if colK[l-k+smu] == zero {
			return &SingularError{Col: k + 1}
		}

		// Swap A(l,k) and A(k,k).
		swap := l != k
		if swap {
			colK[l-k+smu], colK[smu] = colK[smu], colK[l-k+smu]
		}

		// Scale the sub-diagonal of column k by -1/A(k,k), storing the
		// negated row multipliers in place for the backsolve.
		mult := -one / colK[smu]
		for i := k + 1; i <= lastRow; i++ {
			colK[i-k+smu] *= mult
		}

		// row_i = row_i - [A(i,k)/A(k,k)]·row_k for the rows below the
		// pivot, one column at a time across the fill-in band.
		lastCol := min(n-1, k+smu)
		for j := k + 1; j <= lastCol; j++ {
			colJ := m.col(j)
			sl, sk := l-j+smu, k-j+smu
			akj := colJ[sl]
			if swap {
				colJ[sl], colJ[sk] = colJ[sk], akj
			}
			if akj != zero {
				for i := k + 1; i <= lastRow; i++ {
					colJ[i-j+smu] += akj * colK[i-k+smu]
				}
			}
		}
	}

	// The trailing 1×1 block has no elimination step, only a pivot check.
	p[n-1] = n - 1
	if m.col(n-1)[smu] == zero {
		return &SingularError{Col: n}
	}
	return nil
}

// Backsolve solves the linear system A·x = b in place using the factors
// and pivot sequence produced by a prior successful Factor: first
//
//	L·y = P·b    (forward elimination with row interchanges)
//
// then
//
//	U·x = y      (back substitution)
//
// overwriting b with x. The behavior is undefined when Factor has not
// completed successfully on this matrix; callers must order the calls.
func (m *Matrix) Backsolve(p []int, b []float64) {
	n, ml, smu := m.n, m.ml, m.smu

	// Solve L·y = P·b.
	for k := 0; k < n-1; k++ {
		l := p[k]
		mult := b[l]
		if l != k {
			b[l], b[k] = b[k], mult
		}
		colK := m.col(k)
		lastRow := min(n-1, k+ml)
		for i := k + 1; i <= lastRow; i++ {
			b[i] += mult * colK[i-k+smu]
		}
	}

	// Solve U·x = y.
	for k := n - 1; k >= 0; k-- {
		colK := m.col(k)
		b[k] /= colK[smu]
		mult := -b[k]
		firstRow := max(0, k-smu)
		for i := firstRow; i < k; i++ {
			b[i] += mult * colK[i-k+smu]
		}
	}
}
