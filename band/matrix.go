// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package band implements a square band matrix store with in-place
// LU factorization and backsolve.
//
// An n×n matrix with upper half-bandwidth mu and lower half-bandwidth ml
// confines its nonzero entries to the diagonals -ml ··· +mu. Only those
// diagonals are stored, column by column, so the memory cost is
// O(n·(mu+ml)) instead of O(n²).
//
// # Storage
//
// Columns are stored contiguously with a fixed leading dimension.
// To factor the matrix in place, Gaussian elimination with partial
// pivoting needs room for fill-in above the retained band: up to ml
// additional superdiagonals may become nonzero after row interchanges.
// The caller therefore chooses a storage upper bandwidth smu ≥ mu
// (smu = 𝚖𝚒𝚗(n-1, mu+ml) when the matrix will be factored) and each
// column occupies smu+ml+1 words:
//
//	data[j·(smu+ml+1) + i-j+smu]  holds  A(i,j)  for  j-smu ≤ i ≤ j+ml
//
// The entries between row j-smu and row j-mu-1 are fill-in workspace
// only: they are never read or written before Factor runs.
package band

import (
	"errors"
	"fmt"
)

const (
	zero = 0.0
	one  = 1.0
)

// ErrSingular reports that elimination met a zero pivot.
// A *SingularError matches it through errors.Is and carries
// the offending column.
var ErrSingular = errors.New("band: matrix is singular")

// SingularError carries the 1-based index of the first column whose
// pivot search found no nonzero entry. The factorization up to that
// column is left in place but must not be used for a backsolve.
type SingularError struct {
	Col int
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("band: zero pivot in column %d", e.Col)
}

func (e *SingularError) Is(target error) bool { return target == ErrSingular }

// shapeError reports a slice argument whose length disagrees with the
// matrix order.
type shapeError struct {
	what string
	got  int
	want int
}

func (e *shapeError) Error() string {
	return fmt.Sprintf("band: %s length %d, matrix order %d", e.what, e.got, e.want)
}

// Matrix is a column-major band matrix of order n.
type Matrix struct {
	n    int // matrix order
	mu   int // upper half-bandwidth
	ml   int // lower half-bandwidth
	smu  int // storage upper half-bandwidth, mu ≤ smu ≤ n-1
	ldim int // column stride: smu+ml+1
	data []float64
}

// New allocates an n×n band matrix with upper half-bandwidth mu,
// lower half-bandwidth ml and storage upper half-bandwidth smu.
// Pass smu = 𝚖𝚒𝚗(n-1, mu+ml) when the matrix will be factored,
// or smu = mu when it is used for products only.
func New(n, mu, ml, smu int) (*Matrix, error) {
	switch {
	case n <= 0:
		return nil, errors.New("band: order must greater than 0")
	case mu < 0 || ml < 0:
		return nil, errors.New("band: half-bandwidths must not less than 0")
	case mu >= n || ml >= n:
		return nil, errors.New("band: half-bandwidths must less than the order")
	case smu < mu || smu >= n:
		return nil, errors.New("band: storage bandwidth must satisfy mu ≤ smu < n")
	}
	ldim := smu + ml + 1
	return &Matrix{
		n: n, mu: mu, ml: ml, smu: smu,
		ldim: ldim,
		data: make([]float64, n*ldim),
	}, nil
}

// Size returns the matrix order n.
func (m *Matrix) Size() int { return m.n }

// Bandwidths returns the upper, lower and storage half-bandwidths.
func (m *Matrix) Bandwidths() (mu, ml, smu int) { return m.mu, m.ml, m.smu }

// StorageSize returns the number of real words held by the store.
func (m *Matrix) StorageSize() int { return len(m.data) }

// Zero clears every stored entry, including the fill-in workspace.
func (m *Matrix) Zero() {
	clear(m.data)
}

// InBand reports whether entry (i,j) lies inside the retained band
// j-mu ≤ i ≤ j+ml.
func (m *Matrix) InBand(i, j int) bool {
	return j-m.mu <= i && i <= j+m.ml && 0 <= j && j < m.n && 0 <= i && i < m.n
}

// index locates entry (i,j) inside data. Callers must pre-clip the
// row range to the band: out-of-band access corrupts a neighboring
// column and is a programmer error, so it panics rather than errors.
func (m *Matrix) index(i, j int) int {
	if !m.InBand(i, j) {
		panic(fmt.Sprintf("band: entry (%d,%d) outside band", i, j))
	}
	return j*m.ldim + i - j + m.smu
}

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data[m.index(i, j)] }

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.data[m.index(i, j)] = v }

// col returns the stored column j. The entry in row i sits at
// offset i-j+smu, so the main diagonal is always at offset smu.
func (m *Matrix) col(j int) []float64 {
	return m.data[j*m.ldim : (j+1)*m.ldim]
}
