package interval

import (
	"fmt"
	"math/big"
)

// LUError is returned by LU decomposition and inversion, mirroring the
// three failure modes of the original's util::lu::LUErr.
type LUError struct {
	Kind    LUErrorKind
	NRows   int
	NCols   int
	PermLen int
}

type LUErrorKind int

const (
	MatrixNotSquare LUErrorKind = iota
	WrongPermLen
	MatrixDegenerate
)

func (e *LUError) Error() string {
	switch e.Kind {
	case MatrixNotSquare:
		return fmt.Sprintf("interval: matrix not square (%dx%d)", e.NRows, e.NCols)
	case WrongPermLen:
		return fmt.Sprintf("interval: permutation length %d does not match %d rows", e.PermLen, e.NRows)
	case MatrixDegenerate:
		return "interval: matrix degenerate, not invertible"
	default:
		return "interval: LU error"
	}
}

// RatMatrix is a dense row-major matrix of exact rationals.
type RatMatrix struct {
	N    int
	Rows [][]*big.Rat
}

// NewRatMatrix allocates an n x n matrix of zero rationals.
func NewRatMatrix(n int) *RatMatrix {
	m := &RatMatrix{N: n, Rows: make([][]*big.Rat, n)}
	for i := range m.Rows {
		m.Rows[i] = make([]*big.Rat, n)
		for j := range m.Rows[i] {
			m.Rows[i][j] = new(big.Rat)
		}
	}
	return m
}

// RatMatrixFromInts builds a RatMatrix from a square int64 matrix (every
// entry is an exact integer).
func RatMatrixFromInts(a [][]int64) (*RatMatrix, error) {
	n := len(a)
	for _, row := range a {
		if len(row) != n {
			return nil, &LUError{Kind: MatrixNotSquare, NRows: n, NCols: len(row)}
		}
	}
	m := NewRatMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Rows[i][j].SetInt64(a[i][j])
		}
	}
	return m, nil
}

// Clone returns a deep copy.
func (m *RatMatrix) Clone() *RatMatrix {
	out := NewRatMatrix(m.N)
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			out.Rows[i][j].Set(m.Rows[i][j])
		}
	}
	return out
}

// LU holds a compact LU decomposition (the matrix is overwritten in place
// with L-E and U, alongside the pivot permutation), mirroring the original
// util::lu::LU<'a, T>.
type LU struct {
	a    *RatMatrix
	perm []int // length n+1; perm[n] counts row swaps (unused beyond parity)
}

// Decompose computes the LU decomposition of a with partial pivoting,
// overwriting a in place. a must be square; the returned LU borrows a.
func Decompose(a *RatMatrix) (*LU, error) {
	n := a.N
	perm := make([]int, n+1)
	for i := 0; i < n; i++ {
		perm[i] = i
	}

	zero := new(big.Rat)
	for i := 0; i < n-1; i++ {
		pivot := new(big.Rat).Set(zero)
		iPivot := i
		for k := i; k < n; k++ {
			tmp := new(big.Rat).Abs(a.Rows[k][i])
			if tmp.Cmp(pivot) > 0 {
				pivot.Set(tmp)
				iPivot = k
			}
		}

		if pivot.Sign() == 0 {
			return nil, &LUError{Kind: MatrixDegenerate}
		}

		if iPivot != i {
			perm[i], perm[iPivot] = perm[iPivot], perm[i]
			perm[n]++
			a.Rows[i], a.Rows[iPivot] = a.Rows[iPivot], a.Rows[i]
		}

		pivotVal := new(big.Rat).Set(a.Rows[i][i])
		for j := i + 1; j < n; j++ {
			a.Rows[j][i].Quo(a.Rows[j][i], pivotVal)
			for k := i + 1; k < n; k++ {
				tmp := new(big.Rat).Mul(a.Rows[j][i], a.Rows[i][k])
				a.Rows[j][k].Sub(a.Rows[j][k], tmp)
			}
		}
	}

	// the elimination loop never pivots on the last diagonal entry
	if n > 0 && a.Rows[n-1][n-1].Sign() == 0 {
		return nil, &LUError{Kind: MatrixDegenerate}
	}

	return &LU{a: a, perm: perm}, nil
}

// Inverse computes the exact rational inverse from the LU decomposition.
func (lu *LU) Inverse() *RatMatrix {
	n := lu.a.N
	inv := NewRatMatrix(n)
	tmp := new(big.Rat)

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			if lu.perm[i] == j {
				inv.Rows[i][j].SetInt64(1)
			} else {
				inv.Rows[i][j].SetInt64(0)
			}
			for k := 0; k < i; k++ {
				tmp.Mul(lu.a.Rows[i][k], inv.Rows[k][j])
				inv.Rows[i][j].Sub(inv.Rows[i][j], tmp)
			}
		}

		for i := n - 1; i >= 0; i-- {
			for k := i + 1; k < n; k++ {
				tmp.Mul(lu.a.Rows[i][k], inv.Rows[k][j])
				inv.Rows[i][j].Sub(inv.Rows[i][j], tmp)
			}
			inv.Rows[i][j].Quo(inv.Rows[i][j], lu.a.Rows[i][i])
		}
	}

	return inv
}

// Invert is a convenience wrapper: decompose a clone of m and return its
// exact rational inverse, leaving m untouched.
func Invert(m *RatMatrix) (*RatMatrix, error) {
	work := m.Clone()
	lu, err := Decompose(work)
	if err != nil {
		return nil, err
	}
	return lu.Inverse(), nil
}

// MulVec computes m * v for a column vector v of rationals.
func (m *RatMatrix) MulVec(v []*big.Rat) []*big.Rat {
	out := make([]*big.Rat, m.N)
	for i := 0; i < m.N; i++ {
		acc := new(big.Rat)
		for j := 0; j < m.N; j++ {
			tmp := new(big.Rat).Mul(m.Rows[i][j], v[j])
			acc.Add(acc, tmp)
		}
		out[i] = acc
	}
	return out
}

// Transpose returns a new matrix with rows and columns exchanged.
func Transpose(m *RatMatrix) *RatMatrix {
	out := NewRatMatrix(m.N)
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			out.Rows[j][i].Set(m.Rows[i][j])
		}
	}
	return out
}

// Mul computes the matrix product a * b.
func Mul(a, b *RatMatrix) *RatMatrix {
	n := a.N
	out := NewRatMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			acc := new(big.Rat)
			for k := 0; k < n; k++ {
				tmp := new(big.Rat).Mul(a.Rows[i][k], b.Rows[k][j])
				acc.Add(acc, tmp)
			}
			out.Rows[i][j].Set(acc)
		}
	}
	return out
}
