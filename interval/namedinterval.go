package interval

import (
	"fmt"
	"math/big"
)

// NamedInterval bundles a rational coefficient vector in the generator
// basis with a human name and a single-character short name. Used both as
// comma vocabulary and, when a linearly independent subset is chosen, as
// an alternative coordinate system for note naming.
type NamedInterval struct {
	Name      string
	ShortName rune
	Coeffs    []*big.Rat
}

// CoordinateSystem is an alternative basis for the same stack lattice,
// given by a square rational matrix whose columns are a linearly
// independent subset of NamedInterval coefficient vectors.
type CoordinateSystem struct {
	BasisColumnwise *RatMatrix
	BasisInv        *RatMatrix
	// Names holds the NamedIntervals, in the same column order as
	// BasisColumnwise, that the system was built from.
	Names []NamedInterval
}

// NewCoordinateSystem builds a CoordinateSystem from a set of named
// intervals whose coefficient vectors must be linearly independent (i.e.
// basisColumnwise invertible). Returns a LUError (MatrixDegenerate, most
// commonly) if the chosen intervals are not independent.
func NewCoordinateSystem(names []NamedInterval) (*CoordinateSystem, error) {
	n := len(names)
	if n == 0 {
		return nil, fmt.Errorf("interval: coordinate system needs at least one named interval")
	}
	m := NewRatMatrix(n)
	for col, ni := range names {
		if len(ni.Coeffs) != n {
			return nil, &LUError{Kind: MatrixNotSquare, NRows: n, NCols: len(ni.Coeffs)}
		}
		for row := 0; row < n; row++ {
			m.Rows[row][col].Set(ni.Coeffs[row])
		}
	}
	inv, err := Invert(m)
	if err != nil {
		return nil, err
	}
	return &CoordinateSystem{BasisColumnwise: m, BasisInv: inv, Names: append([]NamedInterval(nil), names...)}, nil
}

// CoeffsOf expresses a standard-basis integer vector (e.g. a stack's
// Target) in this coordinate system, returning exact rationals.
func (cs *CoordinateSystem) CoeffsOf(standard []StackCoeff) []*big.Rat {
	v := make([]*big.Rat, len(standard))
	for i, x := range standard {
		v[i] = new(big.Rat).SetInt64(x)
	}
	return cs.BasisInv.MulVec(v)
}
