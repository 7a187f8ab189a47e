package interval

import (
	"fmt"
	"math/big"
)

// Temperament is an integer linear map from the basis to itself, described
// by two n x n integer matrices: Tempered and Pure. Each row encodes "this
// tempered linear combination equals this pure linear combination" (e.g.
// four fifths tempered the same as a major third plus two octaves, in
// meantone).
type Temperament struct {
	Name     string
	Tempered [][]int64
	Pure     [][]int64

	realized *RatMatrix // nil until Realize is called successfully
}

// KeySpanMismatchError is returned by Realize when a temperament row's
// tempered-side key-distance differs from its pure-side key-distance.
type KeySpanMismatchError struct {
	Row             int
	TemperedKeySpan int
	PureKeySpan     int
}

func (e *KeySpanMismatchError) Error() string {
	return fmt.Sprintf("interval: temperament row %d has key-span mismatch: tempered=%d pure=%d",
		e.Row, e.TemperedKeySpan, e.PureKeySpan)
}

// Realize computes the tempered-to-pure change of basis over exact
// rationals, validating key-span agreement per row against basis's key
// distances. Each row encodes "this tempered combination of generators
// equals this pure combination"; the induced map on exponent vectors is
// Pure^T * (Tempered^T)^-1, and what gets cached is that map minus the
// identity, so that Apply's actual = target + realized*target lands on
// the pure-side exponents.
func (t *Temperament) Realize(basis *Basis) error {
	n := basis.Len()
	if len(t.Tempered) != n || len(t.Pure) != n {
		return &LUError{Kind: MatrixNotSquare, NRows: n, NCols: len(t.Tempered)}
	}

	keyDist := make([]int64, n)
	for i, g := range basis.Generators {
		keyDist[i] = int64(g.KeyDistance)
	}

	for r := 0; r < n; r++ {
		var temperedSpan, pureSpan int64
		for c := 0; c < n; c++ {
			temperedSpan += t.Tempered[r][c] * keyDist[c]
			pureSpan += t.Pure[r][c] * keyDist[c]
		}
		if temperedSpan != pureSpan {
			return &KeySpanMismatchError{Row: r, TemperedKeySpan: int(temperedSpan), PureKeySpan: int(pureSpan)}
		}
	}

	temperedMat, err := RatMatrixFromInts(t.Tempered)
	if err != nil {
		return err
	}
	pureMat, err := RatMatrixFromInts(t.Pure)
	if err != nil {
		return err
	}

	temperedInv, err := Invert(Transpose(temperedMat))
	if err != nil {
		return err // MatrixDegenerate: the system is indeterminate
	}

	realized := Mul(Transpose(pureMat), temperedInv)
	one := new(big.Rat).SetInt64(1)
	for i := 0; i < n; i++ {
		realized.Rows[i][i].Sub(realized.Rows[i][i], one)
	}
	t.realized = realized
	return nil
}

// Realized reports whether Realize has succeeded for this temperament.
func (t *Temperament) Realized() bool { return t.realized != nil }

// Apply sets s.Actual = s.Target + Realized*s.Target. Returns an error if
// the temperament has not been realized, or if the rational result is not
// an exact integer vector (the temperament cannot express this stack with
// integer exponents).
func (t *Temperament) Apply(s *Stack) error {
	if t.realized == nil {
		return fmt.Errorf("interval: temperament %q not realized", t.Name)
	}
	n := len(s.Target)
	targetRat := make([]*big.Rat, n)
	for i, v := range s.Target {
		targetRat[i] = new(big.Rat).SetInt64(v)
	}
	delta := t.realized.MulVec(targetRat)

	newActual := make([]StackCoeff, n)
	for i := 0; i < n; i++ {
		sum := new(big.Rat).Add(targetRat[i], delta[i])
		if !sum.IsInt() {
			return fmt.Errorf("interval: temperament %q produced non-integer exponent %s at index %d", t.Name, sum.RatString(), i)
		}
		newActual[i] = sum.Num().Int64()
	}
	copy(s.Actual, newActual)
	return nil
}
