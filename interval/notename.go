package interval

import (
	"fmt"
	"math"
	"strings"
)

// NoteNameStyle selects the letter-naming convention used for the stack's
// key-class before commas are appended (e.g. sharps vs flats). The engine
// only needs the label; the comma suffix is what actually conveys the
// just-intonation spelling.
type NoteNameStyle int

const (
	StyleSharps NoteNameStyle = iota
	StyleFlats
)

var sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flatNames = []string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// MaxCommaCount bounds how many total comma-steps a coordinate system may
// use to express a stack before CorrectedNoteName considers that system
// unable to express it and falls through to its next preference.
const MaxCommaCount = 4

// CorrectedNoteName returns a human-facing spelling for s: the first
// coordinate system in preferenceOrder able to express s.Target with a
// bounded total comma count wins; otherwise the function falls back to a
// plain letter name plus a cents-deviation suffix.
func CorrectedNoteName(s *Stack, style NoteNameStyle, preferenceOrder []*CoordinateSystem, useCents bool) string {
	letters := sharpNames
	if style == StyleFlats {
		letters = flatNames
	}
	keyClass := ((s.KeyNumber() % 12) + 12) % 12
	letter := letters[keyClass]

	for _, cs := range preferenceOrder {
		coeffs := cs.CoeffsOf(s.Target)
		total := 0
		allInt := true
		for _, c := range coeffs {
			if !c.IsInt() {
				allInt = false
				break
			}
			n := c.Num().Int64()
			if n < 0 {
				n = -n
			}
			total += int(n)
		}
		if allInt && total <= MaxCommaCount {
			var sb strings.Builder
			sb.WriteString(letter)
			for i, c := range coeffs {
				n := c.Num().Int64()
				if n == 0 {
					continue
				}
				name := cs.Names[i]
				sign := "+"
				if n < 0 {
					sign = "-"
					n = -n
				}
				for k := int64(0); k < n; k++ {
					sb.WriteString(sign)
					sb.WriteRune(name.ShortName)
				}
			}
			return sb.String()
		}
	}

	if useCents {
		deviation := s.Semitones() - float64(s.KeyNumber())
		cents := deviation * 100
		sign := "+"
		if cents < 0 {
			sign = ""
		}
		return fmt.Sprintf("%s%s%.1fc", letter, sign, cents)
	}
	return letter
}

// CentsDeviation is the deviation, in cents, of s's Actual interval from
// plain 12-TET at the same key number.
func CentsDeviation(s *Stack) float64 {
	return (s.Semitones() - float64(s.KeyNumber())) * 100
}

// RoundCents rounds x to the nearest tenth of a cent, useful for test
// oracles and display.
func RoundCents(x float64) float64 {
	return math.Round(x*10) / 10
}
