package interval

// FiveLimitBasis builds the classic 5-limit just-intonation basis used
// throughout the default configs and tests: octave, fifth, major third.
func FiveLimitBasis() *Basis {
	b, err := NewBasis([]Generator{
		{Name: "octave", Semitones: 12.0, KeyDistance: 12},
		{Name: "fifth", Semitones: 7.019550008653874, KeyDistance: 7},
		{Name: "major third", Semitones: 3.8631371386483481, KeyDistance: 4},
	}, 0)
	if err != nil {
		panic(err) // basis literal above is always well formed
	}
	return b
}

// SyntonicCommaCoeffs returns the 81/80 comma (≈ 0.2151 semitones)
// expressed in FiveLimitBasis coordinates: four pure fifths minus two
// octaves minus one pure major third.
// Coefficients: [octave, fifth, third].
func SyntonicCommaCoeffs() []StackCoeff {
	return []StackCoeff{-2, 4, -1}
}
