package continuity

type Config struct {
	MatchThreshold float64
	// AmbiguityMargin is the score distance within which contenders count as tied.
	AmbiguityMargin      float64
	FacetMismatchPenalty float64
	// TextWeight splits text similarity between cosine (TextWeight) and evidence-term Jaccard.
	TextWeight           float64
	ComplexityNovelTerms int
	AdvancedComplexity   int
	AdvancedMinLectures  int
	FaceShiftMargin      int
}

func DefaultConfig() Config {
	return Config{
		MatchThreshold:       0.6,
		AmbiguityMargin:      0.02,
		FacetMismatchPenalty: 0.75,
		TextWeight:           0.7,
		ComplexityNovelTerms: 3,
		AdvancedComplexity:   3,
		AdvancedMinLectures:  2,
		FaceShiftMargin:      2,
	}
}

// Normalized repairs out-of-range values with defaults.
func (c Config) Normalized() Config {
	d := DefaultConfig()
	if !(c.MatchThreshold > 0 && c.MatchThreshold <= 1) {
		c.MatchThreshold = d.MatchThreshold
	}
	if !(c.AmbiguityMargin >= 0 && c.AmbiguityMargin < 1) {
		c.AmbiguityMargin = d.AmbiguityMargin
	}
	if !(c.FacetMismatchPenalty >= 0 && c.FacetMismatchPenalty <= 1) {
		c.FacetMismatchPenalty = d.FacetMismatchPenalty
	}
	if !(c.TextWeight >= 0 && c.TextWeight <= 1) {
		c.TextWeight = d.TextWeight
	}
	if c.ComplexityNovelTerms <= 0 {
		c.ComplexityNovelTerms = d.ComplexityNovelTerms
	}
	if c.AdvancedComplexity <= 1 {
		c.AdvancedComplexity = d.AdvancedComplexity
	}
	if c.AdvancedMinLectures < 2 {
		c.AdvancedMinLectures = d.AdvancedMinLectures
	}
	if c.FaceShiftMargin <= 0 {
		c.FaceShiftMargin = d.FaceShiftMargin
	}
	return c
}
