package phrase

// Policy holds the boundary cascade thresholds. The cascade is evaluated in
// priority order: sentence punctuation, strong punctuation, word boundary,
// comma, forced cut at the cap.
type Policy struct {
	// MinPhraseLength is the shortest buffer eligible for a plain word cut.
	MinPhraseLength int
	// MaxPhraseLength forces a cut once the buffer reaches this many bytes.
	MaxPhraseLength int
	// StrongPunctFactor scales MinPhraseLength for ';' and ':' cuts.
	StrongPunctFactor float64
	// WordCutFactor scales MinPhraseLength for the minimum word cut position.
	WordCutFactor float64
	// CommaBufferFactor scales MinPhraseLength for comma cut eligibility.
	CommaBufferFactor float64
	// CommaCutFactor scales MinPhraseLength for the minimum comma cut position.
	CommaCutFactor float64
	// OverrunFactor scales MaxPhraseLength; past it the cut lands on the cap
	// exactly, mid-word if it must.
	OverrunFactor float64
}

// DefaultPolicy returns the thresholds used by the streaming endpoints.
func DefaultPolicy() Policy {
	return Policy{
		MinPhraseLength:   15,
		MaxPhraseLength:   80,
		StrongPunctFactor: 0.7,
		WordCutFactor:     0.8,
		CommaBufferFactor: 2.0,
		CommaCutFactor:    1.3,
		OverrunFactor:     1.3,
	}
}
