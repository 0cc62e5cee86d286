package tts

import "context"

// Request contains parameters to synthesize one phrase.
type Request struct {
	Text  string
	Style Style
	Steps int
	Speed float64
}

// Result is the raw engine output for one phrase. Samples may be
// over-allocated; callers truncate to SampleRate×Duration before encoding.
type Result struct {
	Samples    []float64
	Duration   float64
	SampleRate int
}

// Engine is the contract for the external synthesis backend. Implementations
// may be slow; they must honor ctx cancellation.
type Engine interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
	Ready() bool
}
