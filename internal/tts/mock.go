package tts

import (
	"context"
	"math"
)

type mockEngine struct {
	sampleRate int
}

// NewMockEngine returns a deterministic engine for tests and dry runs: a low
// amplitude sine whose duration scales with text length and speed.
func NewMockEngine(sampleRate int) Engine {
	return &mockEngine{sampleRate: sampleRate}
}

func (m *mockEngine) Ready() bool { return true }

func (m *mockEngine) Synthesize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1
	}
	duration := 0.04 * float64(len(req.Text)) / speed
	if duration < 0.05 {
		duration = 0.05
	}
	n := int(math.Round(duration * float64(m.sampleRate)))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.1 * math.Sin(2*math.Pi*220*float64(i)/float64(m.sampleRate))
	}
	return Result{Samples: samples, Duration: duration, SampleRate: m.sampleRate}, nil
}
