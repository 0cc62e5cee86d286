package stream

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"

	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/AlaeddineMessadi/supertonic/internal/tts"
	"github.com/AlaeddineMessadi/supertonic/internal/wav"
)

// SynthesisParams carries the per-request voice settings handed to the engine
// for every phrase of the stream.
type SynthesisParams struct {
	Style tts.Style
	Steps int
	Speed float64
}

// sinkError marks a delivery failure, i.e. the client went away. Orchestration
// aborts on these without emitting further events; engine failures are a
// different class and keep the stream alive.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return "event delivery failed: " + e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

func send(sink event.Sink, ev event.Event) error {
	if err := sink.Send(ev); err != nil {
		return &sinkError{err: err}
	}
	return nil
}

type synthOpts struct {
	// emitChunk precedes the audio event with per-chunk metadata; the batch
	// endpoint wants it, the conversational one does not.
	emitChunk bool
}

// synthesizePhrase runs one engine call and emits the resulting events. An
// engine failure is reported as an indexed error event and absorbed: the
// returned error is non-nil only when delivery or the context failed, which
// ends the whole stream.
func (o *Orchestrator) synthesizePhrase(ctx context.Context, sink event.Sink, index int, text string, p SynthesisParams, opts synthOpts) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	res, err := o.engine.Synthesize(ctx, tts.Request{
		Text:  text,
		Style: p.Style,
		Steps: p.Steps,
		Speed: p.Speed,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		o.metrics.addFailure(ctx)
		o.logger.Warn("phrase synthesis failed",
			slog.Int("index", index),
			slog.Int("length", len(text)),
			slogError(err))
		return 0, send(sink, event.PhraseError(index, fmt.Sprintf("synthesis failed for phrase %d: %v", index, err)))
	}

	samples := truncateSamples(res)
	if len(samples) == 0 {
		o.metrics.addFailure(ctx)
		o.logger.Warn("engine returned no audio", slog.Int("index", index))
		return 0, send(sink, event.PhraseError(index, fmt.Sprintf("synthesis produced no audio for phrase %d", index)))
	}
	duration := float64(len(samples)) / float64(res.SampleRate)

	encoded := base64.StdEncoding.EncodeToString(wav.Encode(samples, res.SampleRate))
	if opts.emitChunk {
		if err := send(sink, event.Chunk(index, duration, res.SampleRate)); err != nil {
			return 0, err
		}
	}
	if err := send(sink, event.Audio(index, text, encoded)); err != nil {
		return 0, err
	}
	o.metrics.addPhrase(ctx)
	return duration, nil
}

// truncateSamples trims engine over-allocation down to the samples the
// reported duration actually covers. A missing or inflated duration keeps the
// buffer whole.
func truncateSamples(res tts.Result) []float64 {
	if res.SampleRate <= 0 {
		return nil
	}
	want := int(math.Round(float64(res.SampleRate) * res.Duration))
	if want > 0 && want < len(res.Samples) {
		return res.Samples[:want]
	}
	return res.Samples
}

// sendSilence emits one inter-phrase silence gap as a self-contained WAV clip.
func (o *Orchestrator) sendSilence(sink event.Sink) error {
	clip := wav.Silence(o.opts.SilenceSeconds, o.opts.SampleRate)
	encoded := base64.StdEncoding.EncodeToString(clip)
	return send(sink, event.Silence(o.opts.SilenceSeconds, encoded))
}
