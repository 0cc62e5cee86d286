package stream

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	phrases       metric.Int64Counter
	failures      metric.Int64Counter
	activeStreams metric.Int64UpDownCounter
}

func newMetrics(logger *slog.Logger) *metrics {
	meter := otel.Meter("supertonic/stream")
	m := &metrics{}
	var err error
	if m.phrases, err = meter.Int64Counter("supertonic.phrases.synthesized"); err != nil {
		logger.Warn("failed to create phrase counter", slogError(err))
	}
	if m.failures, err = meter.Int64Counter("supertonic.synthesis.failures"); err != nil {
		logger.Warn("failed to create failure counter", slogError(err))
	}
	if m.activeStreams, err = meter.Int64UpDownCounter("supertonic.streams.active"); err != nil {
		logger.Warn("failed to create active stream counter", slogError(err))
	}
	return m
}

// MalformedLineHook returns the callback the chat client invokes for every
// ndjson line it drops. Counted and logged at debug; a malformed line never
// interrupts the stream.
func MalformedLineHook(logger *slog.Logger) func([]byte) {
	meter := otel.Meter("supertonic/stream")
	counter, err := meter.Int64Counter("supertonic.chat.malformed_lines")
	if err != nil {
		logger.Warn("failed to create malformed line counter", slogError(err))
	}
	return func(line []byte) {
		if counter != nil {
			counter.Add(context.Background(), 1)
		}
		logger.Debug("dropped malformed chat line", slog.Int("bytes", len(line)))
	}
}

func (m *metrics) addPhrase(ctx context.Context) {
	if m.phrases != nil {
		m.phrases.Add(ctx, 1)
	}
}

func (m *metrics) addFailure(ctx context.Context) {
	if m.failures != nil {
		m.failures.Add(ctx, 1)
	}
}

func (m *metrics) streamStarted(ctx context.Context) {
	if m.activeStreams != nil {
		m.activeStreams.Add(ctx, 1)
	}
}

func (m *metrics) streamEnded(ctx context.Context) {
	if m.activeStreams != nil {
		m.activeStreams.Add(ctx, -1)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
