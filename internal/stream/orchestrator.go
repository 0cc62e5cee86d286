// Package stream drives synthesis pipelines: it turns raw text or a chat turn
// into the ordered event sequence the transports deliver. One orchestrator is
// shared by every request; all per-stream state lives on the stack.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/AlaeddineMessadi/supertonic/internal/llm"
	"github.com/AlaeddineMessadi/supertonic/internal/phrase"
	"github.com/AlaeddineMessadi/supertonic/internal/session"
	"github.com/AlaeddineMessadi/supertonic/internal/tts"
)

const chatUnavailableMsg = "language model backend unreachable: check that the chat service is running and the configured endpoint is correct"

// TurnRecorder receives a completed conversational turn for audit logging.
// Recording is best effort; failures are logged and never affect the stream.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, conversationID, userText, assistantText string, audioSeconds float64) error
}

// Options holds the tuning the orchestrator applies to every stream.
type Options struct {
	SampleRate       int
	SegmentMaxLength int
	SilenceSeconds   float64
	Policy           phrase.Policy
	SystemPrompt     string
	// TurnTimeout bounds one chat turn end to end. Zero disables the deadline;
	// long generations then run until the client disconnects.
	TurnTimeout time.Duration
	Recorder    TurnRecorder
}

type Orchestrator struct {
	engine   tts.Engine
	chat     llm.Client
	sessions *session.Store
	logger   *slog.Logger
	opts     Options
	metrics  *metrics
}

func New(engine tts.Engine, chat llm.Client, sessions *session.Store, logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		chat:     chat,
		sessions: sessions,
		logger:   logger,
		opts:     opts,
		metrics:  newMetrics(logger),
	}
}

// StreamText synthesizes fixed text phrase by phrase. The event order is
// start, then per phrase chunk metadata followed by its audio, silence gaps
// between phrases, and a final end event with the totals. Empty input yields
// an empty but well-formed sequence.
func (o *Orchestrator) StreamText(ctx context.Context, text string, p SynthesisParams, sink event.Sink) error {
	o.metrics.streamStarted(ctx)
	defer o.metrics.streamEnded(ctx)

	phrases := phrase.Segment(phrase.Normalize(text), o.opts.SegmentMaxLength)
	if err := send(sink, event.Start(len(phrases))); err != nil {
		return err
	}

	var total float64
	for i, ph := range phrases {
		dur, err := o.synthesizePhrase(ctx, sink, i+1, ph, p, synthOpts{emitChunk: true})
		if err != nil {
			return err
		}
		total += dur
		if o.opts.SilenceSeconds > 0 && i < len(phrases)-1 {
			if err := o.sendSilence(sink); err != nil {
				return err
			}
			total += o.opts.SilenceSeconds
		}
	}
	return send(sink, event.End(total, len(phrases)))
}

// ConversationRequest is one user turn of a conversational stream.
type ConversationRequest struct {
	ConversationID string
	Message        string
	Model          string
	SystemPrompt   string
	Params         SynthesisParams
}

// Conversation runs one chat turn: it streams the assistant's reply as text
// chunks while cutting it into phrases and voicing each one as soon as its
// boundary is known. The whole turn holds the session's turn lock, so
// concurrent turns on the same conversation serialize instead of interleaving
// history writes.
func (o *Orchestrator) Conversation(ctx context.Context, req ConversationRequest, sink event.Sink) error {
	o.metrics.streamStarted(ctx)
	defer o.metrics.streamEnded(ctx)

	if err := send(sink, event.ConversationStart(req.ConversationID)); err != nil {
		return err
	}

	// Liveness probe before touching session state. A dead backend aborts the
	// turn with an operator-actionable message and leaves history untouched.
	if err := o.chat.Ping(ctx); err != nil {
		o.logger.Warn("chat backend liveness probe failed", slogError(err))
		return send(sink, event.Error(chatUnavailableMsg))
	}

	o.sessions.Lock(req.ConversationID)
	defer o.sessions.Unlock(req.ConversationID)

	history := o.sessions.GetOrCreate(req.ConversationID)
	if len(history) == 0 {
		prompt := req.SystemPrompt
		if prompt == "" {
			prompt = o.opts.SystemPrompt
		}
		if prompt != "" {
			o.sessions.Append(req.ConversationID, llm.Message{Role: llm.RoleSystem, Content: prompt})
		}
	}
	o.sessions.Append(req.ConversationID, llm.Message{Role: llm.RoleUser, Content: req.Message})
	history = o.sessions.Get(req.ConversationID)

	chatCtx := ctx
	if o.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		chatCtx, cancel = context.WithTimeout(ctx, o.opts.TurnTimeout)
		defer cancel()
	}

	det := phrase.NewDetector(o.opts.Policy)
	var full strings.Builder
	var totalDur float64
	index := 0

	speak := func(ph string) error {
		ph = phrase.Normalize(ph)
		if ph == "" {
			return nil
		}
		index++
		dur, err := o.synthesizePhrase(chatCtx, sink, index, ph, req.Params, synthOpts{})
		totalDur += dur
		return err
	}

	chatErr := o.chat.Chat(chatCtx, req.Model, history, func(f llm.Fragment) error {
		if f.Content == "" {
			return nil
		}
		full.WriteString(f.Content)
		if err := send(sink, event.TextChunk(f.Content, full.String())); err != nil {
			return err
		}
		for _, ph := range det.Feed(f.Content) {
			if err := speak(ph); err != nil {
				return err
			}
		}
		return nil
	})
	if chatErr != nil {
		var se *sinkError
		if errors.As(chatErr, &se) || ctx.Err() != nil {
			// Client is gone; nothing left to tell it.
			return chatErr
		}
		o.logger.Warn("chat stream failed", slog.String("conversation", req.ConversationID), slogError(chatErr))
		msg := "chat stream failed: " + chatErr.Error()
		if errors.Is(chatErr, context.DeadlineExceeded) {
			msg = "chat turn exceeded the configured timeout"
		}
		return send(sink, event.Error(msg))
	}

	if tail, ok := det.Flush(); ok {
		if err := speak(tail); err != nil {
			return err
		}
	}

	response := full.String()
	if response != "" {
		o.sessions.Append(req.ConversationID, llm.Message{Role: llm.RoleAssistant, Content: response})
	}
	if o.opts.Recorder != nil {
		if err := o.opts.Recorder.RecordTurn(ctx, req.ConversationID, req.Message, response, totalDur); err != nil {
			o.logger.Warn("turn recording failed", slogError(err))
		}
	}

	if err := send(sink, event.ConversationEnd(response)); err != nil {
		return err
	}
	return send(sink, event.End(totalDur, index))
}
