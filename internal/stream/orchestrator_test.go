package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/AlaeddineMessadi/supertonic/internal/llm"
	"github.com/AlaeddineMessadi/supertonic/internal/phrase"
	"github.com/AlaeddineMessadi/supertonic/internal/session"
	"github.com/AlaeddineMessadi/supertonic/internal/tts"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		SampleRate:     22050,
		SilenceSeconds: 0.3,
		Policy:         phrase.DefaultPolicy(),
	}
}

func collectSink(events *[]event.Event) event.Sink {
	return event.SinkFunc(func(ev event.Event) error {
		*events = append(*events, ev)
		return nil
	})
}

func newTestOrchestrator(chat llm.Client, opts Options) (*Orchestrator, *session.Store) {
	sessions := session.NewStore()
	o := New(tts.NewMockEngine(opts.SampleRate), chat, sessions, testLogger(), opts)
	return o, sessions
}

func TestStreamTextEventOrder(t *testing.T) {
	o, _ := newTestOrchestrator(&llm.MockClient{}, testOptions())

	var events []event.Event
	err := o.StreamText(context.Background(),
		"Hello world. This is a longer second sentence.",
		SynthesisParams{Speed: 1}, collectSink(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var types []event.Type
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []event.Type{
		event.TypeStart,
		event.TypeChunk, event.TypeAudio,
		event.TypeSilence,
		event.TypeChunk, event.TypeAudio,
		event.TypeEnd,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(types), types)
	}
	for i, ty := range want {
		if types[i] != ty {
			t.Fatalf("event %d: expected %s, got %s (%v)", i, ty, types[i], types)
		}
	}

	if events[0].TotalChunks != 2 {
		t.Fatalf("expected start to announce 2 chunks, got %d", events[0].TotalChunks)
	}
	if events[1].Index != 1 || events[4].Index != 2 {
		t.Fatalf("expected 1-based chunk indexes, got %d and %d", events[1].Index, events[4].Index)
	}
	if events[2].Audio == "" || events[5].Audio == "" {
		t.Fatal("audio events must carry base64 payloads")
	}

	end := events[len(events)-1]
	if end.TotalChunks != 2 {
		t.Fatalf("expected end to report 2 chunks, got %d", end.TotalChunks)
	}
	wantDur := events[1].Duration + events[4].Duration + 0.3
	if diff := end.TotalDuration - wantDur; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected total duration %f, got %f", wantDur, end.TotalDuration)
	}
}

func TestStreamTextEmptyInput(t *testing.T) {
	o, _ := newTestOrchestrator(&llm.MockClient{}, testOptions())

	var events []event.Event
	if err := o.StreamText(context.Background(), "  ", SynthesisParams{}, collectSink(&events)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Type != event.TypeStart || events[1].Type != event.TypeEnd {
		t.Fatalf("expected bare start/end sequence, got %v", events)
	}
	if events[0].TotalChunks != 0 || events[1].TotalChunks != 0 {
		t.Fatal("empty input must announce zero chunks")
	}
}

func TestConversationEndToEnd(t *testing.T) {
	chat := &llm.MockClient{Fragments: []llm.Fragment{
		{Content: "Hello"},
		{Content: " there.", Done: true},
	}}
	o, sessions := newTestOrchestrator(chat, testOptions())

	var events []event.Event
	err := o.Conversation(context.Background(), ConversationRequest{
		ConversationID: "t1",
		Message:        "hi",
		Params:         SynthesisParams{Speed: 1},
	}, collectSink(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if events[0].Type != event.TypeConversationStart || events[0].ConversationID != "t1" {
		t.Fatalf("expected conversation_start for t1 first, got %+v", events[0])
	}

	var text strings.Builder
	var audio []event.Event
	for _, ev := range events {
		switch ev.Type {
		case event.TypeTextChunk:
			text.WriteString(ev.Text)
		case event.TypeAudio:
			audio = append(audio, ev)
		case event.TypeError:
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}
	if text.String() != "Hello there." {
		t.Fatalf("text chunks must concatenate to the full response, got %q", text.String())
	}
	if len(audio) != 1 {
		t.Fatalf("expected exactly one audio event, got %d", len(audio))
	}
	if audio[0].Text != "Hello there." || audio[0].Index != 1 {
		t.Fatalf("unexpected audio event: %+v", audio[0])
	}

	tail := events[len(events)-2]
	if tail.Type != event.TypeConversationEnd || tail.FullResponse != "Hello there." {
		t.Fatalf("expected conversation_end with full response, got %+v", tail)
	}
	if last := events[len(events)-1]; last.Type != event.TypeEnd || last.TotalChunks != 1 {
		t.Fatalf("expected final end event for one chunk, got %+v", last)
	}

	history := sessions.Get("t1")
	if len(history) != 3 ||
		history[0].Role != llm.RoleSystem ||
		history[1].Role != llm.RoleUser || history[1].Content != "hi" ||
		history[2].Role != llm.RoleAssistant || history[2].Content != "Hello there." {
		t.Fatalf("unexpected session history: %+v", history)
	}
}

func TestConversationChatUnavailable(t *testing.T) {
	chat := &llm.MockClient{PingErr: errors.New("connection refused")}
	o, sessions := newTestOrchestrator(chat, testOptions())

	var events []event.Event
	err := o.Conversation(context.Background(), ConversationRequest{
		ConversationID: "dead",
		Message:        "hi",
	}, collectSink(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[1].Type != event.TypeError {
		t.Fatalf("expected conversation_start then error, got %v", events)
	}
	if events[1].Message == "" {
		t.Fatal("liveness failure must carry an actionable message")
	}
	if sessions.Len() != 0 {
		t.Fatal("a failed liveness probe must not create session state")
	}
}

type failingEngine struct{}

func (failingEngine) Ready() bool { return false }
func (failingEngine) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	return tts.Result{}, errors.New("engine exploded")
}

func TestConversationEngineFailureKeepsStreamAlive(t *testing.T) {
	chat := &llm.MockClient{Fragments: []llm.Fragment{
		{Content: "First sentence here. Second sentence here.", Done: true},
	}}
	sessions := session.NewStore()
	o := New(failingEngine{}, chat, sessions, testLogger(), testOptions())

	var events []event.Event
	err := o.Conversation(context.Background(), ConversationRequest{
		ConversationID: "t2",
		Message:        "hi",
	}, collectSink(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var failures, audio int
	for _, ev := range events {
		switch ev.Type {
		case event.TypeError:
			failures++
			if ev.Index == 0 {
				t.Fatalf("phrase errors must carry the phrase index: %+v", ev)
			}
		case event.TypeAudio:
			audio++
		}
	}
	if failures != 2 || audio != 0 {
		t.Fatalf("expected two indexed failures and no audio, got %d/%d", failures, audio)
	}
	if events[len(events)-1].Type != event.TypeEnd {
		t.Fatal("stream must still terminate with an end event")
	}
	if tail := events[len(events)-2]; tail.Type != event.TypeConversationEnd || tail.FullResponse == "" {
		t.Fatalf("expected conversation_end with the full text despite synthesis failures, got %+v", tail)
	}
}

func TestConversationSystemPromptInjectedOnce(t *testing.T) {
	chat := &llm.MockClient{Fragments: []llm.Fragment{{Content: "Sure thing, happy to help.", Done: true}}}
	opts := testOptions()
	opts.SystemPrompt = "Be brief."
	o, sessions := newTestOrchestrator(chat, opts)

	for _, msg := range []string{"first", "second"} {
		var events []event.Event
		err := o.Conversation(context.Background(), ConversationRequest{
			ConversationID: "t3",
			Message:        msg,
		}, collectSink(&events))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history := sessions.Get("t3")
	var systems int
	for _, m := range history {
		if m.Role == llm.RoleSystem {
			systems++
		}
	}
	if systems != 1 || history[0].Role != llm.RoleSystem || history[0].Content != "Be brief." {
		t.Fatalf("expected exactly one leading system message, got %+v", history)
	}
	if len(history) != 5 {
		t.Fatalf("expected system plus two user/assistant pairs, got %d messages", len(history))
	}
}

type recordedTurn struct {
	id, user, assistant string
	seconds             float64
}

type captureRecorder struct {
	turns []recordedTurn
}

func (r *captureRecorder) RecordTurn(ctx context.Context, id, user, assistant string, seconds float64) error {
	r.turns = append(r.turns, recordedTurn{id: id, user: user, assistant: assistant, seconds: seconds})
	return nil
}

func TestConversationRecordsCompletedTurn(t *testing.T) {
	chat := &llm.MockClient{Fragments: []llm.Fragment{{Content: "All done now, thanks.", Done: true}}}
	opts := testOptions()
	rec := &captureRecorder{}
	opts.Recorder = rec
	o, _ := newTestOrchestrator(chat, opts)

	var events []event.Event
	err := o.Conversation(context.Background(), ConversationRequest{
		ConversationID: "t4",
		Message:        "hi",
	}, collectSink(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.turns) != 1 {
		t.Fatalf("expected one recorded turn, got %d", len(rec.turns))
	}
	turn := rec.turns[0]
	if turn.id != "t4" || turn.user != "hi" || turn.assistant != "All done now, thanks." {
		t.Fatalf("unexpected recorded turn: %+v", turn)
	}
	if turn.seconds <= 0 {
		t.Fatalf("expected positive audio duration, got %f", turn.seconds)
	}
}
