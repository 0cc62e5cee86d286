package phrase

import (
	"regexp"
	"strings"
	"testing"
)

var ws = regexp.MustCompile(`\s+`)

func normalizeWS(s string) string {
	return strings.TrimSpace(ws.ReplaceAllString(s, " "))
}

func TestSegmentReconstruction(t *testing.T) {
	text := "The system starts quickly. It streams audio as soon as the first phrase is ready.\n\nLatency matters more than throughput here. Each phrase is synthesized independently, so errors stay contained."
	phrases := Segment(text, 120)
	if len(phrases) == 0 {
		t.Fatal("expected phrases")
	}
	for _, p := range phrases {
		if p == "" {
			t.Fatal("empty phrase produced")
		}
	}
	if got, want := normalizeWS(strings.Join(phrases, " ")), normalizeWS(text); got != want {
		t.Fatalf("reconstruction mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestSegmentRespectsMaxLength(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine. Ten eleven twelve."
	for _, p := range Segment(text, 30) {
		if len(p) > 30 {
			t.Fatalf("phrase %q exceeds max length", p)
		}
	}
}

func TestSegmentPacksSentences(t *testing.T) {
	phrases := Segment("Hi there. All good.", 40)
	if len(phrases) != 1 || phrases[0] != "Hi there. All good." {
		t.Fatalf("expected one packed phrase, got %q", phrases)
	}
}

func TestSegmentKeepsOverlongSentenceWhole(t *testing.T) {
	long := "This single sentence is far longer than the configured maximum and must never be truncated."
	phrases := Segment(long, 20)
	if len(phrases) != 1 || phrases[0] != long {
		t.Fatalf("overlong sentence mishandled: %q", phrases)
	}
}

func TestSegmentAbbreviationsDoNotSplit(t *testing.T) {
	text := "Dr. Smith met Mr. Jones at Acme Inc. yesterday. They discussed budgets, staffing, etc. before lunch."
	phrases := Segment(text, 0)
	if len(phrases) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %q", len(phrases), phrases)
	}
	if !strings.HasPrefix(phrases[0], "Dr. Smith") || !strings.HasSuffix(phrases[0], "yesterday.") {
		t.Fatalf("first sentence split at an abbreviation: %q", phrases[0])
	}
}

func TestSegmentInitialsDoNotSplit(t *testing.T) {
	phrases := Segment("J. R. Hartley wrote it. Nobody read it.", 0)
	if len(phrases) != 2 {
		t.Fatalf("expected 2 sentences, got %q", phrases)
	}
}

func TestSegmentZeroMaxDisablesCapping(t *testing.T) {
	text := "First sentence here. Second sentence here."
	phrases := Segment(text, 0)
	if len(phrases) != 2 {
		t.Fatalf("expected one phrase per sentence, got %q", phrases)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	if phrases := Segment("", 80); len(phrases) != 0 {
		t.Fatalf("expected no phrases, got %q", phrases)
	}
	if phrases := Segment("\n\n  \n\n", 80); len(phrases) != 0 {
		t.Fatalf("expected no phrases for blank input, got %q", phrases)
	}
}

func TestNormalizeStripsMarkup(t *testing.T) {
	got := Normalize("**Hello**  `world` 👋\n\nall *good*")
	if got != "Hello world all good" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
