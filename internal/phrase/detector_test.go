package phrase

import (
	"reflect"
	"strings"
	"testing"
)

func feedAll(d *Detector, text string, chunkSize int) []string {
	var phrases []string
	for i := 0; i < len(text); i += chunkSize {
		end := i + chunkSize
		if end > len(text) {
			end = len(text)
		}
		phrases = append(phrases, d.Feed(text[i:end])...)
	}
	if tail, ok := d.Flush(); ok {
		phrases = append(phrases, tail)
	}
	return phrases
}

func TestDetectorSentenceBoundaries(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	phrases := d.Feed("Hello world. This is great!")
	want := []string{"Hello world.", "This is great!"}
	if !reflect.DeepEqual(phrases, want) {
		t.Fatalf("got %q, want %q", phrases, want)
	}
	if tail, ok := d.Flush(); ok {
		t.Fatalf("unexpected tail %q", tail)
	}
}

func TestDetectorChunkBoundaryIndependence(t *testing.T) {
	text := "Hello world. This is great!"
	whole := feedAll(NewDetector(DefaultPolicy()), text, len(text))
	for _, size := range []int{1, 2, 3, 7} {
		chunked := feedAll(NewDetector(DefaultPolicy()), text, size)
		if !reflect.DeepEqual(chunked, whole) {
			t.Fatalf("chunk size %d diverged: %q vs %q", size, chunked, whole)
		}
	}
}

func TestDetectorForcedCutPrefersWordBoundary(t *testing.T) {
	// 85-character run-on with its only space at position 40: the first cut
	// must land on the word boundary, not at the 80-byte cap.
	runOn := strings.Repeat("a", 40) + " " + strings.Repeat("b", 44)
	d := NewDetector(DefaultPolicy())
	phrases := d.Feed(runOn)
	if len(phrases) != 1 {
		t.Fatalf("expected one phrase, got %q", phrases)
	}
	if phrases[0] != strings.Repeat("a", 40) {
		t.Fatalf("cut at %d bytes, want 40", len(phrases[0]))
	}
}

func TestDetectorForcedCutAtCapWithoutBoundary(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	phrases := d.Feed(strings.Repeat("x", 90))
	if len(phrases) != 1 || len(phrases[0]) != 80 {
		t.Fatalf("expected a hard cut at the cap, got %q", phrases)
	}
	if d.Pending() != strings.Repeat("x", 10) {
		t.Fatalf("unexpected remainder %q", d.Pending())
	}
}

func TestDetectorStrongPunctuation(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	phrases := d.Feed("Short one; and more arrives")
	if len(phrases) == 0 || phrases[0] != "Short one;" {
		t.Fatalf("expected strong punctuation cut, got %q", phrases)
	}
}

func TestDetectorCommaFallback(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	text := strings.Repeat("x", 25) + "," + strings.Repeat("y", 10)
	phrases := d.Feed(text)
	if len(phrases) != 1 || phrases[0] != strings.Repeat("x", 25)+"," {
		t.Fatalf("expected comma cut, got %q", phrases)
	}
}

func TestDetectorFlushDrainsTail(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	if phrases := d.Feed("short tail"); len(phrases) != 0 {
		t.Fatalf("unexpected early phrases %q", phrases)
	}
	tail, ok := d.Flush()
	if !ok || tail != "short tail" {
		t.Fatalf("flush returned %q/%v", tail, ok)
	}
	if _, ok := d.Flush(); ok {
		t.Fatal("second flush must be empty")
	}
}

func TestDetectorNeverGrowsUnbounded(t *testing.T) {
	d := NewDetector(DefaultPolicy())
	for i := 0; i < 100; i++ {
		d.Feed("wordwithoutspaces")
		if len(d.Pending()) > d.policy.MaxPhraseLength+17 {
			t.Fatalf("pending grew to %d bytes", len(d.Pending()))
		}
	}
}
