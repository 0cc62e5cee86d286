package phrase

import (
	"strings"
	"unicode/utf8"
)

// Detector turns an arbitrarily-chunked text stream into phrase boundaries.
// It keeps a single pending buffer across Feed calls; Flush drains the tail
// when the upstream signals completion. Not safe for concurrent use; one
// Detector serves exactly one streaming request.
type Detector struct {
	policy  Policy
	pending string
}

func NewDetector(policy Policy) *Detector {
	return &Detector{policy: policy}
}

// Feed appends newly arrived text and returns every phrase whose boundary is
// now available, in order. The same text fed in different chunkings produces
// the same phrase sequence.
func (d *Detector) Feed(text string) []string {
	d.pending += text

	var phrases []string
	for {
		d.pending = strings.TrimLeft(d.pending, " \t\r\n")
		cut := d.findCut(d.pending)
		if cut <= 0 {
			return phrases
		}
		segment := strings.TrimSpace(d.pending[:cut])
		d.pending = d.pending[cut:]
		if segment != "" {
			phrases = append(phrases, segment)
		}
	}
}

// Flush returns the remaining pending text, trimmed, and resets state.
// The second return is false when nothing was buffered.
func (d *Detector) Flush() (string, bool) {
	tail := strings.TrimSpace(d.pending)
	d.pending = ""
	return tail, tail != ""
}

// Pending reports the unflushed tail; used by tests and debug logging.
func (d *Detector) Pending() string { return d.pending }

// findCut applies the priority cascade to the buffer and returns the cut
// position, or 0 when no boundary is available yet.
func (d *Detector) findCut(b string) int {
	if b == "" {
		return 0
	}
	min := float64(d.policy.MinPhraseLength)

	// Sentence-ending punctuation followed by whitespace or end of buffer is
	// always eligible; the cut lands after the trailing whitespace.
	for i := 0; i < len(b); i++ {
		if b[i] != '.' && b[i] != '!' && b[i] != '?' {
			continue
		}
		if i == len(b)-1 {
			return len(b)
		}
		if isSpace(b[i+1]) {
			return i + 2
		}
	}

	// Strong punctuation once the cut point clears the scaled minimum.
	for i := 0; i < len(b)-1; i++ {
		if (b[i] == ';' || b[i] == ':') && isSpace(b[i+1]) {
			if cut := i + 2; float64(cut) >= min*d.policy.StrongPunctFactor {
				return cut
			}
			break
		}
	}

	// Plain word boundary once the buffer itself is long enough.
	if len(b) >= d.policy.MinPhraseLength {
		if sp := strings.LastIndexByte(b, ' '); sp >= 0 && float64(sp) >= min*d.policy.WordCutFactor {
			return sp + 1
		}
	}

	// Comma boundary, held back until the buffer is clearly overdue.
	if float64(len(b)) >= min*d.policy.CommaBufferFactor {
		for i := 0; i < len(b); i++ {
			if b[i] == ',' {
				if cut := i + 1; float64(cut) >= min*d.policy.CommaCutFactor {
					return cut
				}
			}
		}
	}

	// Forced cut at the cap. Prefer the last word boundary before it; cut on
	// the cap exactly when no boundary reaches the minimum or the buffer has
	// overrun too far.
	max := d.policy.MaxPhraseLength
	if len(b) >= max {
		sp := strings.LastIndexByte(b[:max], ' ')
		if sp >= d.policy.MinPhraseLength && float64(len(b)) <= float64(max)*d.policy.OverrunFactor {
			return sp + 1
		}
		return runeAlignedCut(b, max)
	}
	return 0
}

// runeAlignedCut backs a byte offset up to the nearest rune start so a
// mid-word forced cut never splits a multi-byte character.
func runeAlignedCut(b string, cut int) int {
	if cut >= len(b) {
		return len(b)
	}
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	if cut == 0 {
		return len(b)
	}
	return cut
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
