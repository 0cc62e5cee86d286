// Package phrase segments text into speakable units, either from a complete
// document (Segment) or incrementally from a live token stream (Detector).
package phrase

import (
	"regexp"
	"strings"
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// abbreviations never end a sentence even when followed by whitespace.
// Fixed inclusion set; matched case-insensitively against the final token.
var abbreviations = map[string]struct{}{
	"mr.": {}, "mrs.": {}, "ms.": {}, "dr.": {}, "prof.": {}, "rev.": {},
	"sr.": {}, "jr.": {}, "st.": {}, "gen.": {}, "hon.": {},
	"etc.": {}, "e.g.": {}, "i.e.": {}, "vs.": {}, "no.": {}, "al.": {},
	"inc.": {}, "ltd.": {}, "corp.": {}, "co.": {},
}

var initialToken = regexp.MustCompile(`^[A-Z]\.$`)

// Segment splits a complete text into phrases no longer than maxLen bytes,
// packing whole sentences greedily within each paragraph. maxLen of 0
// disables capping: one phrase per sentence regardless of length. A sentence
// that alone exceeds maxLen is kept whole, never truncated. Empty input
// yields nil.
func Segment(text string, maxLen int) []string {
	var phrases []string
	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sentences := splitSentences(para)
		if maxLen <= 0 {
			phrases = append(phrases, sentences...)
			continue
		}

		var current string
		for _, s := range sentences {
			switch {
			case current == "":
				current = s
			case len(current)+1+len(s) <= maxLen:
				current += " " + s
			default:
				phrases = append(phrases, current)
				current = s
			}
		}
		if current != "" {
			phrases = append(phrases, current)
		}
	}
	return phrases
}

// splitSentences breaks a paragraph on sentence-ending punctuation followed
// by whitespace, keeping recognized abbreviations and single-letter initials
// attached to the sentence they belong to.
func splitSentences(para string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(para); i++ {
		c := para[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(para) && !isSpace(para[i+1]) {
			continue
		}
		if c == '.' && endsWithAbbreviation(para[start:i+1]) {
			continue
		}
		if s := strings.TrimSpace(para[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(para[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(s string) bool {
	sp := strings.LastIndexByte(s, ' ')
	token := s[sp+1:]
	if initialToken.MatchString(token) {
		return true
	}
	_, ok := abbreviations[strings.ToLower(token)]
	return ok
}
