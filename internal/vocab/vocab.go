// Package vocab detects which of a scenario's key vocabulary terms a learner
// actually used in a spoken turn.
//
// Transcriptions of learner speech are noisy: tones are dropped, spellings
// drift, and the STT model sometimes anglicises words. Exact substring
// matching would punish learners for the transcriber's mistakes, so the
// detector combines Double Metaphone phonetic encoding with Jaro-Winkler
// string similarity:
//
//  1. The transcription is split into sliding n-gram windows sized to each
//     target term.
//  2. A window becomes a phonetic candidate when any of its Double Metaphone
//     codes overlap with the term's codes.
//  3. Phonetic candidates are accepted when their Jaro-Winkler similarity
//     to the term clears the phonetic threshold; windows with no phonetic
//     overlap must clear a stricter fuzzy threshold instead.
//
// Multi-word terms ("Eelo ni?") are handled by matching windows of the same
// token length.
package vocab

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Hit records one detected use of a vocabulary term.
type Hit struct {
	// Term is the vocabulary entry as written in the scenario pack.
	Term string

	// Heard is the transcription window that matched.
	Heard string

	// Confidence is the Jaro-Winkler similarity of the match (0.0 to 1.0).
	Confidence float64
}

// Option is a functional option for configuring a [Detector].
type Option func(*Detector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched window to count as a hit. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required for a
// window with no phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.fuzzyThreshold = threshold
	}
}

// Detector finds vocabulary term usages in transcribed learner speech.
// All methods are safe for concurrent use; the Detector is read-only after
// construction.
type Detector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Detector] configured with the supplied options.
func New(opts ...Option) *Detector {
	d := &Detector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns one [Hit] per term that appears in the transcription, in
// term order. A term is reported at most once with its best-scoring window.
func (d *Detector) Detect(transcription string, terms []string) []Hit {
	tokens := tokenize(transcription)
	if len(tokens) == 0 || len(terms) == 0 {
		return nil
	}

	var hits []Hit
	for _, term := range terms {
		termTokens := tokenize(term)
		if len(termTokens) == 0 {
			continue
		}
		if heard, score, ok := d.bestWindow(tokens, termTokens); ok {
			hits = append(hits, Hit{Term: term, Heard: heard, Confidence: score})
		}
	}
	return hits
}

// bestWindow slides a window of len(termTokens) across the transcription
// tokens and returns the best-scoring accepted window.
func (d *Detector) bestWindow(tokens, termTokens []string) (heard string, score float64, ok bool) {
	termJoined := strings.Join(termTokens, " ")
	termCodes := codesForTokens(termTokens)

	n := len(termTokens)
	if n > len(tokens) {
		n = len(tokens)
	}

	for i := 0; i+n <= len(tokens); i++ {
		window := tokens[i : i+n]
		windowJoined := strings.Join(window, " ")

		phonetic := codesOverlap(termCodes, codesForTokens(window))
		jw := bestJWScore(window, termTokens, windowJoined, termJoined)

		threshold := d.fuzzyThreshold
		if phonetic {
			threshold = d.phoneticThreshold
		}
		if jw >= threshold && jw > score {
			heard, score, ok = windowJoined, jw, true
		}
	}
	return heard, score, ok
}

// tokenize lowercases s and splits it into words, stripping punctuation but
// keeping letters with combining marks (tone diacritics are significant in
// the target languages).
func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Fields(cleaned)
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between a window
// and a term using full-string, space-stripped, and best pairwise token
// comparisons.
func bestJWScore(windowTokens, termTokens []string, windowFull, termFull string) float64 {
	score := matchr.JaroWinkler(windowFull, termFull, false)

	if len(windowTokens) > 1 || len(termTokens) > 1 {
		concat1 := strings.Join(windowTokens, "")
		concat2 := strings.Join(termTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, wt := range windowTokens {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(wt, tt, false); s > score {
				score = s
			}
		}
	}

	return score
}
