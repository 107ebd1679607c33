package stream

import "strings"

// tailWindow bounds how far back the detector looks when a marker phrase
// spans multiple deltas. Longer than any marker phrase.
const tailWindow = 64

// MarkerDetector decides whether the reasoning-to-answer transition occurs
// within the given delta. tail is the trailing window of text accumulated
// before the delta, so phrases split across delta boundaries still match.
type MarkerDetector interface {
	Detect(tail, delta string) bool
}

type phraseDetector struct {
	phrases []string
}

// NewMarkerDetector returns the default detector: a fixed set of
// transition phrases plus the opening of a fenced code block. Matching is
// case-insensitive.
func NewMarkerDetector() MarkerDetector {
	return &phraseDetector{
		phrases: []string{
			"now i'll",
			"now, let me provide my answer",
			"now let me provide my answer",
			"here's my answer",
			"here is my answer",
			"```",
		},
	}
}

func (p *phraseDetector) Detect(tail, delta string) bool {
	if delta == "" {
		return false
	}
	window := strings.ToLower(Tail(tail, tailWindow) + delta)
	before := strings.ToLower(Tail(tail, tailWindow))
	for _, phrase := range p.phrases {
		// The phrase must complete inside this delta, not already be
		// present in the accumulated tail.
		if strings.Contains(window, phrase) && !strings.Contains(before, phrase) {
			return true
		}
	}
	return false
}

// Tail returns the last n bytes of s.
func Tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
