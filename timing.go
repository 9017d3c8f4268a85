package mixdown

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TicksToSeconds converts a position in ticks to seconds at a constant
// tempo. bpm and ppq must be > 0; Project.Validate checks that upstream.
func TicksToSeconds(ticks, bpm float64, ppq int) float64 {
	return ticks / float64(ppq) * (60 / bpm)
}

// SecondsToTicks is the inverse of TicksToSeconds.
func SecondsToTicks(seconds, bpm float64, ppq int) float64 {
	return seconds * bpm / 60 * float64(ppq)
}

// NoteFrequency returns the equal-tempered frequency of a MIDI note number,
// A4 (69) being 440 Hz.
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// DecibelsToGain converts decibels to linear gain; -Inf gives 0.
func DecibelsToGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

// GainToDecibels converts linear gain to decibels; 0 and below give -Inf.
func GainToDecibels(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

// NoteValueSeconds returns the length of a tempo-relative note value in
// seconds: "4n" is a quarter note, "8n." a dotted eighth, "8t" an eighth
// triplet and "1m" one 4/4 measure.
func NoteValueSeconds(value string, bpm float64) (float64, error) {
	quarter := 60 / bpm
	s := strings.TrimSpace(value)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note value %q", value)
	}
	dotted := strings.HasSuffix(s, ".")
	s = strings.TrimSuffix(s, ".")
	kind := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid note value %q", value)
	}
	var ret float64
	switch kind {
	case 'n':
		ret = quarter * 4 / float64(n)
	case 't':
		ret = quarter * 4 / float64(n) * 2 / 3
	case 'm':
		ret = quarter * 4 * float64(n)
	default:
		return 0, fmt.Errorf("invalid note value %q", value)
	}
	if dotted {
		ret *= 1.5
	}
	return ret, nil
}
