package offline

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/mixdown-audio/mixdown"
)

type oscillator struct {
	shape mixdown.OscillatorType
	phase float64 // 0..1
}

// next returns the current sample and advances the phase by freq/sampleRate.
func (o *oscillator) next(freq, sampleRate float64) float64 {
	var v float64
	switch o.shape {
	case mixdown.OscillatorSquare:
		v = 1
		if o.phase >= 0.5 {
			v = -1
		}
	case mixdown.OscillatorSawtooth:
		v = 2*o.phase - 1
	case mixdown.OscillatorTriangle:
		v = 1 - 4*math.Abs(o.phase-0.5)
	default:
		v = math.Sin(2 * math.Pi * o.phase)
	}
	o.phase += freq / sampleRate
	o.phase -= math.Floor(o.phase)
	return v
}

// newLowpass returns an RBJ cookbook lowpass section. The cutoff is kept
// below Nyquist.
func newLowpass(cutoff, q float64, sampleRate int) *biquad.Section {
	sr := float64(sampleRate)
	cutoff = math.Min(math.Max(cutoff, 10), sr*0.45)
	return biquad.NewSection(design.Lowpass(cutoff, q, sr))
}
