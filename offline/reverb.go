package offline

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-vecmath"
	"github.com/mixdown-audio/mixdown"
)

// impulseSeed makes generated impulse responses, and thus renders,
// reproducible.
const impulseSeed = 0x6d6978646f776e

// reverbBlockOrder sets the smallest convolution partition, 2^6 frames. That
// is also the latency of the convolution engine.
const reverbBlockOrder = 6

// convolutionReverb convolves its input with a generated impulse response:
// decaying noise, silent for the pre-delay and down by 60 dB after decay
// seconds. The engine latency is taken out of the pre-delay, so the wet
// signal is only late when the pre-delay is shorter than the latency.
type convolutionReverb struct {
	channels []*reverb.ConvolutionReverb
	lag      int // frames the wet signal trails the impulse response
	buf      []float64
}

func newReverb(channels, sampleRate int, p mixdown.ReverbParams) (*convolutionReverb, error) {
	wet := math.Min(math.Max(p.Wet, 0), 1)
	r := &convolutionReverb{
		channels: make([]*reverb.ConvolutionReverb, channels),
		buf:      make([]float64, BlockSize),
	}
	shift := min(1<<reverbBlockOrder, preDelayFrames(sampleRate, p.PreDelay))
	for c := range r.channels {
		ir := impulseResponse(sampleRate, p.PreDelay, p.Decay, uint64(c))
		cr, err := reverb.NewConvolutionReverb(ir[shift:], reverbBlockOrder)
		if err != nil {
			return nil, fmt.Errorf("reverb: %w", err)
		}
		cr.SetWetDry(wet, 1-wet)
		r.channels[c] = cr
		r.lag = cr.Latency() - shift
	}
	return r, nil
}

func preDelayFrames(sampleRate int, preDelay float64) int {
	return int(math.Round(math.Max(preDelay, 0) * float64(sampleRate)))
}

// impulseResponse generates exponentially decaying white noise normalized
// to unit energy. Each stream gives a differently seeded, decorrelated
// response.
func impulseResponse(sampleRate int, preDelay, decay float64, stream uint64) []float64 {
	sr := float64(sampleRate)
	pre := preDelayFrames(sampleRate, preDelay)
	tail := max(int(math.Round(math.Max(decay, 0)*sr)), 1)
	ir := make([]float64, pre+tail)
	rng := rand.New(rand.NewPCG(impulseSeed, stream))
	k := math.Log(1000) / float64(tail) // -60 dB at the end of the tail
	var energy float64
	for i := range tail {
		v := (2*rng.Float64() - 1) * math.Exp(-k*float64(i))
		ir[pre+i] = v
		energy += v * v
	}
	if energy > 0 {
		vecmath.ScaleBlock(ir, ir, 1/math.Sqrt(energy))
	}
	return ir
}

func (r *convolutionReverb) process(in, out [][]float32, start int) error {
	frames := len(out[0])
	if len(r.buf) < frames {
		r.buf = make([]float64, frames)
	}
	buf := r.buf[:frames]
	for c := range out {
		for i, x := range in[c] {
			buf[i] = float64(x)
		}
		if err := r.channels[c].ProcessInPlace(buf); err != nil {
			return err
		}
		for i, v := range buf {
			out[c][i] = float32(v)
		}
	}
	return nil
}
