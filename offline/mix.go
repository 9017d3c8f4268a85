package offline

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type gain struct {
	gain float32
}

func (g *gain) process(in, out [][]float32, start int) error {
	for c := range out {
		vek32.MulNumber_Into(out[c], in[c], g.gain)
	}
	return nil
}

// panner is an equal-power stereo panner, following the Web Audio
// StereoPannerNode: centered it passes audio through unchanged, panned
// left it folds part of the right channel into the left. Buffers with
// other than two channels pass through.
type panner struct {
	pan          float64
	gainL, gainR float32
}

func newPanner(pan float64) *panner {
	pan = math.Min(math.Max(pan, -1), 1)
	x := pan
	if pan <= 0 {
		x = pan + 1
	}
	return &panner{
		pan:   pan,
		gainL: float32(math.Cos(x * math.Pi / 2)),
		gainR: float32(math.Sin(x * math.Pi / 2)),
	}
}

func (p *panner) process(in, out [][]float32, start int) error {
	if len(out) != 2 {
		for c := range out {
			copy(out[c], in[c])
		}
		return nil
	}
	l, r := in[0], in[1]
	outL, outR := out[0], out[1]
	if p.pan <= 0 {
		for i := range outL {
			outL[i] = l[i] + r[i]*p.gainL
			outR[i] = r[i] * p.gainR
		}
		return nil
	}
	for i := range outL {
		outL[i] = l[i] * p.gainL
		outR[i] = r[i] + l[i]*p.gainR
	}
	return nil
}
