package offline

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/filter/crossover"
	"github.com/mixdown-audio/mixdown"
)

// eqOrder is the Linkwitz-Riley order of the band splits.
const eqOrder = 4

// eq3 splits the signal into three bands with two Linkwitz-Riley crossovers
// and sums them back with per band gains. A flat eq is bypassed, since the
// summed bands are allpass and not an identity.
type eq3 struct {
	low, mid, high float64
	flat           bool
	bands          []*crossover.MultiBand // one per channel
}

func newEQ3(channels, sampleRate int, p mixdown.EQParams) (*eq3, error) {
	sr := float64(sampleRate)
	lo := math.Min(math.Max(p.LowFrequency, 10), sr*0.45)
	hi := math.Min(math.Max(p.HighFrequency, 10), sr*0.45)
	if hi <= lo {
		hi = math.Min(lo*2, sr*0.45)
		if hi <= lo {
			lo = hi / 2
		}
	}
	e := &eq3{
		low:   mixdown.DecibelsToGain(p.Low),
		mid:   mixdown.DecibelsToGain(p.Mid),
		high:  mixdown.DecibelsToGain(p.High),
		flat:  p.Low == 0 && p.Mid == 0 && p.High == 0,
		bands: make([]*crossover.MultiBand, channels),
	}
	for c := range e.bands {
		mb, err := crossover.NewMultiBand([]float64{lo, hi}, eqOrder, sr)
		if err != nil {
			return nil, fmt.Errorf("eq: %w", err)
		}
		e.bands[c] = mb
	}
	return e, nil
}

func (e *eq3) reset() {
	for _, mb := range e.bands {
		mb.Reset()
	}
}

func (e *eq3) process(in, out [][]float32, start int) error {
	if e.flat {
		for c := range out {
			copy(out[c], in[c])
		}
		return nil
	}
	for c := range out {
		stages := e.bands[c].Stages()
		for i, x := range in[c] {
			low, rest := stages[0].ProcessSample(float64(x))
			mid, high := stages[1].ProcessSample(rest)
			out[c][i] = float32(low*e.low + mid*e.mid + high*e.high)
		}
	}
	return nil
}

// Attack and release limits of the compressor, in milliseconds.
const (
	minAttackMs  = 0.1
	maxAttackMs  = 1000
	minReleaseMs = 1
	maxReleaseMs = 5000
)

// compressor is a hard knee feed forward compressor. The detector follows
// the loudest channel so that the stereo image does not shift under gain
// reduction.
type compressor struct {
	detector *dynamics.Compressor
}

func newCompressor(channels, sampleRate int, p mixdown.CompressorParams) (*compressor, error) {
	d, err := dynamics.NewCompressor(float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("compressor: %w", err)
	}
	threshold := p.Threshold
	if math.IsInf(threshold, 0) || math.IsNaN(threshold) {
		threshold = 0
	}
	for _, set := range []func() error{
		func() error { return d.SetKnee(0) },
		func() error { return d.SetMakeupGain(0) },
		func() error { return d.SetThreshold(threshold) },
		func() error { return d.SetRatio(math.Min(math.Max(p.Ratio, 1), 100)) },
		func() error { return d.SetAttack(math.Min(math.Max(p.Attack*1000, minAttackMs), maxAttackMs)) },
		func() error { return d.SetRelease(math.Min(math.Max(p.Release*1000, minReleaseMs), maxReleaseMs)) },
	} {
		if err := set(); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
	}
	return &compressor{detector: d}, nil
}

func (c *compressor) process(in, out [][]float32, start int) error {
	frames := len(out[0])
	for i := 0; i < frames; i++ {
		var peak float64
		for ch := range in {
			peak = math.Max(peak, math.Abs(float64(in[ch][i])))
		}
		g := float32(1)
		if y := c.detector.ProcessSample(peak); peak > 0 {
			g = float32(y / peak)
		}
		for ch := range out {
			out[ch][i] = in[ch][i] * g
		}
	}
	return nil
}

// Delay time and feedback limits.
const (
	MinDelayTime = 0.001
	MaxDelayTime = 2
	// MaxFeedback keeps the delay loop from running away.
	MaxFeedback = 0.95
)

// delay is a feedback delay line per channel.
type delay struct {
	lines      []*effects.Delay
	sampleRate int
}

func newDelay(channels, sampleRate int, p mixdown.DelayParams, bpm float64) (*delay, error) {
	t := p.DelayTime
	if p.Sync != "" && bpm > 0 {
		if s, err := mixdown.NoteValueSeconds(p.Sync, bpm); err == nil {
			t = s
		}
	}
	t = math.Min(math.Max(t, MinDelayTime), MaxDelayTime)
	d := &delay{lines: make([]*effects.Delay, channels), sampleRate: sampleRate}
	for c := range d.lines {
		line, err := effects.NewDelay(float64(sampleRate))
		if err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
		if err := line.SetTime(t); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
		if err := line.SetFeedback(math.Min(math.Max(p.Feedback, 0), MaxFeedback)); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
		if err := line.SetMix(math.Min(math.Max(p.Wet, 0), 1)); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
		d.lines[c] = line
	}
	return d, nil
}

// length returns the delay time in frames.
func (d *delay) length() int {
	return int(math.Round(d.lines[0].Time() * float64(d.sampleRate)))
}

func (d *delay) process(in, out [][]float32, start int) error {
	for c := range out {
		line := d.lines[c]
		for i, x := range in[c] {
			out[c][i] = float32(line.ProcessSample(float64(x)))
		}
	}
	return nil
}
