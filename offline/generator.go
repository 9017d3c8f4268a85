package offline

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/mixdown-audio/mixdown"
	"github.com/viterin/vek/vek32"
)

// Percussive voices use fixed settings, modelled on a membrane drum: a sine
// gliding down from percussionOctaves octaves above the note over
// percussionPitchDecay seconds, with a short amplitude decay.
const (
	percussionOctaves    = 3
	percussionPitchDecay = 0.05
	percussionAttack     = 0.001
	percussionDecay      = 0.4
	percussionSustain    = 0.01
	percussionRelease    = 1.4
)

// MaxVoices caps the number of simultaneously sounding voices of one
// generator; the oldest voice is dropped when a new one would exceed it.
const MaxVoices = 64

// generator is a polyphonic sound source. Notes are queued by start frame
// and become voices when the block containing their start is rendered.
type generator struct {
	*node
	sampleRate int
	config     mixdown.GeneratorConfig
	gain       float32
	pending    []*voice
	active     []*voice
	mono       []float32
}

type voice struct {
	start, stop int // frames
	frame       int // frames rendered so far
	freq        float64
	velocity    float64
	osc         oscillator
	env         envelope
	filter      *biquad.Section
	percussive  bool
}

func newGenerator(sampleRate int, config mixdown.GeneratorConfig) *generator {
	return &generator{
		sampleRate: sampleRate,
		config:     config,
		gain:       float32(mixdown.DecibelsToGain(config.VolumeDB)),
		mono:       make([]float32, BlockSize),
	}
}

// TriggerAttackRelease queues a note starting at the frame nearest to at and
// released duration seconds later.
func (g *generator) TriggerAttackRelease(frequency, duration, at, velocity float64) {
	if frequency <= 0 || math.IsNaN(frequency) || velocity <= 0 {
		return
	}
	sr := float64(g.sampleRate)
	v := &voice{
		start:    int(math.Round(at * sr)),
		stop:     int(math.Round((at + math.Max(duration, 0)) * sr)),
		freq:     frequency,
		velocity: math.Min(velocity, 1),
	}
	if g.config.Kind == mixdown.GeneratorSynth {
		s := g.config.Synth
		v.osc.shape = s.Oscillator
		v.env = newEnvelope(g.sampleRate, s.Attack, s.Decay, s.Sustain, s.Release)
		if s.FilterCutoff > 0 {
			v.filter = newLowpass(s.FilterCutoff, s.FilterResonance, g.sampleRate)
		}
	} else {
		v.percussive = true
		v.osc.shape = mixdown.OscillatorSine
		v.env = newEnvelope(g.sampleRate, percussionAttack, percussionDecay, percussionSustain, percussionRelease)
	}
	i := sort.Search(len(g.pending), func(i int) bool { return g.pending[i].start > v.start })
	g.pending = append(g.pending, nil)
	copy(g.pending[i+1:], g.pending[i:])
	g.pending[i] = v
}

func (g *generator) process(in, out [][]float32, start int) error {
	frames := len(out[0])
	mono := g.mono[:frames]
	clear(mono)
	for len(g.pending) > 0 && g.pending[0].start < start+frames {
		g.active = append(g.active, g.pending[0])
		g.pending = g.pending[1:]
	}
	if len(g.active) > MaxVoices {
		g.active = g.active[len(g.active)-MaxVoices:]
	}
	sr := float64(g.sampleRate)
	for _, v := range g.active {
		for i := max(v.start-start, 0); i < frames; i++ {
			mono[i] += float32(v.next(sr))
			if v.env.done() {
				break
			}
		}
	}
	g.active = deleteDone(g.active)
	vek32.MulNumber_Inplace(mono, g.gain)
	for c := range out {
		copy(out[c], mono)
	}
	return nil
}

func (v *voice) next(sr float64) float64 {
	if v.frame == v.stop-v.start {
		v.env.noteOff()
	}
	freq := v.freq
	if v.percussive {
		if t := float64(v.frame) / sr; t < percussionPitchDecay {
			freq *= math.Pow(2, percussionOctaves*(1-t/percussionPitchDecay))
		}
	}
	s := v.osc.next(freq, sr)
	if v.filter != nil {
		s = v.filter.ProcessSample(s)
	}
	v.frame++
	return s * v.env.next() * v.velocity
}

func deleteDone(voices []*voice) []*voice {
	ret := voices[:0]
	for _, v := range voices {
		if !v.env.done() {
			ret = append(ret, v)
		}
	}
	clear(voices[len(ret):])
	return ret
}
