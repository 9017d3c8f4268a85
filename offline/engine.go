// Package offline is a pure-Go non-realtime audio engine. It renders a graph
// of nodes (generators, gains, panners, effects) block by block into a
// buffer, pulling audio from the destination towards the sources.
package offline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mixdown-audio/mixdown"
)

// BlockSize is the number of frames rendered per processing block. Events
// are still sample accurate: generators start notes at their exact frame
// within a block.
const BlockSize = 512

// MaxSeconds caps the length of a single pass.
const MaxSeconds = 60 * 60

type (
	// Engine implements mixdown.Engine. The zero value is ready to use. Passes
	// share no state and may run concurrently.
	Engine struct{}

	// Pass is one offline rendering pass. It owns every node created from it.
	Pass struct {
		channels   int
		sampleRate int
		frames     int
		bpm        float64
		dest       *node
		transport  *Transport
		nodes      []*node
	}
)

var (
	ErrDisposed      = errors.New("node has been disposed")
	ErrForeignNode   = errors.New("node belongs to another pass")
	ErrCycle         = errors.New("connection would create a cycle")
	ErrInvalidPass   = errors.New("invalid pass configuration")
	errUnknownEffect = errors.New("unknown effect type")
)

func (Engine) Name() string { return "offline" }

func (Engine) Available() error { return nil }

func (Engine) Open(config mixdown.PassConfig) (mixdown.Pass, error) {
	return NewPass(config)
}

// NewPass validates config and creates an empty pass.
func NewPass(config mixdown.PassConfig) (*Pass, error) {
	if config.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidPass, config.Channels)
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidPass, config.SampleRate)
	}
	if config.Seconds < 0 || config.Seconds > MaxSeconds || math.IsNaN(config.Seconds) {
		return nil, fmt.Errorf("%w: length %v seconds", ErrInvalidPass, config.Seconds)
	}
	p := &Pass{
		channels:   config.Channels,
		sampleRate: config.SampleRate,
		frames:     int(math.Ceil(config.Seconds * float64(config.SampleRate))),
		bpm:        config.BPM,
		transport:  &Transport{bpm: config.BPM},
	}
	p.dest = p.newNode(passthrough{}, true)
	return p, nil
}

func (p *Pass) Destination() mixdown.Node { return p.dest }

func (p *Pass) Transport() mixdown.Transport { return p.transport }

func (p *Pass) Volume(db float64) mixdown.Node {
	return p.newNode(&gain{gain: float32(mixdown.DecibelsToGain(db))}, true)
}

func (p *Pass) Panner(pan float64) mixdown.Node {
	return p.newNode(newPanner(pan), true)
}

// Effect instantiates an insert effect. Delays with a tempo sync use bpm,
// or the tempo of the pass when bpm is not positive, to resolve their delay
// time.
func (p *Pass) Effect(e mixdown.Effect, bpm float64) (mixdown.Node, error) {
	if bpm <= 0 {
		bpm = p.bpm
	}
	var (
		proc processor
		err  error
	)
	switch e.Type {
	case mixdown.EffectEQ:
		proc, err = newEQ3(p.channels, p.sampleRate, e.EQ())
	case mixdown.EffectCompressor:
		proc, err = newCompressor(p.channels, p.sampleRate, e.Compressor())
	case mixdown.EffectReverb:
		proc, err = newReverb(p.channels, p.sampleRate, e.Reverb())
	case mixdown.EffectDelay:
		proc, err = newDelay(p.channels, p.sampleRate, e.Delay(), bpm)
	default:
		return nil, fmt.Errorf("%w %q", errUnknownEffect, e.Type)
	}
	if err != nil {
		return nil, err
	}
	return p.newNode(proc, true), nil
}

func (p *Pass) Generator(config mixdown.GeneratorConfig) (mixdown.Generator, error) {
	g := newGenerator(p.sampleRate, config)
	g.node = p.newNode(g, false)
	return g, nil
}

// Run renders the pass. Transport events are dispatched before the block
// they fall in is rendered.
func (p *Pass) Run(ctx context.Context) (mixdown.AudioBuffer, error) {
	ret := mixdown.NewAudioBuffer(p.channels, p.frames, p.sampleRate)
	for start, block := 0, 0; start < p.frames; start, block = start+BlockSize, block+1 {
		if block%64 == 0 {
			if err := ctx.Err(); err != nil {
				return mixdown.AudioBuffer{}, err
			}
		}
		n := min(BlockSize, p.frames-start)
		p.transport.dispatch(float64(start+n) / float64(p.sampleRate))
		out, err := p.dest.pull(block, start, n)
		if err != nil {
			return mixdown.AudioBuffer{}, fmt.Errorf("block %d: %w", block, err)
		}
		for c := range ret.Data {
			copy(ret.Data[c][start:start+n], out[c][:n])
		}
	}
	return ret, nil
}

type passthrough struct{}

func (passthrough) process(in, out [][]float32, start int) error {
	for c := range out {
		copy(out[c], in[c])
	}
	return nil
}
