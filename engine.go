package mixdown

import (
	"context"
	"errors"
)

type (
	// Engine is the audio synthesis facility a Renderer is built on. It is
	// injected at construction instead of being looked up globally, so tests
	// can substitute their own.
	Engine interface {
		Name() string
		// Available reports whether the engine can render at all; a non-nil
		// error aborts the render before anything is built.
		Available() error
		// Open starts a fresh non-realtime pass. Passes never share nodes.
		Open(config PassConfig) (Pass, error)
	}

	PassConfig struct {
		Channels   int
		SampleRate int
		Seconds    float64
		BPM        float64
	}

	// Pass is a single offline rendering pass: a graph of nodes, a transport
	// holding the scheduled events, and the Run call that renders it.
	Pass interface {
		Destination() Node
		Transport() Transport
		Volume(db float64) Node
		Panner(pan float64) Node
		Effect(effect Effect, bpm float64) (Node, error)
		Generator(config GeneratorConfig) (Generator, error)
		// Run renders the whole pass. Only nodes connected, directly or
		// through other nodes, to Destination are processed.
		Run(ctx context.Context) (AudioBuffer, error)
	}

	// Node is a handle to anything that can be routed: effects, gains,
	// panners, generators and the destination.
	Node interface {
		Connect(dst Node) error
		Disconnect()
		Dispose()
	}

	// Generator is a sound source. Times are absolute seconds from the start
	// of the pass, velocity is normalized to [0, 1].
	Generator interface {
		Node
		TriggerAttackRelease(frequency, duration, at, velocity float64)
	}

	// Transport dispatches scheduled callbacks in time order once started.
	Transport interface {
		SetBPM(bpm float64)
		Schedule(at float64, callback func(at float64))
		Start(offset float64)
	}

	GeneratorKind int

	GeneratorConfig struct {
		Kind     GeneratorKind
		Synth    SynthSettings // only for GeneratorSynth
		VolumeDB float64
	}
)

const (
	GeneratorPercussion GeneratorKind = iota
	GeneratorSynth
)

var (
	ErrEngineUnavailable = errors.New("audio engine unavailable")
	ErrEmptyBuffer       = errors.New("rendered buffer is empty")
)

// GeneratorConfigFor returns the generator configuration of a channel: synth
// channels with settings get an oscillator with their envelope, everything
// else the percussive fallback.
func GeneratorConfigFor(c *Channel) GeneratorConfig {
	ret := GeneratorConfig{Kind: GeneratorPercussion, VolumeDB: GainToDecibels(c.Volume)}
	if c.Type == ChannelSynth && c.SynthSettings != nil {
		ret.Kind = GeneratorSynth
		ret.Synth = *c.SynthSettings
	}
	return ret
}

func (k GeneratorKind) String() string {
	switch k {
	case GeneratorSynth:
		return "synth"
	case GeneratorPercussion:
		return "percussion"
	}
	return "unknown"
}
