package mixdown_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/mixdown-audio/mixdown"
)

// fakeEngine records the graph it is asked to build instead of rendering
// audio. Its passes return silence of the requested length.
type fakeEngine struct {
	unavailable error
	openErr     error
	panicOnRun  bool
	passes      []*fakePass
}

type fakePass struct {
	config     mixdown.PassConfig
	dest       *fakeNode
	transport  *fakeTransport
	nodes      []*fakeNode
	generators []*fakeGenerator
	panicOnRun bool
}

type fakeNode struct {
	kind     string
	value    float64
	outputs  []*fakeNode
	disposed bool
}

type fakeGenerator struct {
	fakeNode
	config   mixdown.GeneratorConfig
	triggers []fakeTrigger
}

type fakeTrigger struct {
	frequency, duration, at, velocity float64
}

type fakeTransport struct {
	bpm     float64
	times   []float64
	events  []func(float64)
	started bool
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Available() error { return e.unavailable }

func (e *fakeEngine) Open(config mixdown.PassConfig) (mixdown.Pass, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	p := &fakePass{config: config, dest: &fakeNode{kind: "destination"}, transport: &fakeTransport{}, panicOnRun: e.panicOnRun}
	e.passes = append(e.passes, p)
	return p, nil
}

func (p *fakePass) Destination() mixdown.Node { return p.dest }

func (p *fakePass) Transport() mixdown.Transport { return p.transport }

func (p *fakePass) Volume(db float64) mixdown.Node { return p.add("volume", db) }

func (p *fakePass) Panner(pan float64) mixdown.Node { return p.add("panner", pan) }

func (p *fakePass) Effect(e mixdown.Effect, bpm float64) (mixdown.Node, error) {
	return p.add(string(e.Type), bpm), nil
}

func (p *fakePass) Generator(config mixdown.GeneratorConfig) (mixdown.Generator, error) {
	g := &fakeGenerator{fakeNode: fakeNode{kind: "generator"}, config: config}
	p.generators = append(p.generators, g)
	return g, nil
}

func (p *fakePass) Run(ctx context.Context) (mixdown.AudioBuffer, error) {
	if p.panicOnRun {
		panic("boom")
	}
	if err := ctx.Err(); err != nil {
		return mixdown.AudioBuffer{}, err
	}
	for i, at := range p.transport.times {
		p.transport.events[i](at)
	}
	frames := int(math.Ceil(p.config.Seconds * float64(p.config.SampleRate)))
	return mixdown.NewAudioBuffer(p.config.Channels, frames, p.config.SampleRate), nil
}

func (p *fakePass) add(kind string, value float64) *fakeNode {
	n := &fakeNode{kind: kind, value: value}
	p.nodes = append(p.nodes, n)
	return n
}

// reachesDestination reports whether audio from n ends up in the output.
func (p *fakePass) reachesDestination(n *fakeNode) bool {
	if n == p.dest {
		return true
	}
	for _, o := range n.outputs {
		if p.reachesDestination(o) {
			return true
		}
	}
	return false
}

func (n *fakeNode) Connect(dst mixdown.Node) error {
	var d *fakeNode
	switch v := dst.(type) {
	case *fakeNode:
		d = v
	case *fakeGenerator:
		return errors.New("cannot connect into a generator")
	default:
		return errors.New("foreign node")
	}
	n.outputs = append(n.outputs, d)
	return nil
}

func (n *fakeNode) Disconnect() { n.outputs = nil }

func (n *fakeNode) Dispose() {
	n.outputs = nil
	n.disposed = true
}

func (g *fakeGenerator) TriggerAttackRelease(frequency, duration, at, velocity float64) {
	g.triggers = append(g.triggers, fakeTrigger{frequency, duration, at, velocity})
}

func (t *fakeTransport) SetBPM(bpm float64) { t.bpm = bpm }

func (t *fakeTransport) Schedule(at float64, callback func(at float64)) {
	t.times = append(t.times, at)
	t.events = append(t.events, callback)
}

func (t *fakeTransport) Start(offset float64) { t.started = true }

func loadProject(t *testing.T, name string) mixdown.Project {
	t.Helper()
	p, err := mixdown.LoadProject(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("could not load project: %v", err)
	}
	return p
}
