package offline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mixdown-audio/mixdown"
)

func newTestPass(t *testing.T, channels, sampleRate int, seconds float64) *Pass {
	t.Helper()
	p, err := NewPass(mixdown.PassConfig{Channels: channels, SampleRate: sampleRate, Seconds: seconds, BPM: 120})
	if err != nil {
		t.Fatalf("NewPass failed: %v", err)
	}
	return p
}

// constant outputs the same value on every channel.
type constant struct {
	value float32
	calls int
}

func (c *constant) process(in, out [][]float32, start int) error {
	c.calls++
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] = c.value
		}
	}
	return nil
}

func TestNewPassValidates(t *testing.T) {
	for _, config := range []mixdown.PassConfig{
		{Channels: 0, SampleRate: 44100, Seconds: 1},
		{Channels: 2, SampleRate: 0, Seconds: 1},
		{Channels: 2, SampleRate: 44100, Seconds: -1},
		{Channels: 2, SampleRate: 44100, Seconds: math.NaN()},
		{Channels: 2, SampleRate: 44100, Seconds: MaxSeconds + 1},
	} {
		if _, err := NewPass(config); !errors.Is(err, ErrInvalidPass) {
			t.Errorf("%+v: expected ErrInvalidPass, got %v", config, err)
		}
	}
}

func TestConnect(t *testing.T) {
	p := newTestPass(t, 2, 1000, 1)
	a, b, c := p.Volume(0), p.Volume(0), p.Volume(0)
	if err := a.Connect(b); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := b.Connect(c); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Connect(a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	if err := a.Connect(a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle connecting a node to itself, got %v", err)
	}
	other := newTestPass(t, 2, 1000, 1)
	if err := a.Connect(other.Volume(0)); !errors.Is(err, ErrForeignNode) {
		t.Errorf("expected ErrForeignNode, got %v", err)
	}
	g, err := p.Generator(mixdown.GeneratorConfig{})
	if err != nil {
		t.Fatalf("Generator failed: %v", err)
	}
	if err := a.Connect(g); err == nil {
		t.Errorf("connecting into a generator should fail")
	}
	if err := a.Connect(b); err != nil || len(a.(*node).outputs) != 1 {
		t.Errorf("connecting twice should be a no-op")
	}
	b.Dispose()
	if len(a.(*node).outputs) != 0 || len(c.(*node).inputs) != 0 {
		t.Errorf("Dispose should remove the connections on both sides")
	}
	if err := a.Connect(b); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	a.Connect(c)
	a.Disconnect()
	if len(c.(*node).inputs) != 0 {
		t.Errorf("Disconnect should remove the node from its outputs' inputs")
	}
}

func TestPullSumsAndMemoizes(t *testing.T) {
	p := newTestPass(t, 2, 1000, 1)
	src := &constant{value: 0.25}
	s := p.newNode(src, false)
	a, b := p.Volume(0), p.Volume(mixdown.GainToDecibels(2))
	s.Connect(a)
	s.Connect(b)
	a.Connect(p.Destination())
	b.Connect(p.Destination())
	buffer, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if buffer.Frames() != 1000 {
		t.Fatalf("expected 1000 frames, got %d", buffer.Frames())
	}
	for c, data := range buffer.Data {
		for i, v := range data {
			if math.Abs(float64(v)-0.75) > 1e-6 {
				t.Fatalf("channel %d frame %d: expected 0.75, got %v", c, i, v)
			}
		}
	}
	if blocks := (1000 + BlockSize - 1) / BlockSize; src.calls != blocks {
		t.Errorf("a shared source should render once per block: %d calls for %d blocks", src.calls, blocks)
	}
}

func TestRunHonorsContext(t *testing.T) {
	p := newTestPass(t, 2, 1000, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEffectRejectsUnknownType(t *testing.T) {
	p := newTestPass(t, 2, 1000, 1)
	if _, err := p.Effect(mixdown.Effect{Type: "flanger", Enabled: true}, 0); err == nil {
		t.Errorf("expected an error for an unknown effect")
	}
	for typ := range mixdown.EffectTypes {
		if _, err := p.Effect(mixdown.Effect{Type: typ, Enabled: true}, 0); err != nil {
			t.Errorf("%s: %v", typ, err)
		}
	}
}

func TestTransport(t *testing.T) {
	var tr Transport
	var fired []float64
	record := func(at float64) { fired = append(fired, at) }
	tr.Schedule(0.5, record)
	tr.Schedule(0.1, record)
	tr.Schedule(1.5, record)
	tr.Schedule(0.5, func(at float64) { fired = append(fired, -at) })
	tr.dispatch(10)
	if len(fired) != 0 {
		t.Fatalf("nothing should fire before Start")
	}
	tr.Start(0.2)
	if tr.Pending() != 3 {
		t.Errorf("events before the offset should be dropped, %d pending", tr.Pending())
	}
	tr.dispatch(0.4)
	if len(fired) != 2 || fired[0] != 0.3 || fired[1] != -0.3 {
		t.Errorf("expected the two events at 0.5 in scheduling order, got %v", fired)
	}
	tr.dispatch(1.3)
	if len(fired) != 2 {
		t.Errorf("an event at the dispatch limit should wait, got %v", fired)
	}
	tr.dispatch(2)
	if len(fired) != 3 || tr.Pending() != 0 {
		t.Errorf("expected all events fired, got %v", fired)
	}
}
