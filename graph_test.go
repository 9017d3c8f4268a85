package mixdown_test

import (
	"bytes"
	"log"
	"slices"
	"strings"
	"testing"

	"github.com/mixdown-audio/mixdown"
)

func openFakePass(t *testing.T) *fakePass {
	t.Helper()
	e := &fakeEngine{}
	p, err := e.Open(mixdown.PassConfig{Channels: 2, SampleRate: 100, Seconds: 1, BPM: 120})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return p.(*fakePass)
}

func TestMixerGraphRouting(t *testing.T) {
	project := loadProject(t, "stems.yml")
	pass := openFakePass(t)
	var logs bytes.Buffer
	g, err := mixdown.BuildMixerGraph(pass, &project, "", log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	if expected := []string{"master", "drums", "synths", "empty"}; !slices.Equal(g.Order, expected) {
		t.Fatalf("chain order: expected %v, got %v", expected, g.Order)
	}
	if g.Master == nil || g.Master.Track.ID != "master" {
		t.Fatalf("master chain was not identified")
	}
	if g.MasterVolume == nil {
		t.Fatalf("master volume node missing")
	}
	for _, id := range []string{"drums", "synths", "empty"} {
		out := g.Chains[id].Output().(*fakeNode)
		if len(out.outputs) != 1 || out.outputs[0] != g.Master.Input().(*fakeNode) {
			t.Errorf("track %q should feed the master input", id)
		}
	}
	masterOut := g.Master.Output().(*fakeNode)
	if len(masterOut.outputs) != 1 || masterOut.outputs[0] != g.MasterVolume.(*fakeNode) {
		t.Errorf("master chain should feed the master volume")
	}
	if mv := g.MasterVolume.(*fakeNode); len(mv.outputs) != 1 || mv.outputs[0] != pass.dest {
		t.Errorf("master volume should feed the destination")
	}
	synths := g.Chains["synths"]
	var kinds []string
	for _, n := range synths.Nodes {
		kinds = append(kinds, n.(*fakeNode).kind)
	}
	if expected := []string{"volume", "panner", "delay", "reverb"}; !slices.Equal(kinds, expected) {
		t.Errorf("synths chain: expected %v, got %v", expected, kinds)
	}
	if !strings.Contains(logs.String(), `unknown type "chorus"`) {
		t.Errorf("unknown insert was not logged, got %q", logs.String())
	}
	g.Dispose()
	for _, n := range pass.nodes {
		if !n.disposed {
			t.Errorf("%s node was not disposed", n.kind)
		}
	}
}

func TestMixerGraphWithoutMaster(t *testing.T) {
	project := loadProject(t, "stems.yml")
	project.Mixer.Tracks = project.Mixer.Tracks[1:]
	pass := openFakePass(t)
	g, err := mixdown.BuildMixerGraph(pass, &project, "", log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	if g.Master != nil {
		t.Fatalf("expected no master chain")
	}
	for _, id := range g.Order {
		out := g.Chains[id].Output().(*fakeNode)
		if len(out.outputs) != 1 || out.outputs[0] != g.MasterVolume.(*fakeNode) {
			t.Errorf("track %q should feed the master volume directly", id)
		}
	}
}

func TestIsolatedGraph(t *testing.T) {
	project := loadProject(t, "stems.yml")
	pass := openFakePass(t)
	g, err := mixdown.BuildMixerGraph(pass, &project, "drums", log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	if expected := []string{"master", "drums"}; !slices.Equal(g.Order, expected) {
		t.Fatalf("isolated chains: expected %v, got %v", expected, g.Order)
	}
	if g.MasterVolume != nil {
		t.Errorf("isolated graph should have no master volume")
	}
	if !pass.reachesDestination(g.Chains["drums"].Output().(*fakeNode)) {
		t.Errorf("isolated track does not reach the destination")
	}
	if pass.reachesDestination(g.Master.Output().(*fakeNode)) {
		t.Errorf("master chain should not reach the destination when isolating")
	}
}

func TestStemVoicePool(t *testing.T) {
	project := loadProject(t, "stems.yml")
	pass := openFakePass(t)
	logger := log.New(&bytes.Buffer{}, "", 0)
	g, err := mixdown.BuildMixerGraph(pass, &project, "drums", logger)
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	pool, err := mixdown.BuildVoicePool(pass, &project, g, logger)
	if err != nil {
		t.Fatalf("BuildVoicePool failed: %v", err)
	}
	if expected := []string{"drum"}; !slices.Equal(pool.Order, expected) {
		t.Fatalf("voice pool: expected %v, got %v", expected, pool.Order)
	}
	if pool.Skipped != 0 {
		t.Errorf("channels filtered by isolation should not count as skipped, got %d", pool.Skipped)
	}
	if pool.Generator("bass") != nil {
		t.Errorf("bass should not have a generator in the drums stem")
	}
	gen := pool.Generator("drum").(*fakeGenerator)
	if gen.config.Kind != mixdown.GeneratorPercussion {
		t.Errorf("sampler channel should get a percussive generator, got %v", gen.config.Kind)
	}
	if !pass.reachesDestination(&gen.fakeNode) {
		t.Errorf("drum generator does not reach the destination")
	}
}

func TestVoicePoolSkipsUnroutedChannels(t *testing.T) {
	project := loadProject(t, "stems.yml")
	project.Channels[1].MixerTrackID = "nowhere"
	pass := openFakePass(t)
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	g, err := mixdown.BuildMixerGraph(pass, &project, "", logger)
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	pool, err := mixdown.BuildVoicePool(pass, &project, g, logger)
	if err != nil {
		t.Fatalf("BuildVoicePool failed: %v", err)
	}
	if pool.Skipped != 1 || pool.Generator("bass") != nil {
		t.Errorf("expected bass to be skipped, pool: %v skipped %d", pool.Order, pool.Skipped)
	}
	if !strings.Contains(logs.String(), `mixer track "nowhere" not found`) {
		t.Errorf("skipped channel was not logged, got %q", logs.String())
	}
}

func TestGeneratorConfigFor(t *testing.T) {
	project := loadProject(t, "stems.yml")
	bass := mixdown.GeneratorConfigFor(project.Channel("bass"))
	if bass.Kind != mixdown.GeneratorSynth || bass.Synth.Oscillator != mixdown.OscillatorSawtooth {
		t.Errorf("bass: unexpected config %+v", bass)
	}
	bareSynth := mixdown.Channel{ID: "x", Type: mixdown.ChannelSynth, Volume: 1}
	if c := mixdown.GeneratorConfigFor(&bareSynth); c.Kind != mixdown.GeneratorPercussion || c.VolumeDB != 0 {
		t.Errorf("synth without settings: unexpected config %+v", c)
	}
}

func TestIsolationKeepsMasterChannels(t *testing.T) {
	project := loadProject(t, "isolation.yml")
	pass := openFakePass(t)
	logger := log.New(&bytes.Buffer{}, "", 0)
	g, err := mixdown.BuildMixerGraph(pass, &project, "leads", logger)
	if err != nil {
		t.Fatalf("BuildMixerGraph failed: %v", err)
	}
	pool, err := mixdown.BuildVoicePool(pass, &project, g, logger)
	if err != nil {
		t.Fatalf("BuildVoicePool failed: %v", err)
	}
	if expected := []string{"click", "lead"}; !slices.Equal(pool.Order, expected) {
		t.Fatalf("voice pool: expected %v, got %v", expected, pool.Order)
	}
	if pool.Generator("drum") != nil {
		t.Errorf("drum should not have a generator in the leads stem")
	}
	click := pool.Generator("click").(*fakeGenerator)
	if pass.reachesDestination(&click.fakeNode) {
		t.Errorf("a master routed channel should stay silent while isolating")
	}
	lead := pool.Generator("lead").(*fakeGenerator)
	if !pass.reachesDestination(&lead.fakeNode) {
		t.Errorf("lead generator does not reach the destination")
	}
}
