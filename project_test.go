package mixdown_test

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/mixdown-audio/mixdown"
	"gopkg.in/yaml.v3"
)

func TestDecodeProjectJSON(t *testing.T) {
	project, err := mixdown.LoadProject("testdata/project.json")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if project.BPM != 140 || project.PPQ != 96 {
		t.Errorf("unexpected tempo %v bpm, %v ppq", project.BPM, project.PPQ)
	}
	if project.TimeSignature != (mixdown.TimeSignature{Numerator: 3, Denominator: 4}) {
		t.Errorf("denominator should default to 4, got %+v", project.TimeSignature)
	}
	c := project.Channel("c1")
	if c == nil || c.SynthSettings == nil || c.SynthSettings.Oscillator != mixdown.OscillatorTriangle {
		t.Fatalf("synth channel was not decoded: %+v", c)
	}
	track := project.Mixer.Track("t1")
	if track == nil || len(track.Inserts) != 1 || track.Inserts[0].Enabled {
		t.Fatalf("mixer track was not decoded: %+v", track)
	}
	if d := track.Inserts[0].Param("delayTime"); d != 0.3 {
		t.Errorf("expected delayTime 0.3, got %v", d)
	}
	if err := project.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestDecodeProjectYAMLRoundTrip(t *testing.T) {
	project := loadProject(t, "stems.yml")
	out, err := yaml.Marshal(project)
	if err != nil {
		t.Fatalf("could not marshal project: %v", err)
	}
	decoded, err := mixdown.DecodeProject(out)
	if err != nil {
		t.Fatalf("DecodeProject failed: %v", err)
	}
	again, err := yaml.Marshal(decoded)
	if err != nil {
		t.Fatalf("could not marshal decoded project: %v", err)
	}
	if string(out) != string(again) {
		t.Errorf("project changed in a yaml round trip:\n%s\n%s", out, again)
	}
	if len(decoded.Mixer.Tracks) != 4 || decoded.Mixer.Tracks[2].Inserts[0].Sync != "8n" {
		t.Errorf("mixer was not decoded: %+v", decoded.Mixer)
	}
}

func TestDecodeProjectFailure(t *testing.T) {
	if _, err := mixdown.DecodeProject([]byte("bpm: [1, 2")); err == nil {
		t.Errorf("expected an error for garbage input")
	}
	if _, err := mixdown.LoadProject("testdata/does-not-exist.yml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not exist error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *mixdown.Project)
	}{
		{"zero bpm", func(p *mixdown.Project) { p.BPM = 0 }},
		{"negative ppq", func(p *mixdown.Project) { p.PPQ = -1 }},
		{"no numerator", func(p *mixdown.Project) { p.TimeSignature.Numerator = 0 }},
		{"negative master volume", func(p *mixdown.Project) { p.Mixer.MasterVolume = -1 }},
		{"negative clip", func(p *mixdown.Project) { p.Playlist.Clips[0].DurationTick = -1 }},
		{"negative clip start", func(p *mixdown.Project) { p.Playlist.Clips[0].StartTick = -96 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := loadProject(t, "kick.yml")
			tt.modify(&project)
			if err := project.Validate(); !errors.Is(err, mixdown.ErrInvalidProject) {
				t.Errorf("expected ErrInvalidProject, got %v", err)
			}
		})
	}
	project := loadProject(t, "kick.yml")
	project.Playlist.Clips[0].PatternID = "dangling"
	project.Channels[0].MixerTrackID = "dangling"
	if err := project.Validate(); err != nil {
		t.Errorf("dangling references should not fail validation: %v", err)
	}
}

func TestCopyIsDeep(t *testing.T) {
	project := loadProject(t, "stems.yml")
	c := project.Copy()
	if !reflect.DeepEqual(project, c) {
		t.Fatalf("copy differs from the original")
	}
	c.Channels[1].SynthSettings.Attack = 5
	c.Patterns[0].StepEvents[0].Velocity = 1
	c.Patterns[0].Notes[0].Pitch = 1
	c.Playlist.Clips[0].StartTick = 99
	c.Mixer.Tracks[0].Inserts[0].Params["ratio"] = 20
	if reflect.DeepEqual(project, c) {
		t.Fatalf("modifying the copy should not touch the original")
	}
	if project.Channels[1].SynthSettings.Attack == 5 ||
		project.Patterns[0].StepEvents[0].Velocity == 1 ||
		project.Patterns[0].Notes[0].Pitch == 1 ||
		project.Playlist.Clips[0].StartTick == 99 ||
		project.Mixer.Tracks[0].Inserts[0].Params["ratio"] == 20 {
		t.Errorf("the original project was modified through its copy")
	}
}

func TestEffectParams(t *testing.T) {
	e := mixdown.Effect{Type: mixdown.EffectReverb, Params: map[string]float64{"wet": 3, "decay": 2}}
	r := e.Reverb()
	if r.Wet != 1 {
		t.Errorf("wet should clamp to 1, got %v", r.Wet)
	}
	if r.Decay != 2 {
		t.Errorf("expected decay 2, got %v", r.Decay)
	}
	if r.PreDelay != 0.01 {
		t.Errorf("preDelay should default to 0.01, got %v", r.PreDelay)
	}
	if v := e.Param("nonsense"); v != 0 {
		t.Errorf("unknown parameters should read 0, got %v", v)
	}
	if !mixdown.EffectDelay.Known() || mixdown.EffectType("chorus").Known() {
		t.Errorf("Known is wrong")
	}
	for typ, params := range mixdown.EffectTypes {
		for _, p := range params {
			if p.Default < p.MinValue || p.Default > p.MaxValue {
				t.Errorf("%s.%s: default %v outside [%v, %v]", typ, p.Name, p.Default, p.MinValue, p.MaxValue)
			}
		}
	}
}
