package mixdown

import (
	"errors"
	"fmt"
)

type (
	// Project is the symbolic snapshot a render consumes: tempo and timing
	// resolution, the instruments (Channels), reusable Patterns, the Playlist
	// placing those patterns on the timeline, and the Mixer describing how
	// instruments are routed to the output.
	Project struct {
		BPM           float64       `json:"bpm"`
		PPQ           int           `json:"ppq"`
		TimeSignature TimeSignature `json:"timeSignature" yaml:"timeSignature"`
		Channels      []Channel     `json:"channels"`
		Patterns      []Pattern     `json:"patterns"`
		Playlist      Playlist      `json:"playlist"`
		Mixer         Mixer         `json:"mixer"`
	}

	TimeSignature struct {
		Numerator   int `json:"numerator"`
		Denominator int `json:"denominator"`
	}

	// Channel is an instrument definition. Each channel is owned by exactly
	// one mixer track, named by MixerTrackID.
	Channel struct {
		ID   string      `json:"id"`
		Name string      `json:"name,omitempty" yaml:",omitempty"`
		Type ChannelType `json:"type"`

		// SynthSettings is only consulted for ChannelSynth; other types and
		// synths without settings get the percussive fallback generator.
		SynthSettings *SynthSettings `json:"synthSettings,omitempty" yaml:"synthSettings,omitempty"`

		// Volume is a linear gain applied to the generator output.
		Volume       float64 `json:"volume"`
		MixerTrackID string  `json:"mixerTrackId" yaml:"mixerTrackId"`
	}

	ChannelType string

	SynthSettings struct {
		Oscillator      OscillatorType `json:"oscillator"`
		Attack          float64        `json:"attack"`
		Decay           float64        `json:"decay"`
		Sustain         float64        `json:"sustain"`
		Release         float64        `json:"release"`
		FilterCutoff    float64        `json:"filterCutoff,omitempty" yaml:"filterCutoff,omitempty"`
		FilterResonance float64        `json:"filterResonance,omitempty" yaml:"filterResonance,omitempty"`
	}

	OscillatorType string

	// Pattern is a reusable block of step-sequencer events and piano-roll
	// notes. Its musical length is LengthInSteps/StepsPerBeat quarter notes.
	Pattern struct {
		ID            string      `json:"id"`
		Name          string      `json:"name,omitempty" yaml:",omitempty"`
		StepsPerBeat  int         `json:"stepsPerBeat" yaml:"stepsPerBeat"`
		LengthInSteps int         `json:"lengthInSteps" yaml:"lengthInSteps"`
		StepEvents    []StepEvent `json:"stepEvents" yaml:"stepEvents,flow"`
		Notes         []Note      `json:"notes" yaml:"notes,flow"`
	}

	StepEvent struct {
		ChannelID string `json:"channelId" yaml:"channelId"`
		Step      int    `json:"step"`
		Velocity  int    `json:"velocity"`
	}

	// Note is a piano-roll note. ChannelID is optional: notes without it are
	// attributed to the first channel of the project.
	Note struct {
		Pitch        int    `json:"pitch"`
		StartTick    int    `json:"startTick" yaml:"startTick"`
		DurationTick int    `json:"durationTick" yaml:"durationTick"`
		Velocity     int    `json:"velocity"`
		ChannelID    string `json:"channelId,omitempty" yaml:"channelId,omitempty"`
	}

	Playlist struct {
		Clips []Clip `json:"clips"`
	}

	// Clip places a pattern on the timeline. When DurationTick exceeds the
	// pattern length, the pattern repeats to fill the clip.
	Clip struct {
		ID           string `json:"id,omitempty" yaml:",omitempty"`
		PatternID    string `json:"patternId" yaml:"patternId"`
		StartTick    int    `json:"startTick" yaml:"startTick"`
		DurationTick int    `json:"durationTick" yaml:"durationTick"`
		Mute         bool   `json:"mute,omitempty" yaml:",omitempty"`
	}

	Mixer struct {
		Tracks       []MixerTrack `json:"tracks"`
		MasterVolume float64      `json:"masterVolume" yaml:"masterVolume"`
	}

	// MixerTrack is one strip of the mixer. Index 0 is reserved for the
	// master track.
	MixerTrack struct {
		ID      string   `json:"id"`
		Name    string   `json:"name,omitempty" yaml:",omitempty"`
		Index   int      `json:"index"`
		Volume  float64  `json:"volume"`
		Pan     float64  `json:"pan"`
		Inserts []Effect `json:"inserts"`
	}
)

const (
	ChannelSynth   ChannelType = "synth"
	ChannelSampler ChannelType = "sampler"
)

const (
	OscillatorSine     OscillatorType = "sine"
	OscillatorSquare   OscillatorType = "square"
	OscillatorSawtooth OscillatorType = "sawtooth"
	OscillatorTriangle OscillatorType = "triangle"
)

// MasterIndex is the mixer index of the master track.
const MasterIndex = 0

var ErrInvalidProject = errors.New("invalid project")

// LengthInTicks returns the musical length of the pattern in ticks. Patterns
// with no steps per beat have zero length.
func (p *Pattern) LengthInTicks(ppq int) float64 {
	if p.StepsPerBeat <= 0 {
		return 0
	}
	return float64(p.LengthInSteps) / float64(p.StepsPerBeat) * float64(ppq)
}

// StepTicks returns the offset of a step from the start of the pattern, in
// ticks.
func (p *Pattern) StepTicks(step, ppq int) float64 {
	if p.StepsPerBeat <= 0 {
		return 0
	}
	return float64(step) / float64(p.StepsPerBeat) * float64(ppq)
}

// Channel returns the channel with the given id, or nil if there is none.
func (p *Project) Channel(id string) *Channel {
	for i := range p.Channels {
		if p.Channels[i].ID == id {
			return &p.Channels[i]
		}
	}
	return nil
}

// Pattern returns the pattern with the given id, or nil if there is none.
func (p *Project) Pattern(id string) *Pattern {
	for i := range p.Patterns {
		if p.Patterns[i].ID == id {
			return &p.Patterns[i]
		}
	}
	return nil
}

// Track returns the mixer track with the given id, or nil if there is none.
func (m *Mixer) Track(id string) *MixerTrack {
	for i := range m.Tracks {
		if m.Tracks[i].ID == id {
			return &m.Tracks[i]
		}
	}
	return nil
}

// Master returns the master track (index 0), or nil if the mixer has none.
func (m *Mixer) Master() *MixerTrack {
	for i := range m.Tracks {
		if m.Tracks[i].Index == MasterIndex {
			return &m.Tracks[i]
		}
	}
	return nil
}

// Validate checks that the project can be rendered at all. Dangling
// references between patterns, channels and tracks are not errors; they are
// skipped during the render.
func (p *Project) Validate() error {
	if !(p.BPM > 0) {
		return fmt.Errorf("%w: bpm should be > 0, got %v", ErrInvalidProject, p.BPM)
	}
	if p.PPQ <= 0 {
		return fmt.Errorf("%w: ppq should be > 0, got %v", ErrInvalidProject, p.PPQ)
	}
	if p.TimeSignature.Numerator <= 0 {
		return fmt.Errorf("%w: time signature numerator should be > 0, got %v", ErrInvalidProject, p.TimeSignature.Numerator)
	}
	if p.Mixer.MasterVolume < 0 {
		return fmt.Errorf("%w: master volume should be >= 0, got %v", ErrInvalidProject, p.Mixer.MasterVolume)
	}
	for i, c := range p.Playlist.Clips {
		if c.StartTick < 0 {
			return fmt.Errorf("%w: clip %d has negative start %d", ErrInvalidProject, i, c.StartTick)
		}
		if c.DurationTick < 0 {
			return fmt.Errorf("%w: clip %d has negative duration %d", ErrInvalidProject, i, c.DurationTick)
		}
	}
	return nil
}

// Copy makes a deep copy of a Project. A render always works on a copy, so
// the caller is free to keep editing the original.
func (p *Project) Copy() Project {
	channels := make([]Channel, len(p.Channels))
	for i, c := range p.Channels {
		channels[i] = c.Copy()
	}
	patterns := make([]Pattern, len(p.Patterns))
	for i, pat := range p.Patterns {
		patterns[i] = pat.Copy()
	}
	clips := make([]Clip, len(p.Playlist.Clips))
	copy(clips, p.Playlist.Clips)
	tracks := make([]MixerTrack, len(p.Mixer.Tracks))
	for i, t := range p.Mixer.Tracks {
		tracks[i] = t.Copy()
	}
	return Project{
		BPM:           p.BPM,
		PPQ:           p.PPQ,
		TimeSignature: p.TimeSignature,
		Channels:      channels,
		Patterns:      patterns,
		Playlist:      Playlist{Clips: clips},
		Mixer:         Mixer{Tracks: tracks, MasterVolume: p.Mixer.MasterVolume},
	}
}

// Copy makes a deep copy of a Channel.
func (c *Channel) Copy() Channel {
	ret := *c
	if c.SynthSettings != nil {
		s := *c.SynthSettings
		ret.SynthSettings = &s
	}
	return ret
}

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	ret := *p
	ret.StepEvents = append([]StepEvent(nil), p.StepEvents...)
	ret.Notes = append([]Note(nil), p.Notes...)
	return ret
}

// Copy makes a deep copy of a MixerTrack.
func (t *MixerTrack) Copy() MixerTrack {
	ret := *t
	if t.Inserts != nil {
		ret.Inserts = make([]Effect, len(t.Inserts))
		for i, e := range t.Inserts {
			ret.Inserts[i] = e.Copy()
		}
	}
	return ret
}
