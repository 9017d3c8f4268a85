package mixdown

import (
	"log"
	"math"
	"sort"
)

// Reference pitches played by step-sequencer events. The step sequencer has
// no per-step pitch: sampler channels play middle C, everything else plays
// two octaves below it.
const (
	SamplerStepPitch = 60
	DefaultStepPitch = 36
)

type (
	TriggerSource int

	// Trigger is one note, fully resolved to absolute time before the pass
	// starts.
	Trigger struct {
		ChannelID string
		Source    TriggerSource
		Clip      int // index of the clip in the playlist
		Repeat    int // pattern repetition within the clip, from 0

		Time      float64 // seconds from the start of the render
		Duration  float64 // seconds
		Frequency float64 // Hz
		Velocity  float64 // 0..1
	}

	// Timeline is the flattened list of triggers of a project, sorted by time.
	Timeline struct {
		Triggers      []Trigger
		SkippedClips  int // muted clips are not counted
		SkippedEvents int
	}
)

const (
	SourceStep TriggerSource = iota
	SourceNote
)

func (s TriggerSource) String() string {
	if s == SourceNote {
		return "note"
	}
	return "step"
}

// BuildTimeline walks the unmuted clips of the playlist and expands their
// patterns into triggers. A pattern repeats as many times as needed to fill
// its clip, and no trigger lands at or after the end of the clip. Events
// whose channel is unknown, or absent from pool when pool is non-nil, are
// skipped.
//
// Piano-roll notes without a channel id play on the first channel of the
// project.
func BuildTimeline(p *Project, pool *VoicePool, logger *log.Logger) Timeline {
	var t Timeline
	playable := func(id string) *Channel {
		c := p.Channel(id)
		if c == nil {
			return nil
		}
		if pool != nil && pool.Generator(id) == nil {
			return nil
		}
		return c
	}
	sixteenth := TicksToSeconds(float64(p.PPQ)/4, p.BPM, p.PPQ)
	seconds := func(ticks float64) float64 { return TicksToSeconds(ticks, p.BPM, p.PPQ) }
	for ci, clip := range p.Playlist.Clips {
		if clip.Mute {
			continue
		}
		pattern := p.Pattern(clip.PatternID)
		if pattern == nil {
			logger.Printf("clip %d: pattern %q not found, skipping", ci, clip.PatternID)
			t.SkippedClips++
			continue
		}
		// Positions are computed in ticks and converted once, so that long
		// clips do not accumulate rounding error.
		start := float64(clip.StartTick)
		end := start + float64(clip.DurationTick)
		length := pattern.LengthInTicks(p.PPQ)
		repeats := repeatCount(float64(clip.DurationTick), length)
		for _, ev := range pattern.StepEvents {
			c := playable(ev.ChannelID)
			if c == nil {
				if p.Channel(ev.ChannelID) == nil {
					t.SkippedEvents++
				}
				continue
			}
			pitch := DefaultStepPitch
			if c.Type == ChannelSampler {
				pitch = SamplerStepPitch
			}
			offset := pattern.StepTicks(ev.Step, p.PPQ)
			for i := 0; i < repeats; i++ {
				at := start + offset + float64(i)*length
				if at >= end {
					break
				}
				t.Triggers = append(t.Triggers, Trigger{
					ChannelID: c.ID,
					Source:    SourceStep,
					Clip:      ci,
					Repeat:    i,
					Time:      seconds(at),
					Duration:  sixteenth,
					Frequency: NoteFrequency(pitch),
					Velocity:  normalizeVelocity(ev.Velocity),
				})
			}
		}
		for _, n := range pattern.Notes {
			id := n.ChannelID
			if id == "" {
				if len(p.Channels) == 0 {
					t.SkippedEvents++
					continue
				}
				id = p.Channels[0].ID
			}
			c := playable(id)
			if c == nil {
				if p.Channel(id) == nil {
					t.SkippedEvents++
				}
				continue
			}
			for i := 0; i < repeats; i++ {
				at := start + float64(n.StartTick) + float64(i)*length
				if at >= end {
					break
				}
				t.Triggers = append(t.Triggers, Trigger{
					ChannelID: c.ID,
					Source:    SourceNote,
					Clip:      ci,
					Repeat:    i,
					Time:      seconds(at),
					Duration:  seconds(float64(n.DurationTick)),
					Frequency: NoteFrequency(n.Pitch),
					Velocity:  normalizeVelocity(n.Velocity),
				})
			}
		}
	}
	sort.SliceStable(t.Triggers, func(i, j int) bool {
		return t.Triggers[i].Time < t.Triggers[j].Time
	})
	if t.SkippedEvents > 0 {
		logger.Printf("skipped %d events with unknown channels", t.SkippedEvents)
	}
	return t
}

// Schedule puts every trigger of the timeline on the transport, each firing
// the generator of its channel.
func (t *Timeline) Schedule(transport Transport, pool *VoicePool) int {
	n := 0
	for _, tr := range t.Triggers {
		gen := pool.Generator(tr.ChannelID)
		if gen == nil {
			continue
		}
		transport.Schedule(tr.Time, func(at float64) {
			gen.TriggerAttackRelease(tr.Frequency, tr.Duration, at, tr.Velocity)
		})
		n++
	}
	return n
}

// repeatCount returns how many times a pattern of the given length starts
// within a clip. Zero-length patterns play once.
func repeatCount(clipTicks, patternTicks float64) int {
	if clipTicks <= 0 {
		return 0
	}
	if patternTicks <= 0 {
		return 1
	}
	return int(math.Ceil(clipTicks / patternTicks))
}

func normalizeVelocity(v int) float64 {
	return math.Min(math.Max(float64(v)/127, 0), 1)
}
