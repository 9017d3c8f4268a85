package mixdown

// MinimumBars is the shortest render, in bars, regardless of the playlist.
const MinimumBars = 4

// DefaultTailSeconds is rendered past the last tick to let reverbs and delays
// ring out.
const DefaultTailSeconds = 2.0

// DurationTicks returns the render length of the project in ticks: the end of
// the last clip, muted or not, but at least MinimumBars bars.
func (p *Project) DurationTicks() int {
	maxTick := 0
	for _, c := range p.Playlist.Clips {
		if end := c.StartTick + c.DurationTick; end > maxTick {
			maxTick = end
		}
	}
	return max(maxTick, p.PPQ*p.TimeSignature.Numerator*MinimumBars)
}

// DurationSeconds returns DurationTicks converted to seconds, plus the tail.
func (p *Project) DurationSeconds(tail float64) float64 {
	return TicksToSeconds(float64(p.DurationTicks()), p.BPM, p.PPQ) + tail
}
