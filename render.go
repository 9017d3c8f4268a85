package mixdown

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
)

type (
	Phase string

	// Progress is reported to the caller at every phase transition. The
	// percentages are milestones, not sample accurate.
	Progress struct {
		Phase    Phase
		Progress int
		Message  string
	}

	// ProgressFunc receives progress reports synchronously from within the
	// render; a slow callback stalls the render.
	ProgressFunc func(Progress)

	RenderOptions struct {
		// OnlyTrackID renders a single mixer track (a stem) when non-empty.
		OnlyTrackID string
		SampleRate  int     // defaults to DefaultSampleRate
		Channels    int     // defaults to 2
		TailSeconds float64 // 0 means DefaultTailSeconds, negative means none
	}

	RenderResult struct {
		Wav             []byte
		DurationSeconds float64
		SampleRate      int
		Channels        int
		Frames          int
		Peak            float32
		Triggers        int // triggers scheduled on the transport
		Skipped         int // clips, events and channels skipped as unresolvable
	}

	// RenderError is returned by Render when a phase fails.
	RenderError struct {
		Phase Phase
		Err   error
	}

	// Renderer renders Projects with the Engine it was built with. A
	// Renderer holds no per-render state and builds a fresh pass every call,
	// but the engine it wraps may not support concurrent passes; render one
	// at a time.
	Renderer struct {
		engine Engine
		logger *log.Logger
	}

	RendererOption func(*Renderer)

	// Stem is the isolated render of one mixer track.
	Stem struct {
		Track  MixerTrack
		Result *RenderResult
	}
)

const (
	PhasePreparing Phase = "preparing"
	PhaseRendering Phase = "rendering"
	PhaseEncoding  Phase = "encoding"
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
)

const DefaultSampleRate = 44100

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// WithLogger sets the logger that receives phase transitions and the
// reasons for skipped clips, events and channels.
func WithLogger(logger *log.Logger) RendererOption {
	return func(r *Renderer) { r.logger = logger }
}

func NewRenderer(engine Engine, options ...RendererOption) *Renderer {
	r := &Renderer{engine: engine, logger: log.New(io.Discard, "", 0)}
	for _, o := range options {
		o(r)
	}
	return r
}

// Render synthesizes a snapshot of the project into a .wav file in one
// non-realtime pass: preparing, rendering, encoding, complete. Any failure
// aborts the pass, reports PhaseError and returns a *RenderError; partial
// audio is discarded. progress may be nil.
func (r *Renderer) Render(ctx context.Context, project *Project, options RenderOptions, progress ProgressFunc) (*RenderResult, error) {
	if progress == nil {
		progress = func(Progress) {}
	}
	last := 0
	report := func(phase Phase, percent int, format string, args ...any) {
		last = percent
		msg := fmt.Sprintf(format, args...)
		r.logger.Printf("%s %d%%: %s", phase, percent, msg)
		progress(Progress{Phase: phase, Progress: percent, Message: msg})
	}
	fail := func(phase Phase, err error) (*RenderResult, error) {
		report(PhaseError, last, "%s failed: %v", phase, err)
		return nil, &RenderError{Phase: phase, Err: err}
	}
	options = options.withDefaults()

	report(PhasePreparing, 0, "Preparing render")
	if r.engine == nil {
		return fail(PhasePreparing, ErrEngineUnavailable)
	}
	if err := r.engine.Available(); err != nil {
		return fail(PhasePreparing, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, r.engine.Name(), err))
	}
	if project == nil {
		return fail(PhasePreparing, fmt.Errorf("%w: no project", ErrInvalidProject))
	}
	snapshot := project.Copy()
	if err := snapshot.Validate(); err != nil {
		return fail(PhasePreparing, err)
	}
	seconds := snapshot.DurationSeconds(options.TailSeconds)
	report(PhasePreparing, 10, "Rendering %.2f seconds", seconds)
	if err := ctx.Err(); err != nil {
		return fail(PhasePreparing, err)
	}

	buffer, stats, err := r.run(ctx, &snapshot, options, seconds, report)
	if err != nil {
		return fail(PhaseRendering, err)
	}

	report(PhaseEncoding, 80, "Encoding %d frames", buffer.Frames())
	if buffer.Frames() == 0 {
		return fail(PhaseEncoding, ErrEmptyBuffer)
	}
	wav, err := Wav(buffer)
	if err != nil {
		return fail(PhaseEncoding, err)
	}
	result := &RenderResult{
		Wav:             wav,
		DurationSeconds: buffer.Seconds(),
		SampleRate:      buffer.SampleRate,
		Channels:        buffer.NumChannels(),
		Frames:          buffer.Frames(),
		Peak:            buffer.Peak(),
		Triggers:        stats.triggers,
		Skipped:         stats.skipped,
	}
	report(PhaseComplete, 100, "Rendered %.2f seconds", result.DurationSeconds)
	return result, nil
}

type passStats struct {
	triggers, skipped int
}

// run performs the rendering phase. The graph and voices live only for the
// duration of the call; a panic inside the engine is turned into an error.
func (r *Renderer) run(ctx context.Context, p *Project, options RenderOptions, seconds float64, report func(Phase, int, string, ...any)) (buffer AudioBuffer, stats passStats, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("engine panic: %v", e)
		}
	}()
	pass, err := r.engine.Open(PassConfig{
		Channels:   options.Channels,
		SampleRate: options.SampleRate,
		Seconds:    seconds,
		BPM:        p.BPM,
	})
	if err != nil {
		return AudioBuffer{}, stats, fmt.Errorf("could not open pass: %w", err)
	}
	graph, err := BuildMixerGraph(pass, p, options.OnlyTrackID, r.logger)
	if err != nil {
		return AudioBuffer{}, stats, err
	}
	defer graph.Dispose()
	pool, err := BuildVoicePool(pass, p, graph, r.logger)
	if err != nil {
		return AudioBuffer{}, stats, err
	}
	defer pool.Dispose()
	timeline := BuildTimeline(p, pool, r.logger)
	transport := pass.Transport()
	transport.SetBPM(p.BPM)
	stats.triggers = timeline.Schedule(transport, pool)
	stats.skipped = timeline.SkippedClips + timeline.SkippedEvents + pool.Skipped
	transport.Start(0)
	report(PhaseRendering, 50, "Rendering %d tracks, %d channels, %d triggers", len(graph.Order), len(pool.Order), stats.triggers)
	buffer, err = pass.Run(ctx)
	if err != nil {
		return AudioBuffer{}, stats, err
	}
	return buffer, stats, nil
}

// RenderStems renders every non-master mixer track in index order, one at a
// time, each with a fresh pass. options.OnlyTrackID is ignored.
func (r *Renderer) RenderStems(ctx context.Context, project *Project, options RenderOptions, progress ProgressFunc) ([]Stem, error) {
	if project == nil {
		_, err := r.Render(ctx, nil, options, progress)
		return nil, err
	}
	tracks := make([]MixerTrack, 0, len(project.Mixer.Tracks))
	for _, t := range project.Mixer.Tracks {
		if t.Index != MasterIndex {
			tracks = append(tracks, t)
		}
	}
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Index < tracks[j].Index })
	stems := make([]Stem, 0, len(tracks))
	for i, t := range tracks {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		var forward ProgressFunc
		if progress != nil {
			forward = func(p Progress) {
				p.Message = fmt.Sprintf("[%d/%d %s] %s", i+1, len(tracks), name, p.Message)
				progress(p)
			}
		}
		options.OnlyTrackID = t.ID
		result, err := r.Render(ctx, project, options, forward)
		if err != nil {
			return stems, fmt.Errorf("stem %q: %w", name, err)
		}
		stems = append(stems, Stem{Track: t.Copy(), Result: result})
	}
	return stems, nil
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = 2
	}
	switch {
	case o.TailSeconds == 0:
		o.TailSeconds = DefaultTailSeconds
	case o.TailSeconds < 0:
		o.TailSeconds = 0
	}
	return o
}
