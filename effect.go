package mixdown

import "math"

type (
	// Effect is an insert in a mixer track's serial signal chain. Parameters
	// are kept as a loose map, as the browser editor stores them; the typed
	// accessors (EQ, Compressor, Reverb, Delay) apply defaults and clamp to
	// the ranges documented in EffectTypes.
	Effect struct {
		ID      string             `json:"id,omitempty" yaml:",omitempty"`
		Type    EffectType         `json:"type"`
		Enabled bool               `json:"enabled"`
		Params  map[string]float64 `json:"params,omitempty" yaml:",flow,omitempty"`

		// Sync is a tempo-synced note value ("4n", "8n", "8n.", "16t" ...)
		// overriding the delay time of a delay insert. Empty means free time.
		Sync string `json:"sync,omitempty" yaml:",omitempty"`
	}

	EffectType string

	// EffectParameter documents one parameter an effect takes.
	EffectParameter struct {
		Name     string
		MinValue float64
		MaxValue float64
		Default  float64
		Unit     string
	}

	EQParams struct {
		Low, Mid, High              float64 // band gains, dB
		LowFrequency, HighFrequency float64 // crossovers, Hz
	}

	CompressorParams struct {
		Threshold float64 // dB
		Ratio     float64
		Attack    float64 // seconds
		Release   float64 // seconds
	}

	ReverbParams struct {
		Decay    float64 // seconds
		PreDelay float64 // seconds
		Wet      float64
	}

	DelayParams struct {
		DelayTime float64 // seconds
		Feedback  float64
		Wet       float64
		Sync      string
	}
)

const (
	EffectEQ         EffectType = "eq"
	EffectCompressor EffectType = "compressor"
	EffectReverb     EffectType = "reverb"
	EffectDelay      EffectType = "delay"
)

// EffectTypes documents all the available effect types and the parameters
// they take.
var EffectTypes = map[EffectType][]EffectParameter{
	EffectEQ: {
		{Name: "low", MinValue: -60, MaxValue: 24, Default: 0, Unit: "dB"},
		{Name: "mid", MinValue: -60, MaxValue: 24, Default: 0, Unit: "dB"},
		{Name: "high", MinValue: -60, MaxValue: 24, Default: 0, Unit: "dB"},
		{Name: "lowFrequency", MinValue: 20, MaxValue: 20000, Default: 400, Unit: "Hz"},
		{Name: "highFrequency", MinValue: 20, MaxValue: 20000, Default: 2500, Unit: "Hz"}},
	EffectCompressor: {
		{Name: "threshold", MinValue: -100, MaxValue: 0, Default: -24, Unit: "dB"},
		{Name: "ratio", MinValue: 1, MaxValue: 20, Default: 4},
		{Name: "attack", MinValue: 0, MaxValue: 1, Default: 0.003, Unit: "s"},
		{Name: "release", MinValue: 0, MaxValue: 1, Default: 0.25, Unit: "s"}},
	EffectReverb: {
		{Name: "decay", MinValue: 0.001, MaxValue: 20, Default: 1.5, Unit: "s"},
		{Name: "preDelay", MinValue: 0, MaxValue: 1, Default: 0.01, Unit: "s"},
		{Name: "wet", MinValue: 0, MaxValue: 1, Default: 0.3}},
	EffectDelay: {
		{Name: "delayTime", MinValue: 0.001, MaxValue: 2, Default: 0.25, Unit: "s"},
		{Name: "feedback", MinValue: 0, MaxValue: 0.95, Default: 0.3},
		{Name: "wet", MinValue: 0, MaxValue: 1, Default: 0.3}},
}

// Known reports whether the effect type is one of EffectTypes.
func (t EffectType) Known() bool {
	_, ok := EffectTypes[t]
	return ok
}

// Param returns the named parameter clamped to its documented range, or the
// default when the effect does not set it. Unknown names return 0.
func (e *Effect) Param(name string) float64 {
	for _, p := range EffectTypes[e.Type] {
		if p.Name != name {
			continue
		}
		v, ok := e.Params[name]
		if !ok || math.IsNaN(v) {
			return p.Default
		}
		return math.Min(math.Max(v, p.MinValue), p.MaxValue)
	}
	return 0
}

func (e *Effect) EQ() EQParams {
	return EQParams{
		Low:           e.Param("low"),
		Mid:           e.Param("mid"),
		High:          e.Param("high"),
		LowFrequency:  e.Param("lowFrequency"),
		HighFrequency: e.Param("highFrequency"),
	}
}

func (e *Effect) Compressor() CompressorParams {
	return CompressorParams{
		Threshold: e.Param("threshold"),
		Ratio:     e.Param("ratio"),
		Attack:    e.Param("attack"),
		Release:   e.Param("release"),
	}
}

func (e *Effect) Reverb() ReverbParams {
	return ReverbParams{
		Decay:    e.Param("decay"),
		PreDelay: e.Param("preDelay"),
		Wet:      e.Param("wet"),
	}
}

func (e *Effect) Delay() DelayParams {
	return DelayParams{
		DelayTime: e.Param("delayTime"),
		Feedback:  e.Param("feedback"),
		Wet:       e.Param("wet"),
		Sync:      e.Sync,
	}
}

// Copy makes a deep copy of an Effect.
func (e *Effect) Copy() Effect {
	ret := *e
	if e.Params != nil {
		ret.Params = make(map[string]float64, len(e.Params))
		for k, v := range e.Params {
			ret.Params[k] = v
		}
	}
	return ret
}
