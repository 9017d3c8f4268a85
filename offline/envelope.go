package offline

import "math"

const (
	envStateAttack = iota
	envStateDecay
	envStateSustain
	envStateRelease
	envStateDone
)

// silence is the level below which a releasing voice is considered finished.
const silence = 1e-4

// envelope is an ADSR envelope: linear attack to 1, exponential decay to the
// sustain level, exponential release to silence. Times are in seconds.
type envelope struct {
	attack, decay, sustain, release float64

	state  int
	level  float64
	step   float64 // attack increment per frame
	decayK float64 // per frame multipliers of the distance to the target
	relK   float64
}

func newEnvelope(sampleRate int, attack, decay, sustain, release float64) envelope {
	sr := float64(sampleRate)
	e := envelope{
		attack:  math.Max(attack, 0),
		decay:   math.Max(decay, 0),
		sustain: math.Min(math.Max(sustain, 0), 1),
		release: math.Max(release, 0),
	}
	e.step = 1
	if e.attack > 0 {
		e.step = 1 / (e.attack * sr)
	}
	e.decayK = expCoefficient(e.decay, sr)
	e.relK = expCoefficient(e.release, sr)
	return e
}

// expCoefficient returns the per frame multiplier that brings a distance down
// to silence over the given time.
func expCoefficient(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(math.Log(silence) / (seconds * sampleRate))
}

func (e *envelope) noteOff() {
	if e.state != envStateDone {
		e.state = envStateRelease
	}
}

func (e *envelope) done() bool {
	return e.state == envStateDone
}

// next advances the envelope by one frame and returns its level.
func (e *envelope) next() float64 {
	switch e.state {
	case envStateAttack:
		e.level += e.step
		if e.level >= 1 {
			e.level = 1
			e.state = envStateDecay
		}
	case envStateDecay:
		e.level = e.sustain + (e.level-e.sustain)*e.decayK
		if e.level-e.sustain < silence {
			e.level = e.sustain
			e.state = envStateSustain
		}
	case envStateSustain:
		e.level = e.sustain
	case envStateRelease:
		e.level *= e.relK
		if e.level < silence {
			e.level = 0
			e.state = envStateDone
		}
	}
	return e.level
}
