package mixdown

import (
	"fmt"
	"log"
)

// VoicePool holds one generator per channel whose mixer track made it into
// the graph. Channels filtered out by isolation are never instantiated, which
// is what silences them in a stem.
type VoicePool struct {
	Generators map[string]Generator
	Order      []string // channel ids in build order
	Skipped    int      // channels whose mixer track could not be resolved
}

// BuildVoicePool instantiates and routes the generators of the project's
// channels into the chains of g.
func BuildVoicePool(pass Pass, p *Project, g *MixerGraph, logger *log.Logger) (*VoicePool, error) {
	pool := &VoicePool{Generators: map[string]Generator{}}
	for i := range p.Channels {
		c := &p.Channels[i]
		if _, ok := pool.Generators[c.ID]; ok {
			logger.Printf("channel %q declared twice, keeping the first", c.ID)
			continue
		}
		chain, ok := g.Chains[c.MixerTrackID]
		if !ok {
			if g.Isolated == "" || p.Mixer.Track(c.MixerTrackID) == nil {
				logger.Printf("channel %q: mixer track %q not found, skipping", c.ID, c.MixerTrackID)
				pool.Skipped++
			}
			continue
		}
		gen, err := pass.Generator(GeneratorConfigFor(c))
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", c.ID, err)
		}
		if err := gen.Connect(chain.Input()); err != nil {
			return nil, fmt.Errorf("channel %q: %w", c.ID, err)
		}
		pool.Generators[c.ID] = gen
		pool.Order = append(pool.Order, c.ID)
	}
	return pool, nil
}

// Generator returns the generator of a channel, or nil.
func (v *VoicePool) Generator(channelID string) Generator {
	return v.Generators[channelID]
}

// Dispose releases every generator of the pool.
func (v *VoicePool) Dispose() {
	for _, id := range v.Order {
		v.Generators[id].Dispose()
	}
}
