package mixdown

import (
	"fmt"
	"log"
)

type (
	// TrackChain is the built signal chain of one mixer track: volume, then
	// panner, then every enabled insert in declaration order.
	TrackChain struct {
		Track   *MixerTrack
		Nodes   []Node
		Inserts []Effect // the inserts that were instantiated, in chain order
	}

	// MixerGraph is the routing built for one pass.
	MixerGraph struct {
		Chains map[string]*TrackChain
		Order  []string // track ids in build order
		Master *TrackChain
		// MasterVolume sits between everything and the destination; nil when
		// rendering a single isolated track.
		MasterVolume Node
		Isolated     string
	}
)

// Input returns the entry point of the chain.
func (c *TrackChain) Input() Node {
	return c.Nodes[0]
}

// Output returns the last node of the chain.
func (c *TrackChain) Output() Node {
	return c.Nodes[len(c.Nodes)-1]
}

// BuildMixerGraph builds a chain for every mixer track and routes them. With
// onlyTrackID set, only the chains of that track and of the master are built,
// and only the isolated track reaches the destination. Otherwise every track
// feeds the master chain, or straight into the master volume if the mixer has
// no master track.
func BuildMixerGraph(pass Pass, p *Project, onlyTrackID string, logger *log.Logger) (*MixerGraph, error) {
	g := &MixerGraph{Chains: map[string]*TrackChain{}, Isolated: onlyTrackID}
	for i := range p.Mixer.Tracks {
		t := &p.Mixer.Tracks[i]
		if onlyTrackID != "" && t.ID != onlyTrackID && t.Index != MasterIndex {
			continue
		}
		if _, ok := g.Chains[t.ID]; ok {
			logger.Printf("mixer track %q declared twice, keeping the first", t.ID)
			continue
		}
		chain, err := buildTrackChain(pass, p.BPM, t, logger)
		if err != nil {
			return nil, fmt.Errorf("mixer track %q: %w", t.ID, err)
		}
		g.Chains[t.ID] = chain
		g.Order = append(g.Order, t.ID)
		if t.Index == MasterIndex && g.Master == nil {
			g.Master = chain
		}
	}
	if onlyTrackID != "" {
		chain, ok := g.Chains[onlyTrackID]
		if !ok {
			logger.Printf("isolated mixer track %q not found, output will be silent", onlyTrackID)
			return g, nil
		}
		if err := chain.Output().Connect(pass.Destination()); err != nil {
			return nil, fmt.Errorf("connecting isolated track %q: %w", onlyTrackID, err)
		}
		return g, nil
	}
	g.MasterVolume = pass.Volume(GainToDecibels(p.Mixer.MasterVolume))
	if err := g.MasterVolume.Connect(pass.Destination()); err != nil {
		return nil, fmt.Errorf("connecting master volume: %w", err)
	}
	for _, id := range g.Order {
		chain := g.Chains[id]
		dst := g.MasterVolume
		if g.Master != nil && chain != g.Master {
			dst = g.Master.Input()
		}
		if err := chain.Output().Connect(dst); err != nil {
			return nil, fmt.Errorf("routing mixer track %q: %w", id, err)
		}
	}
	return g, nil
}

func buildTrackChain(pass Pass, bpm float64, t *MixerTrack, logger *log.Logger) (*TrackChain, error) {
	chain := &TrackChain{Track: t}
	chain.Nodes = append(chain.Nodes, pass.Volume(GainToDecibels(t.Volume)), pass.Panner(t.Pan))
	for _, e := range t.Inserts {
		if !e.Enabled {
			continue
		}
		if !e.Type.Known() {
			logger.Printf("mixer track %q: skipping insert of unknown type %q", t.ID, e.Type)
			continue
		}
		node, err := pass.Effect(e, bpm)
		if err != nil {
			return nil, fmt.Errorf("%s insert: %w", e.Type, err)
		}
		chain.Nodes = append(chain.Nodes, node)
		chain.Inserts = append(chain.Inserts, e)
	}
	for i := 1; i < len(chain.Nodes); i++ {
		if err := chain.Nodes[i-1].Connect(chain.Nodes[i]); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// Dispose releases every node of the graph.
func (g *MixerGraph) Dispose() {
	for _, id := range g.Order {
		for _, n := range g.Chains[id].Nodes {
			n.Dispose()
		}
	}
	if g.MasterVolume != nil {
		g.MasterVolume.Dispose()
	}
}
