package offline

import (
	"fmt"
	"slices"

	"github.com/mixdown-audio/mixdown"
	"github.com/viterin/vek/vek32"
)

// processor computes one block of a node's output from the sum of its
// inputs. Both in and out hold one slice per channel, all of the block's
// length; start is the index of the block's first frame in the pass.
type processor interface {
	process(in, out [][]float32, start int) error
}

// node is the routing part shared by everything in the graph. Outputs of a
// node are summed into the inputs of every node it is connected to.
type node struct {
	pass       *Pass
	proc       processor
	takesInput bool
	inputs     []*node
	outputs    []*node
	in, out    [][]float32
	rendered   int // index of the block held in out, -1 for none
	visiting   bool
	disposed   bool
}

type nodeHandle interface {
	base() *node
}

func (p *Pass) newNode(proc processor, takesInput bool) *node {
	n := &node{
		pass:       p,
		proc:       proc,
		takesInput: takesInput,
		in:         makeBlock(p.channels),
		out:        makeBlock(p.channels),
		rendered:   -1,
	}
	p.nodes = append(p.nodes, n)
	return n
}

func (n *node) base() *node { return n }

// Connect routes the output of n into dst. Both must belong to the same pass
// and the connection may not close a loop.
func (n *node) Connect(dst mixdown.Node) error {
	h, ok := dst.(nodeHandle)
	if !ok || h.base().pass != n.pass {
		return ErrForeignNode
	}
	d := h.base()
	if n.disposed || d.disposed {
		return ErrDisposed
	}
	if !d.takesInput {
		return fmt.Errorf("cannot connect into a source node")
	}
	if d == n || d.reaches(n) {
		return ErrCycle
	}
	if slices.Contains(n.outputs, d) {
		return nil
	}
	n.outputs = append(n.outputs, d)
	d.inputs = append(d.inputs, n)
	return nil
}

// Disconnect removes every outgoing connection of n.
func (n *node) Disconnect() {
	for _, d := range n.outputs {
		d.inputs = slices.DeleteFunc(d.inputs, func(x *node) bool { return x == n })
	}
	n.outputs = nil
}

// Dispose disconnects n from both sides and releases its buffers. A disposed
// node cannot be connected again.
func (n *node) Dispose() {
	if n.disposed {
		return
	}
	n.Disconnect()
	for _, s := range n.inputs {
		s.outputs = slices.DeleteFunc(s.outputs, func(x *node) bool { return x == n })
	}
	n.inputs = nil
	n.in, n.out = nil, nil
	n.disposed = true
}

// reaches reports whether target is downstream of n.
func (n *node) reaches(target *node) bool {
	for _, d := range n.outputs {
		if d == target || d.reaches(target) {
			return true
		}
	}
	return false
}

// pull renders block number block of n, first pulling every input. A node
// feeding several others is rendered only once per block.
func (n *node) pull(block, start, frames int) ([][]float32, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	if n.rendered == block {
		return trim(n.out, frames), nil
	}
	if n.visiting {
		return nil, ErrCycle
	}
	n.visiting = true
	defer func() { n.visiting = false }()
	in := trim(n.in, frames)
	for c := range in {
		clear(in[c])
	}
	for _, s := range n.inputs {
		o, err := s.pull(block, start, frames)
		if err != nil {
			return nil, err
		}
		for c := range in {
			vek32.Add_Inplace(in[c], o[c])
		}
	}
	out := trim(n.out, frames)
	if err := n.proc.process(in, out, start); err != nil {
		return nil, err
	}
	n.rendered = block
	return out, nil
}

func makeBlock(channels int) [][]float32 {
	ret := make([][]float32, channels)
	for c := range ret {
		ret[c] = make([]float32, BlockSize)
	}
	return ret
}

func trim(block [][]float32, frames int) [][]float32 {
	ret := make([][]float32, len(block))
	for c := range block {
		ret[c] = block[c][:frames]
	}
	return ret
}
