// Package wheels implements roulette-wheel selection over sets of network
// nodes. The spawner uses it to draw origin and destination intersections
// with configurable, possibly non-uniform, weights.
package wheels

import (
	"errors"
	"fmt"
)

// ErrBadWeights reports a weight vector that cannot drive a wheel.
var ErrBadWeights = errors.New("invalid wheel weights")

// NodeWheel selects among a fixed set of node ids with probability
// proportional to per-node weights.
//
// The weights live in the leaves of a complete binary tree stored in a flat
// slice: the root is at index 1, the children of index i are at i*2 and
// i*2+1, and a parent holds the sum of its children's weights. Selection
// descends from the root in O(log n).
type NodeWheel struct {
	n     int
	sums  []float64
	elems []int
}

// NewUniform returns a wheel that selects uniformly among the given nodes.
func NewUniform(nodes []int) *NodeWheel {
	w := make([]float64, len(nodes))
	for i := range w {
		w[i] = 1
	}
	nw, _ := New(nodes, w) // uniform weights cannot fail
	return nw
}

// New returns a wheel over the given nodes with matching weights. Weights
// must be non-negative and aligned with nodes; a zero weight makes the node
// unselectable.
func New(nodes []int, weights []float64) (*NodeWheel, error) {
	if len(weights) != len(nodes) {
		return nil, fmt.Errorf("%w: %d weights for %d nodes", ErrBadWeights, len(weights), len(nodes))
	}
	nw := &NodeWheel{
		n:     len(nodes),
		sums:  make([]float64, 2*len(nodes)),
		elems: make([]int, len(nodes)),
	}
	copy(nw.elems, nodes)
	for i, weight := range weights {
		if weight < 0 {
			return nil, fmt.Errorf("%w: negative weight %f for node %d", ErrBadWeights, weight, nodes[i])
		}
		nw.sums[nw.n+i] = weight
	}
	for p := nw.n - 1; p > 0; p-- {
		nw.sums[p] = nw.sums[p*2] + nw.sums[p*2+1]
	}
	return nw, nil
}

// Len returns the number of nodes on the wheel.
func (nw *NodeWheel) Len() int { return nw.n }

// Total returns the sum of all weights.
func (nw *NodeWheel) Total() float64 {
	if nw.n == 0 {
		return 0
	}
	return nw.sums[1]
}

// Roll selects a node according to the random number r in [0, 1). It returns
// -1 when the wheel is empty, all weights are zero, or r is out of range.
func (nw *NodeWheel) Roll(r float64) int {
	if r < 0 || 1 <= r {
		return -1
	}
	if nw.n == 0 || nw.sums[1] == 0 {
		return -1
	}
	w := r * nw.sums[1]
	i := 1
	for i < nw.n {
		l := i * 2
		if w < nw.sums[l] {
			i = l
		} else {
			i = l + 1
			w -= nw.sums[l]
		}
	}
	return nw.elems[i-nw.n]
}
