// Package traffic implements a discrete-time simulation of vehicles moving
// over a directed road network. Vehicles are spawned at designated origin
// intersections, plan congestion-aware routes toward their destinations using
// personal travel costs, and are removed on arrival. The package owns the
// network data model, the congestion velocity model, the per-agent router and
// the time-stepping loop; map loading and visualization are external
// collaborators.
package traffic

import (
	"errors"
	"fmt"
)

// ErrConstruction reports malformed network input: an edge referencing a node
// outside [0, N), a non-positive segment length, or a coordinate list whose
// size does not match the node count.
var ErrConstruction = errors.New("invalid network construction input")

// EdgeSpec describes one directed road segment of the input graph. From and
// To are 0-based node indices. Length is the segment length in meters.
// SpeedKmh is the free-flow speed limit in km/h; zero means the network's
// fallback speed applies.
type EdgeSpec struct {
	From     int
	To       int
	Length   float64
	SpeedKmh float64
}

// topology is the static road adjacency of a network. Roads are identified by
// their index in the network's road arena; outs[n] and ins[n] list the road
// indices leaving and reaching node n in construction order. The topology is
// immutable once the network is built.
type topology struct {
	outs [][]int
	ins  [][]int
}

func newTopology(edges []EdgeSpec, nNodes int) (*topology, error) {
	t := &topology{
		outs: make([][]int, nNodes),
		ins:  make([][]int, nNodes),
	}
	for i, e := range edges {
		if e.From < 0 || nNodes <= e.From {
			return nil, fmt.Errorf("%w: edge %d: node %d is not in [0, %d)", ErrConstruction, i, e.From, nNodes)
		}
		if e.To < 0 || nNodes <= e.To {
			return nil, fmt.Errorf("%w: edge %d: node %d is not in [0, %d)", ErrConstruction, i, e.To, nNodes)
		}
		if e.Length <= 0 {
			return nil, fmt.Errorf("%w: edge %d: length must be positive, got %f", ErrConstruction, i, e.Length)
		}
		t.outs[e.From] = append(t.outs[e.From], i)
		t.ins[e.To] = append(t.ins[e.To], i)
	}
	return t, nil
}
