// Package routes provides the route representation used by agents of the
// traffic simulation.
package routes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRoute reports a node sequence that cannot form a route.
var ErrInvalidRoute = errors.New("invalid route")

// Route is the sequence of intersections an agent intends to traverse,
// together with its progress along that sequence. It respects the following
// invariants:
//
//   - Minimum length: 1 (an agent already at its destination)
//   - No two consecutive nodes are the same
//   - Progress only moves forward, one hop at a time
//
// A Route is a snapshot of the plan computed at the last intersection; agents
// replace it wholesale every time they re-route.
type Route struct {
	nodes []int
	roads []int
	pos   int
}

// New returns a Route over the given node sequence. The first node is the
// agent's current intersection, the last its destination.
func New(nodes []int) (*Route, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node sequence", ErrInvalidRoute)
	}
	for i := 1; i < len(nodes); i++ {
		if nodes[i] == nodes[i-1] {
			return nil, fmt.Errorf("%w: node %d repeats at position %d", ErrInvalidRoute, nodes[i], i)
		}
	}
	return &Route{nodes: nodes}, nil
}

// WithRoads returns a Route whose hops carry road identifiers: roads[i] is
// the road joining nodes[i] to nodes[i+1]. Routers produce routes in this
// form so that callers never need to resolve a node pair back to a road.
func WithRoads(nodes, roads []int) (*Route, error) {
	r, err := New(nodes)
	if err != nil {
		return nil, err
	}
	if len(roads) != len(nodes)-1 {
		return nil, fmt.Errorf("%w: %d roads for %d nodes", ErrInvalidRoute, len(roads), len(nodes))
	}
	r.roads = roads
	return r, nil
}

// Resume returns a Route with its progress already at position pos, as if
// Advance had been called pos times. Restored simulations use it to rebuild
// in-flight routes.
func Resume(nodes, roads []int, pos int) (*Route, error) {
	r, err := WithRoads(nodes, roads)
	if err != nil {
		return nil, err
	}
	if pos < 0 || len(nodes) <= pos {
		return nil, fmt.Errorf("%w: progress %d is not in [0, %d)", ErrInvalidRoute, pos, len(nodes))
	}
	r.pos = pos
	return r, nil
}

// Len returns the number of nodes in the route, including already traversed
// ones.
func (r *Route) Len() int { return len(r.nodes) }

// At returns the node the route's progress currently points at.
func (r *Route) At() int { return r.nodes[r.pos] }

// Dest returns the final node of the route.
func (r *Route) Dest() int { return r.nodes[len(r.nodes)-1] }

// Next returns the node following the current one. The second value is false
// when the route is exhausted.
func (r *Route) Next() (int, bool) {
	if r.pos+1 >= len(r.nodes) {
		return 0, false
	}
	return r.nodes[r.pos+1], true
}

// Advance moves the progress one hop forward. It returns false if the route
// is already at its destination.
func (r *Route) Advance() bool {
	if r.pos+1 >= len(r.nodes) {
		return false
	}
	r.pos++
	return true
}

// Done reports whether the progress has reached the destination.
func (r *Route) Done() bool { return r.pos == len(r.nodes)-1 }

// Progress returns the index of the current node in the sequence.
func (r *Route) Progress() int { return r.pos }

// NextRoad returns the road joining the current node to the following one.
// The second value is false when the route is exhausted or the route carries
// no road identifiers.
func (r *Route) NextRoad() (int, bool) {
	if r.roads == nil || r.pos >= len(r.roads) {
		return 0, false
	}
	return r.roads[r.pos], true
}

// Nodes returns the complete node sequence.
//
// Important: the slice is a view on the route's internal structure and should
// only be used in read-only operations. Modifying the slice will most likely
// result in incorrect behavior.
func (r *Route) Nodes() []int { return r.nodes }

// Roads returns the complete road sequence, or nil for routes built without
// road identifiers.
//
// Important: the slice is a view, see Nodes.
func (r *Route) Roads() []int { return r.roads }

// Remaining returns the not-yet-traversed part of the sequence, starting at
// the current node.
//
// Important: the slice is a view, see Nodes.
func (r *Route) Remaining() []int { return r.nodes[r.pos:] }

// RemainingRoads returns the roads not yet entered, starting with the one
// leaving the current node.
//
// Important: the slice is a view, see Nodes.
func (r *Route) RemainingRoads() []int {
	if r.roads == nil {
		return nil
	}
	return r.roads[r.pos:]
}

// String returns the node sequence separated by " -> ", for example
// "0 -> 4 -> 3 -> 1".
func (r *Route) String() string {
	sb := strings.Builder{}
	for i := 0; i < len(r.nodes)-1; i++ {
		sb.WriteString(fmt.Sprintf("%d -> ", r.nodes[i]))
	}
	sb.WriteString(fmt.Sprintf("%d", r.nodes[len(r.nodes)-1]))
	return sb.String()
}
