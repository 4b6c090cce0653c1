package traffic

import (
	"math"

	"github.com/rhartert/yagh"

	"github.com/pszufe/RouteBidModel/traffic/routes"
)

// shortestToDest runs one shortest-path pass rooted at dest over the reversed
// adjacency, with the given per-road costs. A single pass yields, for every
// node, the least cost of reaching dest together with the road to take next;
// unreachable nodes keep an infinite cost and a next hop of -1. Costs must be
// non-negative.
func (n *Network) shortestToDest(costs []float64, dest int) ([]float64, []int) {
	dist := make([]float64, len(n.nodes))
	next := make([]int, len(n.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
		next[i] = -1
	}
	dist[dest] = 0

	h := yagh.New[float64](len(n.nodes))
	h.Put(dest, 0)

	for h.Size() > 0 {
		entry := h.Pop()
		u, c := entry.Elem, entry.Cost

		for _, e := range n.topo.ins[u] {
			v := n.roads[e].From
			newCost := c + costs[e]

			// Path v -> u -> dest is no better than the best known one.
			if dist[v] <= newCost {
				continue
			}
			dist[v] = newCost
			next[v] = e
			h.Put(v, newCost)
		}
	}
	return dist, next
}

// extractRoute follows next-hop roads from src to dest. ok is false when src
// cannot reach dest.
func (n *Network) extractRoute(next []int, src, dest int) (nodes, roads []int, ok bool) {
	nodes = []int{src}
	for at := src; at != dest; {
		e := next[at]
		if e == -1 {
			return nil, nil, false
		}
		roads = append(roads, e)
		at = n.roads[e].To
		nodes = append(nodes, at)
	}
	return nodes, roads, true
}

// planRoute recomputes the agent's private costs and replaces its route with
// the cheapest one from its current intersection. It returns false, leaving
// the previous route untouched, when the destination is unreachable.
func (n *Network) planRoute(a *Agent, now float64) bool {
	a.setCosts(n, now)
	dist, next := n.shortestToDest(a.costs, a.Dest)
	if math.IsInf(dist[a.Loc.Node], 1) {
		return false
	}
	nodes, roads, ok := n.extractRoute(next, a.Loc.Node, a.Dest)
	if !ok {
		return false
	}
	route, _ := routes.WithRoads(nodes, roads) // next-hop chains cannot repeat nodes
	a.Route = route
	a.TimeEstimate = n.routeTime(roads)
	return true
}

// routeTime sums the current travel times of the given roads.
func (n *Network) routeTime(roads []int) float64 {
	t := 0.0
	for _, e := range roads {
		t += n.roads[e].TravelTime()
	}
	return t
}

// FreeFlowEstimate returns the least travel time from src to dest with every
// road at its speed limit, ignoring congestion and agent economics. ok is
// false when dest is unreachable from src.
func (n *Network) FreeFlowEstimate(src, dest int) (float64, bool) {
	if src == dest {
		return 0, true
	}
	dist, _ := n.shortestToDest(n.freeFlow, dest)
	if math.IsInf(dist[src], 1) {
		return 0, false
	}
	return dist[src], true
}
