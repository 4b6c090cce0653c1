package traffic

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
)

// NetworkConfig carries the physical constants of network construction.
type NetworkConfig struct {
	// CarLength and Headway, in meters, define the road space one vehicle
	// consumes; capacity = floor(length/(CarLength+Headway)) * Lanes.
	CarLength float64
	Headway   float64

	// Lanes applies to every road of the network.
	Lanes int

	// FallbackSpeedKmh is used for edges without a speed entry.
	FallbackSpeedKmh float64

	// MinVelocity, in m/s, is the congested floor of every road's velocity.
	// It must be positive: travel times are length/velocity.
	MinVelocity float64

	// Projected marks the node coordinates as Web Mercator meters, letting
	// GeoPosition unproject them back to lon/lat.
	Projected bool
}

// DefaultNetworkConfig returns the constants used when callers have no
// better-calibrated values: 4.5 m cars with 1 m headway on single-lane
// roads, a 40 km/h fallback limit and a 1 m/s congested floor.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		CarLength:        4.5,
		Headway:          1.0,
		Lanes:            1,
		FallbackSpeedKmh: 40,
		MinVelocity:      1.0,
	}
}

// SpeedLookup resolves the speed limit in km/h of the edge from one node to
// another. The second return value is false when the lookup has no entry, in
// which case the network falls back to NetworkConfig.FallbackSpeedKmh.
type SpeedLookup func(from, to int) (float64, bool)

// Network owns the roads and intersections of the simulated area, the static
// topology over them, and the registry of live agents. Roads live in a single
// arena and are referenced everywhere by index, so occupancy and velocity
// changes are globally visible. The topology is immutable after construction;
// only occupancy, velocities and the agent registry change over a
// simulation's lifetime.
type Network struct {
	cfg   NetworkConfig
	roads []Road
	nodes []Intersection
	topo  *topology
	occ   *occupancyState

	spawns []int
	dests  []int

	agents      map[int]*Agent
	liveCount   int
	lastAgentID int

	freeFlow []float64 // cached per-road free-flow travel times
}

// NewNetwork builds a network from an edge list and per-node coordinates.
// len(coords) fixes the node count; every edge must reference nodes within
// [0, len(coords)) and have a positive length.
func NewNetwork(edges []EdgeSpec, coords []orb.Point, cfg NetworkConfig) (*Network, error) {
	if cfg.Lanes < 1 {
		return nil, fmt.Errorf("%w: lanes must be at least 1, got %d", ErrConstruction, cfg.Lanes)
	}
	if cfg.MinVelocity <= 0 {
		return nil, fmt.Errorf("%w: minimum velocity must be positive, got %f", ErrConstruction, cfg.MinVelocity)
	}
	topo, err := newTopology(edges, len(coords))
	if err != nil {
		return nil, err
	}

	net := &Network{
		cfg:    cfg,
		roads:  make([]Road, len(edges)),
		nodes:  make([]Intersection, len(coords)),
		topo:   topo,
		occ:    newOccupancyState(len(edges)),
		agents: make(map[int]*Agent),
	}
	for i, e := range edges {
		kmh := e.SpeedKmh
		if kmh <= 0 {
			kmh = cfg.FallbackSpeedKmh
		}
		vMax := kmhToMs(kmh)
		if vMax < cfg.MinVelocity {
			return nil, fmt.Errorf("%w: edge %d: speed limit %f km/h is below the minimum velocity", ErrConstruction, i, kmh)
		}
		net.roads[i] = Road{
			ID:       i,
			From:     e.From,
			To:       e.To,
			Length:   e.Length,
			Lanes:    cfg.Lanes,
			VMax:     vMax,
			VMin:     cfg.MinVelocity,
			Velocity: vMax,
			Capacity: roadCapacity(e.Length, cfg.CarLength, cfg.Headway, cfg.Lanes),
		}
	}
	for i := range net.nodes {
		net.nodes[i] = Intersection{
			ID:       i,
			Position: coords[i],
			In:       topo.ins[i],
			Out:      topo.outs[i],
		}
	}
	net.freeFlow = make([]float64, len(net.roads))
	for i := range net.roads {
		net.freeFlow[i] = net.roads[i].FreeFlowTime()
	}

	log.Infof("network built: %d intersections, %d roads", len(net.nodes), len(net.roads))
	return net, nil
}

// FromGraph builds a network from any gonum weighted directed graph, treating
// edge weights as segment lengths in meters. Node ids must be dense in
// [0, N); sparse id spaces are a construction error. speeds may be nil, in
// which case every road gets the fallback speed limit.
func FromGraph(g graph.WeightedDirected, coords []orb.Point, speeds SpeedLookup, cfg NetworkConfig) (*Network, error) {
	ids := []int64{}
	nodes := g.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int64(i) {
			return nil, fmt.Errorf("%w: graph node ids must be dense in [0, %d), got id %d", ErrConstruction, len(ids), id)
		}
	}
	if len(ids) != len(coords) {
		return nil, fmt.Errorf("%w: %d coordinates for %d nodes", ErrConstruction, len(coords), len(ids))
	}

	edges := []EdgeSpec{}
	for _, uid := range ids {
		to := g.From(uid)
		outs := []int64{}
		for to.Next() {
			outs = append(outs, to.Node().ID())
		}
		sort.Slice(outs, func(i, j int) bool { return outs[i] < outs[j] })
		for _, vid := range outs {
			w, ok := g.Weight(uid, vid)
			if !ok {
				continue
			}
			edge := EdgeSpec{From: int(uid), To: int(vid), Length: w}
			if speeds != nil {
				if kmh, ok := speeds(int(uid), int(vid)); ok {
					edge.SpeedKmh = kmh
				}
			}
			edges = append(edges, edge)
		}
	}
	return NewNetwork(edges, coords, cfg)
}

// DesignateSpawnDests marks the given intersections as spawn and destination
// points. Calling it again replaces the previous designation entirely.
func (n *Network) DesignateSpawnDests(spawns, dests []int) error {
	for _, id := range append(append([]int{}, spawns...), dests...) {
		if id < 0 || len(n.nodes) <= id {
			return fmt.Errorf("%w: node %d is not in [0, %d)", ErrConstruction, id, len(n.nodes))
		}
	}
	for _, id := range n.spawns {
		n.nodes[id].Spawn = false
	}
	for _, id := range n.dests {
		n.nodes[id].Dest = false
	}
	n.spawns = lo.Uniq(spawns)
	n.dests = lo.Uniq(dests)
	for _, id := range n.spawns {
		n.nodes[id].Spawn = true
	}
	for _, id := range n.dests {
		n.nodes[id].Dest = true
	}
	return nil
}

// NumNodes returns the number of intersections.
func (n *Network) NumNodes() int { return len(n.nodes) }

// NumRoads returns the number of road segments.
func (n *Network) NumRoads() int { return len(n.roads) }

// Road returns the road with the given id. The pointer aliases the network's
// arena; mutations are visible everywhere the road is referenced.
func (n *Network) Road(id int) *Road { return &n.roads[id] }

// Node returns the intersection with the given id.
func (n *Network) Node(id int) *Intersection { return &n.nodes[id] }

// SpawnNodes returns the designated spawn intersections.
func (n *Network) SpawnNodes() []int { return n.spawns }

// DestNodes returns the designated destination intersections.
func (n *Network) DestNodes() []int { return n.dests }

// RoadOccupancy returns the number of agents currently on the road.
func (n *Network) RoadOccupancy(road int) int { return n.occ.Count(road) }

// RoadOccupants returns the ids of the agents on the road in ascending order.
func (n *Network) RoadOccupants(road int) []int { return n.occ.Occupants(road) }

// Agent returns the live agent with the given id.
func (n *Network) Agent(id int) (*Agent, bool) {
	a, ok := n.agents[id]
	return a, ok
}

// AgentCount returns the number of live agents.
func (n *Network) AgentCount() int { return n.liveCount }

// MaxAgentID returns the highest agent id ever assigned. Ids are never
// reused, even across destroy/spawn cycles.
func (n *Network) MaxAgentID() int { return n.lastAgentID }

// LiveAgents returns the ids of all live agents in ascending order. This is
// the stable order the simulation executes agent actions in.
func (n *Network) LiveAgents() []int {
	ids := lo.Keys(n.agents)
	sort.Ints(ids)
	return ids
}

// GeoPosition returns the lon/lat of an intersection. The second return
// value is false when the network was not built from projected coordinates.
func (n *Network) GeoPosition(node int) (orb.Point, bool) {
	if !n.cfg.Projected {
		return orb.Point{}, false
	}
	return project.Point(n.nodes[node].Position, project.Mercator.ToWGS84), true
}

// nextAgentID hands out strictly increasing agent ids, starting at 1.
func (n *Network) nextAgentID() int {
	n.lastAgentID++
	return n.lastAgentID
}

// addAgent registers a new agent. The agent's location must already be set.
func (n *Network) addAgent(a *Agent) {
	n.agents[a.ID] = a
	n.liveCount++
}

// removeAgent destroys a live agent, dropping it from the registry.
func (n *Network) removeAgent(id int) {
	if _, ok := n.agents[id]; !ok {
		return
	}
	delete(n.agents, id)
	n.liveCount--
}
