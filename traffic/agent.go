package traffic

import (
	"math"

	"github.com/pszufe/RouteBidModel/traffic/routes"
)

// LocationKind discriminates the two places an agent can be.
type LocationKind int8

const (
	// LocNode places the agent at an intersection.
	LocNode LocationKind = iota
	// LocRoad places the agent somewhere along a road segment.
	LocRoad
)

// Location is an agent's exclusive position: at an intersection, or at a
// distance along a road, never both.
type Location struct {
	Kind LocationKind
	Node int     // intersection id, valid when Kind == LocNode
	Road int     // road id, valid when Kind == LocRoad
	Pos  float64 // meters from the road's upstream end, valid when Kind == LocRoad
}

// AtNode returns the location of an agent standing at an intersection.
func AtNode(node int) Location {
	return Location{Kind: LocNode, Node: node}
}

// AtRoad returns the location of an agent pos meters along a road.
func AtRoad(road int, pos float64) Location {
	return Location{Kind: LocRoad, Road: road, Pos: pos}
}

// Agent is one simulated vehicle. Its routing is governed by a personal value
// of time: the later the agent runs relative to its required arrival, the
// more expensive travel time becomes relative to fuel, shifting its route
// choice toward faster roads.
type Agent struct {
	ID   int
	Loc  Location
	Dest int

	// Route is the plan computed at the last intersection, with the agent's
	// progress along it. Nil until the agent's first routing pass.
	Route *routes.Route

	DeployTime      float64
	RequiredArrival float64
	TimeEstimate    float64 // seconds of travel left, refreshed when sampled

	VoTBase        float64 // monetary units per second of travel
	VoTSensitivity float64 // responsiveness to schedule pressure
	FuelPerMeter   float64 // monetary units per meter driven

	// costs is the agent's private view of per-road travel costs, rebuilt
	// before every routing pass. Each agent owns its slice so that cost
	// mutations never leak across agents.
	costs []float64
}

func newAgent(id, start, dest, nRoads int) *Agent {
	return &Agent{
		ID:    id,
		Loc:   AtNode(start),
		Dest:  dest,
		costs: make([]float64, nRoads),
	}
}

// TimeGlut returns the agent's schedule slack at time now: the gap between
// its required arrival and its estimated one. Negative glut means the agent
// is running late.
func (a *Agent) TimeGlut(now float64) float64 {
	return a.RequiredArrival - (now + a.TimeEstimate)
}

// ValueOfTime returns what one second of travel is currently worth to the
// agent: VoTBase * exp(-VoTSensitivity * glut). Agents behind schedule value
// time above their base rate, agents with slack below it.
func (a *Agent) ValueOfTime(now float64) float64 {
	return a.VoTBase * math.Exp(-a.VoTSensitivity*a.TimeGlut(now))
}

// setCosts rebuilds the agent's private road costs from the network's current
// travel times: cost = travelTime * valueOfTime + length * fuelPerMeter.
func (a *Agent) setCosts(net *Network, now float64) {
	vot := a.ValueOfTime(now)
	for i := range net.roads {
		r := &net.roads[i]
		a.costs[i] = r.TravelTime()*vot + r.Length*a.FuelPerMeter
	}
}
