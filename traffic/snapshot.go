package traffic

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/paulmach/orb"

	"github.com/pszufe/RouteBidModel/traffic/routes"
)

// snapshotDTO is the gob image of a complete simulation: the construction
// inputs of the network plus all dynamic state. Restoring replays
// construction and overlays the dynamics, yielding a simulation whose
// subsequent trajectory is identical to the original's.
type snapshotDTO struct {
	Edges  []EdgeSpec
	Coords []orb.Point
	NetCfg NetworkConfig
	Spawns []int
	Dests  []int

	// VMaxs carries the speed limits in m/s. EdgeSpec.SpeedKmh alone would
	// round-trip through the km/h conversion and come back a few ulps off,
	// which is enough to diverge a replayed trajectory.
	VMaxs []float64

	SimCfg    SimConfig
	RunID     string
	Elapsed   float64
	Iteration int
	DTs       []float64
	Records   []Record

	Velocities  []float64
	LastAgentID int
	Agents      []agentDTO

	HasSpawner   bool
	SpawnCfg     SpawnConfig
	SpawnWeights []float64
	DestWeights  []float64
	RNG          []byte
}

type agentDTO struct {
	ID              int
	Loc             Location
	Dest            int
	DeployTime      float64
	RequiredArrival float64
	TimeEstimate    float64
	VoTBase         float64
	VoTSensitivity  float64
	FuelPerMeter    float64
	Costs           []float64

	HasRoute      bool
	RouteNodes    []int
	RouteRoads    []int
	RouteProgress int
}

// Save writes the complete simulation state to w. The encoding is opaque and
// carries no cross-version schema; pair Save with Restore from the same
// build. Pricing signals are not serialized, reattach them after restoring.
func (s *Simulation) Save(w io.Writer) error {
	net := s.net
	dto := snapshotDTO{
		Edges:       make([]EdgeSpec, len(net.roads)),
		Coords:      make([]orb.Point, len(net.nodes)),
		NetCfg:      net.cfg,
		Spawns:      net.spawns,
		Dests:       net.dests,
		VMaxs:       make([]float64, len(net.roads)),
		SimCfg:      s.cfg,
		RunID:       s.runID,
		Elapsed:     s.elapsed,
		Iteration:   s.iter,
		DTs:         s.dts,
		Records:     s.series.records,
		Velocities:  make([]float64, len(net.roads)),
		LastAgentID: net.lastAgentID,
	}
	for i := range net.roads {
		r := &net.roads[i]
		dto.Edges[i] = EdgeSpec{From: r.From, To: r.To, Length: r.Length, SpeedKmh: r.VMax * 3.6}
		dto.VMaxs[i] = r.VMax
		dto.Velocities[i] = r.Velocity
	}
	for i := range net.nodes {
		dto.Coords[i] = net.nodes[i].Position
	}
	for _, id := range net.LiveAgents() {
		dto.Agents = append(dto.Agents, saveAgent(net.agents[id]))
	}
	if s.spawner != nil {
		state, err := s.spawner.src.MarshalBinary()
		if err != nil {
			return fmt.Errorf("capturing random source: %w", err)
		}
		dto.HasSpawner = true
		dto.SpawnCfg = s.spawner.cfg
		dto.SpawnWeights = s.spawner.spawnWeights
		dto.DestWeights = s.spawner.destWeights
		dto.RNG = state
	}
	if err := gob.NewEncoder(w).Encode(dto); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

func saveAgent(a *Agent) agentDTO {
	dto := agentDTO{
		ID:              a.ID,
		Loc:             a.Loc,
		Dest:            a.Dest,
		DeployTime:      a.DeployTime,
		RequiredArrival: a.RequiredArrival,
		TimeEstimate:    a.TimeEstimate,
		VoTBase:         a.VoTBase,
		VoTSensitivity:  a.VoTSensitivity,
		FuelPerMeter:    a.FuelPerMeter,
		Costs:           a.costs,
	}
	if a.Route != nil {
		dto.HasRoute = true
		dto.RouteNodes = a.Route.Nodes()
		dto.RouteRoads = a.Route.Roads()
		dto.RouteProgress = a.Route.Progress()
	}
	return dto
}

// Restore rebuilds a simulation from a stream written by Save. The restored
// simulation steps through the exact trajectory the saved one would have.
func Restore(r io.Reader) (*Simulation, error) {
	var dto snapshotDTO
	if err := gob.NewDecoder(r).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	net, err := NewNetwork(dto.Edges, dto.Coords, dto.NetCfg)
	if err != nil {
		return nil, fmt.Errorf("rebuilding network: %w", err)
	}
	if err := net.DesignateSpawnDests(dto.Spawns, dto.Dests); err != nil {
		return nil, fmt.Errorf("rebuilding network: %w", err)
	}

	var sp *Spawner
	if dto.HasSpawner {
		sp, err = NewSpawner(net, dto.SpawnCfg)
		if err != nil {
			return nil, fmt.Errorf("rebuilding spawner: %w", err)
		}
		if err := sp.applyWeights(net, dto.SpawnWeights, dto.DestWeights); err != nil {
			return nil, fmt.Errorf("rebuilding spawner: %w", err)
		}
		if err := sp.src.UnmarshalBinary(dto.RNG); err != nil {
			return nil, fmt.Errorf("restoring random source: %w", err)
		}
	}

	sim, err := NewSimulation(net, sp, dto.SimCfg)
	if err != nil {
		return nil, err
	}
	sim.runID = dto.RunID
	sim.elapsed = dto.Elapsed
	sim.iter = dto.Iteration
	sim.dts = dto.DTs
	sim.series = &TimeSeries{records: dto.Records}

	for _, ad := range dto.Agents {
		a, err := restoreAgent(ad, net.NumRoads())
		if err != nil {
			return nil, err
		}
		net.addAgent(a)
		if a.Loc.Kind == LocRoad {
			net.occ.Enter(a.Loc.Road, a.ID)
		}
	}
	net.lastAgentID = dto.LastAgentID

	for i := range net.roads {
		net.roads[i].VMax = dto.VMaxs[i]
		net.roads[i].Velocity = dto.Velocities[i]
		net.freeFlow[i] = net.roads[i].FreeFlowTime()
	}
	// The first step's refresh recomputes every road from the rebuilt
	// occupancy. Velocity is a pure function of the occupant count, so the
	// superset refresh is idempotent.
	net.occ.markAllChanged()
	return sim, nil
}

func restoreAgent(dto agentDTO, nRoads int) (*Agent, error) {
	a := &Agent{
		ID:              dto.ID,
		Loc:             dto.Loc,
		Dest:            dto.Dest,
		DeployTime:      dto.DeployTime,
		RequiredArrival: dto.RequiredArrival,
		TimeEstimate:    dto.TimeEstimate,
		VoTBase:         dto.VoTBase,
		VoTSensitivity:  dto.VoTSensitivity,
		FuelPerMeter:    dto.FuelPerMeter,
		costs:           dto.Costs,
	}
	if len(a.costs) != nRoads {
		// gob drops all-zero slices; costs are rebuilt before every routing
		// pass anyway, only the length matters.
		a.costs = make([]float64, nRoads)
	}
	if dto.HasRoute {
		route, err := routes.Resume(dto.RouteNodes, dto.RouteRoads, dto.RouteProgress)
		if err != nil {
			return nil, fmt.Errorf("restoring route of agent %d: %w", dto.ID, err)
		}
		a.Route = route
	}
	return a, nil
}
