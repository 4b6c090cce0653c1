package traffic

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrNegativeTimeStep reports an occupant positioned beyond the end of its
// road. The invariant is load-bearing for time-step selection, so the
// simulation halts instead of advancing time backwards.
var ErrNegativeTimeStep = errors.New("negative time step")

// PricingSignal lets an external congestion-pricing layer modulate road
// velocities. VelocityFactor returns a multiplier applied to the road's
// refreshed velocity; the result is clamped to the road's [VMin, VMax] band.
// The engine makes no assumption about how factors are computed.
type PricingSignal interface {
	VelocityFactor(road int) float64
}

// SimConfig parameterizes a simulation run.
type SimConfig struct {
	// TimeHorizon is the simulated time, in seconds, after which the run
	// stops.
	TimeHorizon float64

	// DT is the fixed time step in seconds. Zero selects variable stepping:
	// each step then spans the shortest time in which any on-road agent
	// would complete its road, floored at MinDT.
	DT float64

	// MinDT floors variable time steps. It is also the step taken when no
	// road is occupied. Ignored in fixed stepping.
	MinDT float64

	// MaxIterations bounds the number of steps regardless of simulated
	// time.
	MaxIterations int

	// LogEvery emits a progress line every LogEvery iterations; zero
	// disables progress logging.
	LogEvery int
}

// DefaultSimConfig returns one simulated hour of variable stepping.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TimeHorizon:   3600,
		MinDT:         0.05,
		MaxIterations: 1000000,
		LogEvery:      500,
	}
}

// Simulation advances a network through discrete time steps. Each step
// refreshes road velocities from occupancy, selects the step duration,
// spawns new agents, executes one action per pre-existing live agent in
// ascending id order, and samples every live agent into the time series.
// Steps are synchronous batches: agents spawned during a step take their
// first action in the following one.
type Simulation struct {
	net     *Network
	spawner *Spawner
	cfg     SimConfig
	pricing PricingSignal

	runID   string
	elapsed float64
	iter    int
	dts     []float64
	series  *TimeSeries
}

// NewSimulation returns a simulation over the given network. spawner may be
// nil for runs driven entirely by directly seeded agents.
func NewSimulation(net *Network, spawner *Spawner, cfg SimConfig) (*Simulation, error) {
	if cfg.TimeHorizon <= 0 {
		return nil, fmt.Errorf("%w: time horizon must be positive, got %f", ErrConstruction, cfg.TimeHorizon)
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: iteration bound must be positive, got %d", ErrConstruction, cfg.MaxIterations)
	}
	if cfg.DT < 0 {
		return nil, fmt.Errorf("%w: fixed time step must not be negative, got %f", ErrConstruction, cfg.DT)
	}
	if cfg.DT == 0 && cfg.MinDT <= 0 {
		return nil, fmt.Errorf("%w: variable stepping needs a positive minimum time step, got %f", ErrConstruction, cfg.MinDT)
	}
	return &Simulation{
		net:     net,
		spawner: spawner,
		cfg:     cfg,
		runID:   uuid.New().String(),
		series:  &TimeSeries{},
	}, nil
}

// Network returns the simulated network.
func (s *Simulation) Network() *Network { return s.net }

// RunID identifies this run in logs and exports.
func (s *Simulation) RunID() string { return s.runID }

// Elapsed returns the simulated time in seconds.
func (s *Simulation) Elapsed() float64 { return s.elapsed }

// Iteration returns the number of executed steps.
func (s *Simulation) Iteration() int { return s.iter }

// Series returns the time series collected so far.
func (s *Simulation) Series() *TimeSeries { return s.series }

// TimeSteps returns the duration of every executed step in order.
//
// Important: the slice is a view on the simulation's internal structure and
// should only be used in read-only operations.
func (s *Simulation) TimeSteps() []float64 { return s.dts }

// SetPricing installs a pricing signal, or removes it when nil. With a
// signal installed every road's velocity is refreshed every step, since the
// signal may change between steps without touching occupancy.
func (s *Simulation) SetPricing(p PricingSignal) { s.pricing = p }

// AgentParams configures a directly seeded agent.
type AgentParams struct {
	Start int
	Dest  int

	VoTBase        float64
	VoTSensitivity float64
	FuelPerMeter   float64

	// RequiredArrival is an absolute simulation time. Zero means "now plus
	// the pair's free-flow travel time".
	RequiredArrival float64
}

// SeedAgent places an agent at an intersection immediately, bypassing the
// random arrival process. Seeded agents take their first action in the next
// executed step. Scripted scenarios and snapshot restoration are the
// intended users; the destination does not have to be reachable, an agent
// seeded onto a disconnected pair simply never moves.
func (s *Simulation) SeedAgent(p AgentParams) (*Agent, error) {
	if p.Start < 0 || s.net.NumNodes() <= p.Start {
		return nil, fmt.Errorf("%w: start node %d is not in [0, %d)", ErrConstruction, p.Start, s.net.NumNodes())
	}
	if p.Dest < 0 || s.net.NumNodes() <= p.Dest {
		return nil, fmt.Errorf("%w: destination node %d is not in [0, %d)", ErrConstruction, p.Dest, s.net.NumNodes())
	}
	if p.VoTBase < 0 || p.FuelPerMeter < 0 {
		return nil, fmt.Errorf("%w: value of time and fuel cost must not be negative", ErrConstruction)
	}
	a := newAgent(s.net.nextAgentID(), p.Start, p.Dest, s.net.NumRoads())
	a.DeployTime = s.elapsed
	a.VoTBase = p.VoTBase
	a.VoTSensitivity = p.VoTSensitivity
	a.FuelPerMeter = p.FuelPerMeter
	if ff, ok := s.net.FreeFlowEstimate(p.Start, p.Dest); ok {
		a.TimeEstimate = ff
	}
	a.RequiredArrival = p.RequiredArrival
	if a.RequiredArrival == 0 {
		a.RequiredArrival = s.elapsed + a.TimeEstimate
	}
	s.net.addAgent(a)
	return a, nil
}

// Done reports whether a terminal condition has been reached.
func (s *Simulation) Done() bool {
	return s.elapsed >= s.cfg.TimeHorizon || s.iter >= s.cfg.MaxIterations
}

// Run steps the simulation to completion. It returns the first fatal error;
// the time series collected up to that point stays available either way.
func (s *Simulation) Run() error {
	mode := "variable"
	if s.cfg.DT > 0 {
		mode = fmt.Sprintf("fixed %.3gs", s.cfg.DT)
	}
	log.Infof("run %s started: horizon %.0fs, %s stepping", s.runID, s.cfg.TimeHorizon, mode)
	for !s.Done() {
		if err := s.Step(); err != nil {
			log.Errorf("run %s halted at iteration %d: %v", s.runID, s.iter, err)
			return err
		}
		if n := s.cfg.LogEvery; n > 0 && s.iter%n == 0 {
			log.Infof("run %s: iteration %d, t=%.1fs, %d live agents", s.runID, s.iter, s.elapsed, s.net.AgentCount())
		}
	}
	log.Infof("run %s finished: %d iterations, t=%.1fs, %d agents live, %d deployed in total",
		s.runID, s.iter, s.elapsed, s.net.AgentCount(), s.net.MaxAgentID())
	return nil
}

// Step advances the simulation by one iteration. The returned errors are all
// fatal: the simulation must not be stepped further after one.
func (s *Simulation) Step() error {
	s.refreshVelocities()
	dt, err := s.selectTimeStep()
	if err != nil {
		return err
	}
	acting := s.net.LiveAgents()
	if s.spawner != nil {
		if _, err := s.spawner.spawn(s.net, s.elapsed, dt); err != nil {
			return err
		}
	}
	for _, id := range acting {
		s.act(s.net.agents[id], dt)
	}
	s.iter++
	s.elapsed += dt
	s.dts = append(s.dts, dt)
	s.sample()
	return nil
}

// refreshVelocities recomputes road velocities from the occupant counts at
// the start of the step. Without a pricing signal only roads whose occupancy
// changed since the previous refresh are visited.
func (s *Simulation) refreshVelocities() {
	if s.pricing != nil {
		for i := range s.net.roads {
			s.refreshRoad(i)
		}
	} else {
		for _, id := range s.net.occ.Changed() {
			s.refreshRoad(id)
		}
	}
	s.net.occ.ClearChanges()
}

func (s *Simulation) refreshRoad(id int) {
	r := &s.net.roads[id]
	v := congestionVelocity(s.net.occ.Count(id), r.Capacity, r.VMax, r.VMin)
	if s.pricing != nil {
		v = math.Min(math.Max(v*s.pricing.VelocityFactor(id), r.VMin), r.VMax)
	}
	r.Velocity = v
}

// selectTimeStep returns the duration of the current step. Fixed mode always
// selects the configured DT. Variable mode selects the smallest remaining
// crossing time over all on-road agents, floored at MinDT; with nobody on a
// road the step is MinDT. An occupant beyond the end of its road is a fatal
// invariant violation.
func (s *Simulation) selectTimeStep() (float64, error) {
	if s.cfg.DT > 0 {
		return s.cfg.DT, nil
	}
	dt := math.Inf(1)
	for _, id := range s.net.LiveAgents() {
		a := s.net.agents[id]
		if a.Loc.Kind != LocRoad {
			continue
		}
		r := &s.net.roads[a.Loc.Road]
		remaining := r.Length - a.Loc.Pos
		if remaining < 0 {
			return 0, fmt.Errorf("%w: agent %d is %.2fm beyond the end of road %d", ErrNegativeTimeStep, id, -remaining, r.ID)
		}
		if c := remaining / r.Velocity; c < dt {
			dt = c
		}
	}
	if dt < s.cfg.MinDT || math.IsInf(dt, 1) {
		dt = s.cfg.MinDT
	}
	return dt, nil
}

// act performs one state transition for the agent over a step of dt seconds:
// advancing along its road, or, at an intersection, being destroyed on
// arrival or routing onto the first road of a fresh plan. Entering a road
// includes the first advance along it; agents that cannot route or enter
// stay put until the next step.
func (s *Simulation) act(a *Agent, dt float64) {
	if a.Loc.Kind == LocRoad {
		s.advance(a, dt)
		return
	}
	node := a.Loc.Node
	if node == a.Dest {
		s.destroy(a)
		return
	}
	if !s.net.planRoute(a, s.elapsed) {
		log.Debugf("agent %d stalled at node %d: destination %d unreachable", a.ID, node, a.Dest)
		return
	}
	road, _ := a.Route.NextRoad()
	if s.net.occ.Count(road) >= s.net.roads[road].Capacity {
		log.Debugf("agent %d blocked at node %d: road %d at capacity", a.ID, node, road)
		return
	}
	s.net.occ.Enter(road, a.ID)
	a.Loc = AtRoad(road, 0)
	a.Route.Advance()
	s.advance(a, dt)
}

// advance moves an on-road agent by velocity*dt. Reaching the end of the
// road completes it: the agent leaves the road and stands at its forward
// intersection, or is destroyed right away when that intersection is its
// destination.
func (s *Simulation) advance(a *Agent, dt float64) {
	r := &s.net.roads[a.Loc.Road]
	a.Loc.Pos += r.Velocity * dt
	if a.Loc.Pos < r.Length {
		return
	}
	s.net.occ.Leave(r.ID, a.ID)
	a.Loc = AtNode(r.To)
	if r.To == a.Dest {
		s.destroy(a)
	}
}

func (s *Simulation) destroy(a *Agent) {
	s.net.removeAgent(a.ID)
	log.Debugf("agent %d arrived at node %d, t=%.1fs", a.ID, a.Dest, s.elapsed)
}

// sample appends one time-series record per live agent.
func (s *Simulation) sample() {
	for _, id := range s.net.LiveAgents() {
		s.series.Append(s.record(s.net.agents[id]))
	}
}

// record builds the agent's sample for the step that just completed,
// interpolating on-road positions between the road's endpoints.
func (s *Simulation) record(a *Agent) Record {
	rec := Record{
		Iteration: s.iter,
		Time:      s.elapsed,
		Agent:     a.ID,
	}
	switch a.Loc.Kind {
	case LocNode:
		n := &s.net.nodes[a.Loc.Node]
		rec.From, rec.To = n.ID, n.ID
		rec.X, rec.Y = n.Position.X(), n.Position.Y()
	case LocRoad:
		r := &s.net.roads[a.Loc.Road]
		rec.From, rec.To = r.From, r.To
		rec.Position = a.Loc.Pos
		from := s.net.nodes[r.From].Position
		to := s.net.nodes[r.To].Position
		frac := a.Loc.Pos / r.Length
		rec.X = from.X() + (to.X()-from.X())*frac
		rec.Y = from.Y() + (to.Y()-from.Y())*frac
	}
	rec.ETA = s.remainingTime(a)
	return rec
}

// remainingTime estimates the agent's travel time left at current road
// velocities: the remainder of its current road plus the roads of its route
// not yet entered. The agent's stored estimate is refreshed along the way.
func (s *Simulation) remainingTime(a *Agent) float64 {
	if a.Route == nil {
		// Not routed yet; the estimate from spawn time stands.
		return a.TimeEstimate
	}
	t := s.net.routeTime(a.Route.RemainingRoads())
	if a.Loc.Kind == LocRoad {
		r := &s.net.roads[a.Loc.Road]
		t += (r.Length - a.Loc.Pos) / r.Velocity
	}
	a.TimeEstimate = t
	return t
}
