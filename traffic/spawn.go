package traffic

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pszufe/RouteBidModel/traffic/wheels"
)

// ErrNoFeasiblePair reports that the spawner could not draw an origin and a
// destination joined by any path within its retry budget. It signals
// misconfigured spawn and destination sets, not a transient condition, so
// the simulation halts on it.
var ErrNoFeasiblePair = errors.New("no feasible origin/destination pair")

// SpawnConfig parameterizes the arrival process and the population of agents
// it creates.
type SpawnConfig struct {
	// Rate is the mean number of agent arrivals per simulated second. Each
	// iteration draws the number of new agents from a Poisson distribution
	// with mean Rate*dt.
	Rate float64

	// MaxAgents bounds the number of simultaneously live agents. Arrivals
	// beyond the bound are discarded, not queued.
	MaxAgents int

	// VoTBase and VoTSpread define the uniform range
	// [VoTBase-VoTSpread, VoTBase+VoTSpread] an agent's base value of time
	// is drawn from, in monetary units per second. The range is floored at
	// zero; negative values of time would produce negative road costs.
	VoTBase   float64
	VoTSpread float64

	// VoTSensitivity scales how strongly schedule pressure inflates an
	// agent's value of time. Zero makes all agents schedule-indifferent.
	VoTSensitivity float64

	// FuelPerMeter is the driving cost per meter, identical for all agents.
	FuelPerMeter float64

	// ArrivalSlack and ArrivalSpread shape required arrival times. An agent
	// spawned with free-flow estimate f must arrive within a
	// Normal(mu, ArrivalSpread*mu) draw, mu = (1+ArrivalSlack)*f, floored
	// so that no agent is required to arrive before it was deployed.
	ArrivalSlack  float64
	ArrivalSpread float64

	// Seed initializes the spawner's random source. Runs with equal seeds
	// and equal inputs produce identical trajectories.
	Seed uint64

	// MaxPairRetries bounds the resampling of origin/destination pairs with
	// no connecting path before spawning fails with ErrNoFeasiblePair.
	MaxPairRetries int
}

// DefaultSpawnConfig returns a light arrival process with mildly
// heterogeneous agents.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Rate:           0.2,
		MaxAgents:      200,
		VoTBase:        0.01,
		VoTSpread:      0.005,
		VoTSensitivity: 0.05,
		FuelPerMeter:   0.0002,
		ArrivalSlack:   0.2,
		ArrivalSpread:  0.15,
		Seed:           42,
		MaxPairRetries: 25,
	}
}

// Spawner creates agents at designated spawn intersections following a
// Poisson arrival process. All randomness flows through one PCG source so
// that a run is reproducible from its seed and the source state can be
// captured in snapshots.
type Spawner struct {
	cfg SpawnConfig
	src *rand.PCGSource
	rng *rand.Rand

	spawnWheel *wheels.NodeWheel
	destWheel  *wheels.NodeWheel

	// configured wheel weights, aligned with the network's designated node
	// lists; nil means uniform. Kept for snapshots.
	spawnWeights []float64
	destWeights  []float64
}

// NewSpawner returns a spawner drawing origins and destinations uniformly
// from the network's designated sets. The network must have at least one
// spawn and one destination intersection.
func NewSpawner(net *Network, cfg SpawnConfig) (*Spawner, error) {
	if len(net.SpawnNodes()) == 0 || len(net.DestNodes()) == 0 {
		return nil, fmt.Errorf("%w: network has no designated spawn or destination nodes", ErrConstruction)
	}
	if cfg.Rate < 0 {
		return nil, fmt.Errorf("%w: arrival rate must not be negative, got %f", ErrConstruction, cfg.Rate)
	}
	// Negative economics would put negative weights under the router.
	if cfg.VoTBase < 0 || cfg.FuelPerMeter < 0 {
		return nil, fmt.Errorf("%w: value of time and fuel cost must not be negative", ErrConstruction)
	}
	if cfg.MaxPairRetries <= 0 {
		cfg.MaxPairRetries = DefaultSpawnConfig().MaxPairRetries
	}
	src := &rand.PCGSource{}
	src.Seed(cfg.Seed)
	return &Spawner{
		cfg:        cfg,
		src:        src,
		rng:        rand.New(src),
		spawnWheel: wheels.NewUniform(net.SpawnNodes()),
		destWheel:  wheels.NewUniform(net.DestNodes()),
	}, nil
}

// Config returns the spawner's configuration.
func (sp *Spawner) Config() SpawnConfig { return sp.cfg }

// WeightNodes skews origin and destination selection. Weights map node ids
// to relative frequencies; designated nodes absent from a map keep weight 1,
// and a nil map leaves that side of the selection uniform.
func (sp *Spawner) WeightNodes(net *Network, spawn, dest map[int]float64) error {
	var sw, dw []float64
	if spawn != nil {
		sw = weightSlice(net.SpawnNodes(), spawn)
	}
	if dest != nil {
		dw = weightSlice(net.DestNodes(), dest)
	}
	return sp.applyWeights(net, sw, dw)
}

func weightSlice(nodes []int, weights map[int]float64) []float64 {
	ws := make([]float64, len(nodes))
	for i, id := range nodes {
		ws[i] = 1
		if w, ok := weights[id]; ok {
			ws[i] = w
		}
	}
	return ws
}

// applyWeights rebuilds the selection wheels from weight slices aligned with
// the network's designated node lists. A nil slice resets to uniform.
func (sp *Spawner) applyWeights(net *Network, spawn, dest []float64) error {
	spawnWheel := wheels.NewUniform(net.SpawnNodes())
	if spawn != nil {
		w, err := wheels.New(net.SpawnNodes(), spawn)
		if err != nil {
			return fmt.Errorf("spawn weights: %w", err)
		}
		spawnWheel = w
	}
	destWheel := wheels.NewUniform(net.DestNodes())
	if dest != nil {
		w, err := wheels.New(net.DestNodes(), dest)
		if err != nil {
			return fmt.Errorf("destination weights: %w", err)
		}
		destWheel = w
	}
	sp.spawnWheel = spawnWheel
	sp.destWheel = destWheel
	sp.spawnWeights = spawn
	sp.destWeights = dest
	return nil
}

// spawn runs one iteration of the arrival process at simulation time now: it
// draws the number of arrivals for a step of dt seconds, then a connected
// origin/destination pair and an economic profile for each new agent. Agents
// spawned here act from the next iteration on.
func (sp *Spawner) spawn(net *Network, now, dt float64) (int, error) {
	room := sp.cfg.MaxAgents - net.AgentCount()
	if room <= 0 {
		return 0, nil
	}
	k := sp.arrivals(dt)
	if k > room {
		k = room
	}
	for i := 0; i < k; i++ {
		if err := sp.spawnOne(net, now); err != nil {
			return i, err
		}
	}
	return k, nil
}

// arrivals draws the number of agents arriving during a step of dt seconds.
func (sp *Spawner) arrivals(dt float64) int {
	mean := sp.cfg.Rate * dt
	if mean <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: mean, Src: sp.src}.Rand())
}

func (sp *Spawner) spawnOne(net *Network, now float64) error {
	start, dest, freeFlow, err := sp.drawPair(net)
	if err != nil {
		return err
	}
	a := newAgent(net.nextAgentID(), start, dest, net.NumRoads())
	a.DeployTime = now
	a.TimeEstimate = freeFlow
	a.VoTBase = sp.drawVoT()
	a.VoTSensitivity = sp.cfg.VoTSensitivity
	a.FuelPerMeter = sp.cfg.FuelPerMeter
	a.RequiredArrival = now + sp.drawArrivalBudget(freeFlow)
	net.addAgent(a)
	log.Debugf("agent %d deployed at node %d toward %d, required arrival %.1fs", a.ID, start, dest, a.RequiredArrival)
	return nil
}

// drawPair samples origin/destination pairs until one joined by a path on
// the static network is found, returning it with its free-flow travel time.
// Pairs whose origin equals their destination are rejected and resampled.
func (sp *Spawner) drawPair(net *Network) (start, dest int, freeFlow float64, err error) {
	for try := 0; try < sp.cfg.MaxPairRetries; try++ {
		s := sp.spawnWheel.Roll(sp.rng.Float64())
		d := sp.destWheel.Roll(sp.rng.Float64())
		if s < 0 || d < 0 || s == d {
			continue
		}
		if ff, ok := net.FreeFlowEstimate(s, d); ok {
			return s, d, ff, nil
		}
		log.Debugf("rejected pair %d -> %d: no connecting path", s, d)
	}
	return 0, 0, 0, fmt.Errorf("%w after %d attempts", ErrNoFeasiblePair, sp.cfg.MaxPairRetries)
}

func (sp *Spawner) drawVoT() float64 {
	if sp.cfg.VoTSpread <= 0 {
		return sp.cfg.VoTBase
	}
	low := sp.cfg.VoTBase - sp.cfg.VoTSpread
	if low < 0 {
		low = 0
	}
	return distuv.Uniform{Min: low, Max: sp.cfg.VoTBase + sp.cfg.VoTSpread, Src: sp.src}.Rand()
}

// drawArrivalBudget returns the time, from deployment, within which the
// agent is required to arrive. Never negative.
func (sp *Spawner) drawArrivalBudget(freeFlow float64) float64 {
	mu := (1 + sp.cfg.ArrivalSlack) * freeFlow
	budget := mu
	if sigma := sp.cfg.ArrivalSpread * mu; sigma > 0 {
		budget = distuv.Normal{Mu: mu, Sigma: sigma, Src: sp.src}.Rand()
	}
	if budget < 0 {
		return 0
	}
	return budget
}
