package traffic

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/graph/simple"
)

// GridConfig describes a synthetic rows x cols Manhattan grid. Adjacent
// intersections are joined by one road in each direction, so a grid has
// 2*(2*rows*cols - rows - cols) roads.
type GridConfig struct {
	Rows int
	Cols int

	// BlockLength is the distance in meters between adjacent intersections.
	BlockLength float64

	// SpeedKmh is the speed limit on every road; zero means the network
	// fallback applies.
	SpeedKmh float64
}

// DefaultGridConfig returns a 6x6 grid of 120 m blocks at 50 km/h.
func DefaultGridConfig() GridConfig {
	return GridConfig{Rows: 6, Cols: 6, BlockLength: 120, SpeedKmh: 50}
}

// BuildGrid constructs a grid network with the four corner intersections
// designated as both spawn and destination points. Node ids are assigned
// row-major. The grid is assembled as a gonum weighted directed graph and
// fed through the same FromGraph adapter external map sources use.
func BuildGrid(gcfg GridConfig, ncfg NetworkConfig) (*Network, error) {
	if gcfg.Rows < 2 || gcfg.Cols < 2 {
		return nil, fmt.Errorf("%w: a grid needs at least 2x2 intersections, got %dx%d", ErrConstruction, gcfg.Rows, gcfg.Cols)
	}
	if gcfg.BlockLength <= 0 {
		return nil, fmt.Errorf("%w: block length must be positive, got %f", ErrConstruction, gcfg.BlockLength)
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	coords := make([]orb.Point, gcfg.Rows*gcfg.Cols)
	id := func(row, col int) int64 {
		return int64(row*gcfg.Cols + col)
	}
	link := func(u, v int64) {
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: gcfg.BlockLength})
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(v), T: simple.Node(u), W: gcfg.BlockLength})
	}
	for row := 0; row < gcfg.Rows; row++ {
		for col := 0; col < gcfg.Cols; col++ {
			coords[id(row, col)] = orb.Point{float64(col) * gcfg.BlockLength, float64(row) * gcfg.BlockLength}
			if col+1 < gcfg.Cols {
				link(id(row, col), id(row, col+1))
			}
			if row+1 < gcfg.Rows {
				link(id(row, col), id(row+1, col))
			}
		}
	}

	var speeds SpeedLookup
	if gcfg.SpeedKmh > 0 {
		speeds = func(from, to int) (float64, bool) { return gcfg.SpeedKmh, true }
	}
	net, err := FromGraph(g, coords, speeds, ncfg)
	if err != nil {
		return nil, err
	}

	corners := []int{
		int(id(0, 0)),
		int(id(0, gcfg.Cols-1)),
		int(id(gcfg.Rows-1, 0)),
		int(id(gcfg.Rows-1, gcfg.Cols-1)),
	}
	if err := net.DesignateSpawnDests(corners, corners); err != nil {
		return nil, err
	}
	return net, nil
}
