package traffic

import (
	"github.com/paulmach/orb"
)

// kmhToMs converts a speed in km/h to m/s. All internal quantities are SI:
// meters, seconds, m/s.
func kmhToMs(kmh float64) float64 { return kmh / 3.6 }

// Road is a directed road segment between two intersections.
//
// Velocity is the current congestion-adjusted speed on the segment. It is
// refreshed once per iteration from the occupant count at the start of the
// iteration and stays within [VMin, VMax].
type Road struct {
	ID     int
	From   int // upstream intersection
	To     int // downstream intersection
	Length float64
	Lanes  int

	VMax     float64
	VMin     float64
	Velocity float64

	// Capacity bounds the number of simultaneous occupants:
	// floor(Length / (carLength + headway)) * Lanes, and at least 1 so that
	// every road remains traversable.
	Capacity int
}

// TravelTime returns the time in seconds to traverse the whole segment at its
// current velocity.
func (r *Road) TravelTime() float64 { return r.Length / r.Velocity }

// FreeFlowTime returns the traversal time at the speed limit.
func (r *Road) FreeFlowTime() float64 { return r.Length / r.VMax }

// congestionVelocity maps an occupant count to a velocity: vMax for an empty
// road, decreasing linearly to vMin at full capacity, clamped to vMin beyond.
func congestionVelocity(occupancy, capacity int, vMax, vMin float64) float64 {
	if occupancy <= 0 {
		return vMax
	}
	if occupancy >= capacity {
		return vMin
	}
	v := vMax - (vMax-vMin)*float64(occupancy)/float64(capacity)
	if v < vMin {
		return vMin
	}
	if v > vMax {
		return vMax
	}
	return v
}

// roadCapacity derives a road's occupant bound from its geometry.
func roadCapacity(length, carLength, headway float64, lanes int) int {
	c := int(length/(carLength+headway)) * lanes
	if c < 1 {
		return 1
	}
	return c
}

// Intersection is a node of the road network. In and Out list the indices of
// the roads reaching and leaving the node in construction order; the order
// carries no meaning. Position is in the planar coordinate system the network
// was built with.
type Intersection struct {
	ID       int
	Position orb.Point
	In       []int
	Out      []int
	Spawn    bool
	Dest     bool
}
