package traffic

import (
	"sort"

	"github.com/rhartert/sparsesets"
)

// occupancyState tracks which agents occupy each road and which roads gained
// or lost occupants since the last velocity refresh. Velocity is a pure
// function of the occupant count, so the refresh only needs to visit roads in
// the changed set; untouched roads would recompute to the value they already
// hold.
type occupancyState struct {
	occupants []map[int]struct{}
	changed   *sparsesets.Set
}

func newOccupancyState(nRoads int) *occupancyState {
	s := &occupancyState{
		occupants: make([]map[int]struct{}, nRoads),
		changed:   sparsesets.New(nRoads),
	}
	for i := range s.occupants {
		s.occupants[i] = make(map[int]struct{})
	}
	return s
}

// Count returns the number of agents currently on the road.
func (s *occupancyState) Count(road int) int {
	return len(s.occupants[road])
}

// Occupants returns the ids of the agents on the road in ascending order.
func (s *occupancyState) Occupants(road int) []int {
	ids := make([]int, 0, len(s.occupants[road]))
	for id := range s.occupants[road] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Enter records the agent on the road and marks the road changed.
func (s *occupancyState) Enter(road, agent int) {
	s.occupants[road][agent] = struct{}{}
	s.changed.Insert(road)
}

// Leave removes the agent from the road and marks the road changed.
func (s *occupancyState) Leave(road, agent int) {
	delete(s.occupants[road], agent)
	s.changed.Insert(road)
}

// Changed returns the roads whose occupancy changed since the last call to
// ClearChanges.
//
// Important: the slice is a view on the state's internal structure and should
// only be used in read-only operations.
func (s *occupancyState) Changed() []int {
	return s.changed.Content()
}

// ClearChanges resets the changed set. Called after a velocity refresh has
// consumed it.
func (s *occupancyState) ClearChanges() {
	s.changed.Clear()
}

// markAllChanged queues every road for the next velocity refresh. Snapshot
// restoration uses it so the first step recomputes from rebuilt occupancy.
func (s *occupancyState) markAllChanged() {
	for i := range s.occupants {
		s.changed.Insert(i)
	}
}
