package traffic

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNetwork_shortestToDest(t *testing.T) {
	inf := math.Inf(1)
	testCases := []struct {
		desc     string
		edges    []EdgeSpec
		nNodes   int
		costs    []float64
		dest     int
		wantDist []float64
		wantNext []int
	}{
		{
			desc:     "single node",
			nNodes:   1,
			costs:    []float64{},
			dest:     0,
			wantDist: []float64{0},
			wantNext: []int{-1},
		},
		{
			// 0-->1
			desc:     "one road toward dest",
			edges:    []EdgeSpec{{0, 1, 100, 36}},
			nNodes:   2,
			costs:    []float64{5},
			dest:     1,
			wantDist: []float64{5, 0},
			wantNext: []int{0, -1},
		},
		{
			// 0-->1
			desc:     "dest with no inbound path",
			edges:    []EdgeSpec{{0, 1, 100, 36}},
			nNodes:   2,
			costs:    []float64{5},
			dest:     0,
			wantDist: []float64{0, inf},
			wantNext: []int{-1, -1},
		},
		{
			// 0-->1-->3
			// |       ^
			// +-->2---+
			desc: "diamond picks the cheap branch",
			edges: []EdgeSpec{
				{0, 1, 100, 36}, // road: 0
				{1, 3, 100, 36}, // road: 1
				{0, 2, 100, 36}, // road: 2
				{2, 3, 100, 36}, // road: 3
			},
			nNodes:   4,
			costs:    []float64{1, 5, 2, 2},
			dest:     3,
			wantDist: []float64{4, 5, 2, 0},
			wantNext: []int{2, 1, 3, -1},
		},
		{
			// 0-->1   2-->3
			desc:     "disconnected nodes stay infinite",
			edges:    []EdgeSpec{{0, 1, 100, 36}, {2, 3, 100, 36}},
			nNodes:   4,
			costs:    []float64{1, 1},
			dest:     1,
			wantDist: []float64{1, 0, inf, inf},
			wantNext: []int{0, -1, -1, -1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			net := testNetwork(t, tc.edges, tc.nNodes)

			gotDist, gotNext := net.shortestToDest(tc.costs, tc.dest)

			if diff := cmp.Diff(tc.wantDist, gotDist); diff != "" {
				t.Errorf("shortestToDest(): dist mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantNext, gotNext); diff != "" {
				t.Errorf("shortestToDest(): next mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNetwork_extractRoute(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}, {1, 2, 100, 36}}, 3)

	nodes, roads, ok := net.extractRoute([]int{0, 1, -1}, 0, 2)

	if !ok {
		t.Fatalf("extractRoute(): want ok, got not ok")
	}
	if diff := cmp.Diff([]int{0, 1, 2}, nodes); diff != "" {
		t.Errorf("extractRoute(): nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, roads); diff != "" {
		t.Errorf("extractRoute(): roads mismatch (-want +got):\n%s", diff)
	}
}

func TestNetwork_extractRoute_alreadyThere(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}}, 2)

	nodes, roads, ok := net.extractRoute([]int{0, -1}, 1, 1)

	if !ok {
		t.Fatalf("extractRoute(): want ok, got not ok")
	}
	if diff := cmp.Diff([]int{1}, nodes); diff != "" {
		t.Errorf("extractRoute(): nodes mismatch (-want +got):\n%s", diff)
	}
	if roads != nil {
		t.Errorf("extractRoute(): want no roads, got %v", roads)
	}
}

func TestNetwork_extractRoute_unreachable(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}}, 2)

	if _, _, ok := net.extractRoute([]int{-1, -1}, 0, 1); ok {
		t.Errorf("extractRoute(): want not ok, got ok")
	}
}

func TestNetwork_planRoute(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}, {1, 2, 100, 36}}, 3)
	a := newAgent(1, 0, 2, net.NumRoads())
	a.VoTBase = 0.01

	if ok := net.planRoute(a, 0); !ok {
		t.Fatalf("planRoute(): want ok, got not ok")
	}
	if diff := cmp.Diff([]int{0, 1, 2}, a.Route.Nodes()); diff != "" {
		t.Errorf("planRoute(): route nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, a.Route.Roads()); diff != "" {
		t.Errorf("planRoute(): route roads mismatch (-want +got):\n%s", diff)
	}
	if got, want := a.TimeEstimate, 20.0; got != want {
		t.Errorf("planRoute(): time estimate want %f, got %f", want, got)
	}
	if got := a.Route.At(); got != 0 {
		t.Errorf("planRoute(): route progress at node %d, want 0", got)
	}
}

func TestNetwork_planRoute_unreachable(t *testing.T) {
	// 0-->1   2-->3
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}, {2, 3, 100, 36}}, 4)
	a := newAgent(1, 0, 3, net.NumRoads())

	if ok := net.planRoute(a, 0); ok {
		t.Errorf("planRoute(): want not ok, got ok")
	}
	if a.Route != nil {
		t.Errorf("planRoute(): want no route, got %v", a.Route)
	}
}

func TestNetwork_planRoute_congestionAware(t *testing.T) {
	// 0-->1-->3
	// |       ^
	// +-->2---+
	net := testNetwork(t, []EdgeSpec{
		{0, 1, 100, 36}, // road: 0
		{1, 3, 100, 36}, // road: 1
		{0, 2, 100, 36}, // road: 2
		{2, 3, 100, 36}, // road: 3
	}, 4)
	net.roads[0].Velocity = 2 // congested upper branch
	a := newAgent(1, 0, 3, net.NumRoads())
	a.VoTBase = 0.01

	if ok := net.planRoute(a, 0); !ok {
		t.Fatalf("planRoute(): want ok, got not ok")
	}
	if diff := cmp.Diff([]int{0, 2, 3}, a.Route.Nodes()); diff != "" {
		t.Errorf("planRoute(): route nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestNetwork_planRoute_economics(t *testing.T) {
	// Two parallel roads join 0 and 1: road 0 is long but fast, road 1
	// short but slow. Cheap time favors fuel, expensive time favors speed.
	edges := []EdgeSpec{
		{0, 1, 200, 72}, // road 0: 10 s, 200 m
		{0, 1, 100, 18}, // road 1: 20 s, 100 m
	}

	testCases := []struct {
		desc     string
		votBase  float64
		wantRoad int
	}{
		{
			desc:     "thrifty agent takes the short road",
			votBase:  0.001,
			wantRoad: 1,
		},
		{
			desc:     "hurried agent takes the fast road",
			votBase:  0.05,
			wantRoad: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			net := testNetwork(t, edges, 2)
			a := newAgent(1, 0, 1, net.NumRoads())
			a.VoTBase = tc.votBase
			a.FuelPerMeter = 0.001

			if ok := net.planRoute(a, 0); !ok {
				t.Fatalf("planRoute(): want ok, got not ok")
			}
			if got := a.Route.Roads()[0]; got != tc.wantRoad {
				t.Errorf("planRoute(): want road %d, got %d", tc.wantRoad, got)
			}
		})
	}
}

func TestNetwork_FreeFlowEstimate(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}, {1, 2, 100, 36}}, 3)

	got, ok := net.FreeFlowEstimate(0, 2)

	if !ok {
		t.Fatalf("FreeFlowEstimate(): want ok, got not ok")
	}
	if want := 20.0; got != want {
		t.Errorf("FreeFlowEstimate(): want %f, got %f", want, got)
	}

	if _, ok := net.FreeFlowEstimate(2, 0); ok {
		t.Errorf("FreeFlowEstimate(): want not ok against the road direction, got ok")
	}
	if got, ok := net.FreeFlowEstimate(1, 1); !ok || got != 0 {
		t.Errorf("FreeFlowEstimate(): want (0, ok) for src == dest, got (%f, %t)", got, ok)
	}
}

func TestNetwork_FreeFlowEstimate_ignoresCongestion(t *testing.T) {
	net := testNetwork(t, []EdgeSpec{{0, 1, 100, 36}}, 2)
	net.roads[0].Velocity = 1

	got, ok := net.FreeFlowEstimate(0, 1)

	if !ok {
		t.Fatalf("FreeFlowEstimate(): want ok, got not ok")
	}
	if want := 10.0; got != want {
		t.Errorf("FreeFlowEstimate(): want %f, got %f", want, got)
	}
}
