package routes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_errors(t *testing.T) {
	testCases := []struct {
		desc    string
		nodes   []int
		wantErr bool
	}{
		{
			desc:    "empty sequence",
			nodes:   []int{},
			wantErr: true,
		},
		{
			desc:  "single node",
			nodes: []int{3},
		},
		{
			desc:    "consecutive repeat",
			nodes:   []int{0, 3, 3, 1},
			wantErr: true,
		},
		{
			desc:  "non-consecutive repeat",
			nodes: []int{0, 3, 0, 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, gotErr := New(tc.nodes)

			if tc.wantErr && !errors.Is(gotErr, ErrInvalidRoute) {
				t.Errorf("New(): want ErrInvalidRoute, got %v", gotErr)
			}
			if !tc.wantErr && gotErr != nil {
				t.Errorf("New(): want no error, got %s", gotErr)
			}
		})
	}
}

func TestWithRoads_errors(t *testing.T) {
	testCases := []struct {
		desc    string
		nodes   []int
		roads   []int
		wantErr bool
	}{
		{
			desc:  "matching lengths",
			nodes: []int{0, 3, 1},
			roads: []int{5, 2},
		},
		{
			desc:  "single node without roads",
			nodes: []int{0},
			roads: []int{},
		},
		{
			desc:    "too few roads",
			nodes:   []int{0, 3, 1},
			roads:   []int{5},
			wantErr: true,
		},
		{
			desc:    "too many roads",
			nodes:   []int{0, 3},
			roads:   []int{5, 2},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, gotErr := WithRoads(tc.nodes, tc.roads)

			if tc.wantErr && !errors.Is(gotErr, ErrInvalidRoute) {
				t.Errorf("WithRoads(): want ErrInvalidRoute, got %v", gotErr)
			}
			if !tc.wantErr && gotErr != nil {
				t.Errorf("WithRoads(): want no error, got %s", gotErr)
			}
		})
	}
}

func TestResume_errors(t *testing.T) {
	testCases := []struct {
		desc    string
		pos     int
		wantErr bool
	}{
		{
			desc: "start",
			pos:  0,
		},
		{
			desc: "destination",
			pos:  2,
		},
		{
			desc:    "negative",
			pos:     -1,
			wantErr: true,
		},
		{
			desc:    "past destination",
			pos:     3,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, gotErr := Resume([]int{0, 3, 1}, []int{5, 2}, tc.pos)

			if tc.wantErr && !errors.Is(gotErr, ErrInvalidRoute) {
				t.Errorf("Resume(): want ErrInvalidRoute, got %v", gotErr)
			}
			if !tc.wantErr && gotErr != nil {
				t.Errorf("Resume(): want no error, got %s", gotErr)
			}
		})
	}
}

func TestRoute_views(t *testing.T) {
	wantNodes := []int{4, 0, 2, 5}
	wantRoads := []int{1, 6, 3}
	r, err := WithRoads(wantNodes, wantRoads)
	if err != nil {
		t.Fatalf("WithRoads(): want no error, got %s", err)
	}

	if diff := cmp.Diff(wantNodes, r.Nodes()); diff != "" {
		t.Errorf("Nodes(): mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRoads, r.Roads()); diff != "" {
		t.Errorf("Roads(): mismatch (-want +got):\n%s", diff)
	}
	if got, want := r.Dest(), 5; got != want {
		t.Errorf("Dest(): want %d, got %d", want, got)
	}
	if got, want := r.Len(), 4; got != want {
		t.Errorf("Len(): want %d, got %d", want, got)
	}
}

func TestRoute_remainingRoadsWithoutRoads(t *testing.T) {
	r, err := New([]int{4, 0, 2})
	if err != nil {
		t.Fatalf("New(): want no error, got %s", err)
	}

	if got := r.RemainingRoads(); got != nil {
		t.Errorf("RemainingRoads(): want nil, got %v", got)
	}
	if _, ok := r.NextRoad(); ok {
		t.Errorf("NextRoad(): want no road, got one")
	}
}
