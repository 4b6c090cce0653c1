package traffic

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Record is one agent sample taken at the end of an iteration. On-road
// agents carry the road's endpoints and their distance along it; agents at
// an intersection carry that node as both endpoints with a zero position.
// X and Y interpolate the agent's planar position for visualization
// collaborators; ETA is the estimated travel time left at current road
// velocities.
type Record struct {
	Iteration int
	Time      float64
	Agent     int
	From      int
	To        int
	Position  float64
	X         float64
	Y         float64
	ETA       float64
}

// TimeSeries is the append-only log of agent samples a run produces.
type TimeSeries struct {
	records []Record
}

// Append adds a record to the series.
func (ts *TimeSeries) Append(r Record) {
	ts.records = append(ts.records, r)
}

// Len returns the number of records.
func (ts *TimeSeries) Len() int { return len(ts.records) }

// Records returns all records in append order.
//
// Important: the slice is a view on the series' internal structure and
// should only be used in read-only operations.
func (ts *TimeSeries) Records() []Record { return ts.records }

// csvHeader is the fixed column set of the CSV export.
var csvHeader = []string{"iteration", "time", "agent", "from", "to", "position", "x", "y", "eta"}

// WriteCSV exports the series as tabular text: the fixed header row, then
// one row per record in append order.
func (ts *TimeSeries) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range ts.records {
		row := []string{
			strconv.Itoa(r.Iteration),
			formatSeconds(r.Time),
			strconv.Itoa(r.Agent),
			strconv.Itoa(r.From),
			strconv.Itoa(r.To),
			formatMeters(r.Position),
			formatMeters(r.X),
			formatMeters(r.Y),
			formatSeconds(r.ETA),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSeconds(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
func formatMeters(v float64) string  { return strconv.FormatFloat(v, 'f', 2, 64) }
