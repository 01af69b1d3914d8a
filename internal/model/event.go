package model

// Event represents a single trace row: one interval on the timeline.
// Rank0/Rank1 are the origin and destination lane identifiers; they differ
// for migration events. Line preserves the original row number from the
// trace file so an event keeps its identity through sampling.
type Event struct {
	Rank0    int     `json:"rank0"`
	T0       float64 `json:"t0"`
	Rank1    int     `json:"rank1"`
	T1       float64 `json:"t1"`
	Kind     string  `json:"kind"`
	Line     int64   `json:"line"`
	Duration float64 `json:"duration"`

	// Display fields, filled in by the lane assigner.
	Rank0Pos float64 `json:"rank0_pos"`
	Rank1Pos float64 `json:"rank1_pos"`
	Height   float64 `json:"height"`
}

// TimeRange is a closed query window [Start, End] on the trace time axis.
// Start > End is a valid degenerate query that matches nothing.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
