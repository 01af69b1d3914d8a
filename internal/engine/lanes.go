package engine

// AssignLanes fills in the display position fields of every event in the
// slice for the given lane count. Events sharing an origin rank are spread
// across laneCount sub-lanes by their position in the slice, a display
// heuristic only. Migration events land at the destination lane's center
// independent of sub-lane crowding. The assignment depends only on slice
// content and position, so repeated application with the same lane count
// reproduces the same fields.
func AssignLanes(sl *Slice, laneCount int) {
	if laneCount < 1 {
		laneCount = 1
	}
	height := 1 / float64(laneCount)
	for i := range sl.Events {
		e := &sl.Events[i]
		e.Height = height
		e.Rank0Pos = float64(e.Rank0) + (float64(i%laneCount)+0.5)/float64(laneCount)
		if e.Rank1 == e.Rank0 {
			e.Rank1Pos = e.Rank0Pos
		} else {
			e.Rank1Pos = float64(e.Rank1) + 0.5
		}
	}
}
