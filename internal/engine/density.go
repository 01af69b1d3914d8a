package engine

import "github.com/tracekit/traceline/internal/model"

// DensityPoint is one bucket of the overview density strip.
type DensityPoint struct {
	Time  float64 `json:"time"` // bucket start
	Count int     `json:"count"`
}

// Density aggregates exact event counts over equal-width time buckets for
// the visible kinds. Each bucket count uses the same intersection contract
// as Sample, so the overview strip agrees with what a zoomed-in query would
// match. Counts are exact: no sampling is involved.
func (ix *TraceIndex) Density(tr model.TimeRange, visible map[string]bool, buckets int) []DensityPoint {
	if buckets <= 0 || len(visible) == 0 || tr.Start > tr.End {
		return nil
	}

	width := (tr.End - tr.Start) / float64(buckets)
	points := make([]DensityPoint, buckets)
	for i := range points {
		start := tr.Start + float64(i)*width
		bucket := model.TimeRange{Start: start, End: start + width}
		points[i].Time = start
		for j := range ix.blocks {
			b := &ix.blocks[j]
			if !visible[b.kind] {
				continue
			}
			_, count := b.rangeBounds(bucket)
			points[i].Count += count
		}
	}
	return points
}
