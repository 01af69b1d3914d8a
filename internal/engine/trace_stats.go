package engine

// TraceStats contains high-level trace metrics for the API response.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	KindCounts  map[string]int `json:"kind_counts"` // kind -> event count
	TimeMin     float64        `json:"time_min"`
	TimeMax     float64        `json:"time_max"`
}

// Stats summarizes the indexed trace. Computed on demand from the index;
// the index is immutable so the numbers never go stale.
func (ix *TraceIndex) Stats() TraceStats {
	stats := TraceStats{
		TotalEvents: ix.total,
		KindCounts:  make(map[string]int),
		TimeMin:     ix.timeMin,
		TimeMax:     ix.timeMax,
	}
	for _, b := range ix.blocks {
		stats.KindCounts[b.kind] = len(b.events)
	}
	return stats
}

// SampleInfo describes how representative a returned slice is, surfaced
// verbatim by the viewer's status line.
type SampleInfo struct {
	Total    int     `json:"total"`
	Returned int     `json:"returned"`
	Accurate bool    `json:"accurate"`
	Percent  float64 `json:"percent"` // selection rate when sampled, 100 when accurate
}

// NewSampleInfo builds the status block for a query that matched total
// events and returned returned of them.
func NewSampleInfo(total, returned int) SampleInfo {
	info := SampleInfo{Total: total, Returned: returned, Accurate: returned >= total, Percent: 100}
	if !info.Accurate && total > 0 {
		info.Percent = float64(returned) / float64(total) * 100
	}
	return info
}
