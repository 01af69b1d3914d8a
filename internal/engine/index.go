package engine

import (
	"sort"

	"github.com/tracekit/traceline/internal/model"
)

// kindBlock holds one kind's events in a contiguous backing slice, sorted
// ascending by T0. An event's position in the slice is its local position.
// ends is a sorted copy of the block's T1 values kept for the range lower
// bound lookup; it owns no event data.
type kindBlock struct {
	kind   string
	events []model.Event
	ends   []float64
}

// TraceIndex is the immutable per-kind partition of a loaded trace.
// It is built once from the ingested rows and read-only afterward, so it
// can be shared across queries without locking.
type TraceIndex struct {
	blocks []kindBlock
	kinds  []string

	timeMin float64
	timeMax float64
	total   int
}

// BuildIndex partitions events by kind and sorts each partition by start
// time. Kind order is first-seen order over the input, which fixes the
// sampler's per-kind iteration order for the life of the index.
func BuildIndex(events []model.Event) *TraceIndex {
	ix := &TraceIndex{}

	byKind := make(map[string]int)
	for _, e := range events {
		pos, ok := byKind[e.Kind]
		if !ok {
			pos = len(ix.blocks)
			byKind[e.Kind] = pos
			ix.blocks = append(ix.blocks, kindBlock{kind: e.Kind})
			ix.kinds = append(ix.kinds, e.Kind)
		}
		e.Duration = e.T1 - e.T0
		ix.blocks[pos].events = append(ix.blocks[pos].events, e)
	}

	for i := range ix.blocks {
		b := &ix.blocks[i]
		sort.SliceStable(b.events, func(x, y int) bool {
			return b.events[x].T0 < b.events[y].T0
		})
		b.ends = make([]float64, len(b.events))
		for j, e := range b.events {
			b.ends[j] = e.T1
		}
		sort.Float64s(b.ends)
	}

	first := true
	for _, b := range ix.blocks {
		for _, e := range b.events {
			if first {
				ix.timeMin = e.T0
				ix.timeMax = e.T1
				first = false
				continue
			}
			if e.T0 < ix.timeMin {
				ix.timeMin = e.T0
			}
			if e.T1 > ix.timeMax {
				ix.timeMax = e.T1
			}
		}
		ix.total += len(b.events)
	}

	return ix
}

// TimeRange returns the full extent of the trace: the minimum start time
// and the maximum end time over all events. ok is false for an empty trace.
func (ix *TraceIndex) TimeRange() (tr model.TimeRange, ok bool) {
	if ix.total == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: ix.timeMin, End: ix.timeMax}, true
}

// Kinds returns the distinct kinds in build order. The returned slice is
// shared; callers must not modify it.
func (ix *TraceIndex) Kinds() []string {
	return ix.kinds
}

// Len returns the total number of indexed events.
func (ix *TraceIndex) Len() int {
	return ix.total
}

// EmptySlice returns a slice with zero events, for degenerate queries.
func (ix *TraceIndex) EmptySlice() *Slice {
	return &Slice{}
}

// rangeBounds computes the matching sub-range of a block for a time window.
// lo is the first local position whose end time reaches the window start,
// found over the sorted end-time copy; hi is one past the last local
// position whose start time is inside the window, found over the start
// order. The half-open interval [lo, lo+count) indexes the start-ordered
// block; that asymmetry is the range contract.
func (b *kindBlock) rangeBounds(tr model.TimeRange) (lo, count int) {
	lo = sort.SearchFloat64s(b.ends, tr.Start)
	hi := sort.Search(len(b.events), func(i int) bool {
		return b.events[i].T0 > tr.End
	})
	if hi > lo {
		count = hi - lo
	}
	return lo, count
}
