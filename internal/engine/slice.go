package engine

import "github.com/tracekit/traceline/internal/model"

// Slice is a transient, ordered selection of events produced by a sampler
// query. Events are value copies, so display fields can be assigned without
// touching the index.
type Slice struct {
	Events []model.Event `json:"events"`
}

// Size returns the number of events in the slice.
func (sl *Slice) Size() int {
	return len(sl.Events)
}
