package engine

import (
	"sort"

	"github.com/tracekit/traceline/internal/model"
	"github.com/zhangyunhao116/fastrand"
)

// Rand is the random source used for sampling draws. *math/rand.Rand
// satisfies it, which is how tests inject a seeded source.
type Rand interface {
	Int63n(n int64) int64
}

type fastrandSource struct{}

func (fastrandSource) Int63n(n int64) int64 { return fastrand.Int63n(n) }

// Sampler answers range-filtered sampling queries against a TraceIndex.
// It holds no mutable state between calls: every query is a pure function
// of its arguments, the index, and the random draws.
type Sampler struct {
	ix  *TraceIndex
	rng Rand
}

// NewSampler returns a sampler using the process-wide PRNG.
func NewSampler(ix *TraceIndex) *Sampler {
	return &Sampler{ix: ix, rng: fastrandSource{}}
}

// NewSamplerWithRand returns a sampler drawing from rng.
func NewSamplerWithRand(ix *TraceIndex, rng Rand) *Sampler {
	return &Sampler{ix: ix, rng: rng}
}

// Sample returns at most maxSamples events whose intervals intersect tr and
// whose kind is in visible, plus the true number of matching events.
//
// When the matching population fits the budget the result is exact: every
// matching event, in kind order then start order. Otherwise the per-kind
// matching ranges are laid end to end into a virtual index space
// [0, total) and maxSamples distinct indices are drawn uniformly without
// replacement, so every matching event has equal selection probability
// regardless of kind. The drawn indices are sorted before mapping back to
// per-kind local positions, which fixes the row order for a given draw.
//
// Degenerate queries (non-positive budget, no visible kind, inverted range)
// return an empty slice with total 0; they are never errors.
func (s *Sampler) Sample(tr model.TimeRange, visible map[string]bool, maxSamples int) (*Slice, int) {
	if maxSamples <= 0 || len(visible) == 0 || tr.Start > tr.End {
		return s.ix.EmptySlice(), 0
	}

	nk := len(s.ix.blocks)
	lo := make([]int, nk)
	count := make([]int, nk)
	total := 0
	for i := range s.ix.blocks {
		b := &s.ix.blocks[i]
		if !visible[b.kind] {
			continue
		}
		lo[i], count[i] = b.rangeBounds(tr)
		total += count[i]
	}

	if total == 0 {
		return s.ix.EmptySlice(), 0
	}

	if total <= maxSamples {
		out := make([]model.Event, 0, total)
		for i := range s.ix.blocks {
			b := &s.ix.blocks[i]
			out = append(out, b.events[lo[i]:lo[i]+count[i]]...)
		}
		return &Slice{Events: out}, total
	}

	picked := s.drawDistinct(maxSamples, total)

	out := make([]model.Event, 0, maxSamples)
	base := 0
	next := 0
	for i := range s.ix.blocks {
		b := &s.ix.blocks[i]
		end := base + count[i]
		for next < len(picked) && picked[next] < end {
			local := picked[next] - base + lo[i]
			out = append(out, b.events[local])
			next++
		}
		base = end
	}

	return &Slice{Events: out}, total
}

// SubSample draws n distinct events uniformly from an existing slice,
// preserving their relative order. Oversized requests saturate: if n covers
// the whole slice it is returned unchanged.
func (s *Sampler) SubSample(sl *Slice, n int) *Slice {
	if n >= sl.Size() {
		return sl
	}
	if n <= 0 {
		return &Slice{}
	}
	picked := s.drawDistinct(n, sl.Size())
	out := make([]model.Event, 0, n)
	for _, i := range picked {
		out = append(out, sl.Events[i])
	}
	return &Slice{Events: out}
}

// drawDistinct picks k distinct integers uniformly from [0, n) without
// replacement using Floyd's algorithm, so every k-subset is equally likely
// and only O(k) memory is touched. The result is sorted ascending.
func (s *Sampler) drawDistinct(k, n int) []int {
	chosen := make(map[int]struct{}, k)
	for i := n - k; i < n; i++ {
		j := int(s.rng.Int63n(int64(i) + 1))
		if _, taken := chosen[j]; taken {
			chosen[i] = struct{}{}
		} else {
			chosen[j] = struct{}{}
		}
	}
	out := make([]int, 0, k)
	for v := range chosen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
