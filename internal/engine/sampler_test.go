package engine

import (
	"math/rand"
	"testing"

	"github.com/tracekit/traceline/internal/model"
)

func allKinds() map[string]bool {
	return map[string]bool{"A": true, "B": true, "C": true}
}

func seededSampler(ix *TraceIndex, seed int64) *Sampler {
	return NewSamplerWithRand(ix, rand.New(rand.NewSource(seed)))
}

func TestSampleExactUnderBudget(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 1)

	sl, total := s.Sample(model.TimeRange{Start: 20, End: 40}, allKinds(), 1000)
	if total != 30 {
		t.Fatalf("Expected true total 30, got %d", total)
	}
	if sl.Size() != 30 {
		t.Fatalf("Under budget the result must be exact: expected 30 events, got %d", sl.Size())
	}

	// Exact results come back in kind order, start order within kind.
	wantKinds := []string{"A", "B", "C"}
	for i, e := range sl.Events {
		if e.Kind != wantKinds[i/10] {
			t.Fatalf("Event %d: expected kind %s, got %s", i, wantKinds[i/10], e.Kind)
		}
		if i%10 > 0 && e.T0 < sl.Events[i-1].T0 {
			t.Errorf("Event %d out of start order within kind", i)
		}
	}
}

func TestSampleBudgetRespected(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 2)
	window := model.TimeRange{Start: 20, End: 40}

	sl, total := s.Sample(window, allKinds(), 5)
	if total != 30 {
		t.Fatalf("Expected true total 30, got %d", total)
	}
	if sl.Size() != 5 {
		t.Fatalf("Expected exactly 5 sampled events, got %d", sl.Size())
	}
	for _, e := range sl.Events {
		if !allKinds()[e.Kind] {
			t.Errorf("Event line %d has invisible kind %s", e.Line, e.Kind)
		}
		if e.T1 < window.Start || e.T0 > window.End {
			t.Errorf("Event line %d [%g, %g] outside window", e.Line, e.T0, e.T1)
		}
	}
}

func TestSampleNoDuplicates(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 3)
	window := model.TimeRange{Start: 20, End: 40}

	for iter := 0; iter < 50; iter++ {
		sl, _ := s.Sample(window, allKinds(), 10)
		seen := make(map[int64]bool)
		for _, e := range sl.Events {
			if seen[e.Line] {
				t.Fatalf("Iteration %d: event line %d returned twice", iter, e.Line)
			}
			seen[e.Line] = true
		}
	}
}

func TestSampleKindFilter(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 4)

	sl, total := s.Sample(model.TimeRange{Start: 0, End: 100}, map[string]bool{"B": true}, 1000)
	if total != 10 {
		t.Fatalf("Expected 10 matching events, got %d", total)
	}
	for _, e := range sl.Events {
		if e.Kind != "B" {
			t.Errorf("Expected only kind B, got %s", e.Kind)
		}
	}
}

func TestSampleRangeFilter(t *testing.T) {
	// Uniform short durations, so the index bounds match brute-force
	// interval intersection exactly.
	var events []model.Event
	for i := 0; i < 20; i++ {
		t0 := float64(i * 10)
		events = append(events, model.Event{Kind: "A", T0: t0, T1: t0 + 5, Line: int64(i)})
	}
	ix := BuildIndex(events)
	s := seededSampler(ix, 5)
	window := model.TimeRange{Start: 42, End: 95}

	want := 0
	for _, e := range events {
		if e.T1 >= window.Start && e.T0 <= window.End {
			want++
		}
	}

	sl, total := s.Sample(window, map[string]bool{"A": true}, 1000)
	if total != want {
		t.Fatalf("Expected %d matching events, got %d", want, total)
	}
	for _, e := range sl.Events {
		if e.T1 < window.Start || e.T0 > window.End {
			t.Errorf("Event line %d [%g, %g] outside window [%g, %g]",
				e.Line, e.T0, e.T1, window.Start, window.End)
		}
	}
	if sl.Size() != want {
		t.Errorf("Expected all %d matches returned, got %d", want, sl.Size())
	}
}

func TestSampleDegenerateQueries(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 6)
	window := model.TimeRange{Start: 20, End: 40}

	cases := []struct {
		name    string
		tr      model.TimeRange
		visible map[string]bool
		max     int
	}{
		{"no visible kinds", window, map[string]bool{}, 100},
		{"inverted range", model.TimeRange{Start: 40, End: 20}, allKinds(), 100},
		{"zero budget", window, allKinds(), 0},
		{"negative budget", window, allKinds(), -5},
	}
	for _, tc := range cases {
		sl, total := s.Sample(tc.tr, tc.visible, tc.max)
		if sl.Size() != 0 || total != 0 {
			t.Errorf("%s: expected empty slice and total 0, got size %d total %d",
				tc.name, sl.Size(), total)
		}
	}
}

func TestSampleBudgetBoundary(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 7)
	window := model.TimeRange{Start: 20, End: 40}

	// budget == total is still the exact branch
	sl, total := s.Sample(window, allKinds(), 30)
	if total != 30 || sl.Size() != 30 {
		t.Errorf("Expected exact result at the boundary, got size %d total %d", sl.Size(), total)
	}

	sl, total = s.Sample(window, allKinds(), 29)
	if total != 30 || sl.Size() != 29 {
		t.Errorf("Expected 29 of 30, got size %d total %d", sl.Size(), total)
	}
}

func TestSampleUniformity(t *testing.T) {
	var events []model.Event
	for i := 0; i < 200; i++ {
		events = append(events, model.Event{Kind: "A", T0: float64(i), T1: float64(i) + 1, Line: int64(i)})
	}
	ix := BuildIndex(events)
	s := seededSampler(ix, 8)
	visible := map[string]bool{"A": true}
	window := model.TimeRange{Start: 0, End: 300}

	const iters = 2000
	const budget = 50
	hits := make(map[int64]int)
	for iter := 0; iter < iters; iter++ {
		sl, total := s.Sample(window, visible, budget)
		if total != 200 || sl.Size() != budget {
			t.Fatalf("Unexpected draw: size %d total %d", sl.Size(), total)
		}
		for _, e := range sl.Events {
			hits[e.Line]++
		}
	}

	want := float64(budget) / 200 // 0.25
	for line := int64(0); line < 200; line++ {
		got := float64(hits[line]) / iters
		if got < want-0.06 || got > want+0.06 {
			t.Errorf("Event %d selected at rate %.3f, expected ~%.2f", line, got, want)
		}
	}
}

func TestSampleDeterministicForFixedDraw(t *testing.T) {
	ix := BuildIndex(wideTrace())
	window := model.TimeRange{Start: 20, End: 40}

	a, _ := seededSampler(ix, 99).Sample(window, allKinds(), 7)
	b, _ := seededSampler(ix, 99).Sample(window, allKinds(), 7)

	if a.Size() != b.Size() {
		t.Fatalf("Sizes differ: %d vs %d", a.Size(), b.Size())
	}
	for i := range a.Events {
		if a.Events[i].Line != b.Events[i].Line {
			t.Errorf("Row %d differs: line %d vs %d", i, a.Events[i].Line, b.Events[i].Line)
		}
	}
}

func TestSubSample(t *testing.T) {
	ix := BuildIndex(wideTrace())
	s := seededSampler(ix, 9)

	sl, _ := s.Sample(model.TimeRange{Start: 0, End: 100}, allKinds(), 1000)

	// Oversized requests saturate, returning the slice unchanged.
	if got := s.SubSample(sl, sl.Size()); got != sl {
		t.Error("n == size should return the slice unchanged")
	}
	if got := s.SubSample(sl, sl.Size()+100); got != sl {
		t.Error("n > size should return the slice unchanged")
	}

	if got := s.SubSample(sl, 0); got.Size() != 0 {
		t.Errorf("n = 0 should return an empty slice, got %d", got.Size())
	}

	sub := s.SubSample(sl, 8)
	if sub.Size() != 8 {
		t.Fatalf("Expected 8 events, got %d", sub.Size())
	}
	// Relative order is preserved: the sub-sample is a subsequence.
	pos := 0
	for _, e := range sub.Events {
		for pos < sl.Size() && sl.Events[pos].Line != e.Line {
			pos++
		}
		if pos == sl.Size() {
			t.Fatal("Sub-sample is not a subsequence of the source slice")
		}
		pos++
	}
}
