package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tracekit/traceline/internal/model"
)

// ReadCSV parses a headerless five-column trace file:
// rank0,t0,rank1,t1,kind. The row number is preserved as the event's Line.
// Typing errors (non-numeric rank or time) are surfaced here with the
// offending line; the engine downstream assumes already-typed rows.
func ReadCSV(path string) ([]model.Event, error) {
	r, closeFn, err := openTrace(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.ReuseRecord = true

	var events []model.Event
	var line int64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ev, err := parseRow(rec, line)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		line++
	}
	return events, nil
}

func parseRow(rec []string, line int64) (model.Event, error) {
	rank0, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return model.Event{}, fmt.Errorf("line %d: rank0: %w", line, err)
	}
	t0, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return model.Event{}, fmt.Errorf("line %d: t0: %w", line, err)
	}
	rank1, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil {
		return model.Event{}, fmt.Errorf("line %d: rank1: %w", line, err)
	}
	t1, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
	if err != nil {
		return model.Event{}, fmt.Errorf("line %d: t1: %w", line, err)
	}

	return model.Event{
		Rank0:    rank0,
		T0:       t0,
		Rank1:    rank1,
		T1:       t1,
		Kind:     strings.TrimSpace(rec[4]),
		Line:     line,
		Duration: t1 - t0,
	}, nil
}
