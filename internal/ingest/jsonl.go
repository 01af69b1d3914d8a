package ingest

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/tracekit/traceline/internal/model"
	"github.com/valyala/fastjson"
)

const maxJSONLine = 16 * 1024 * 1024

// ReadJSONL parses a trace in JSON-lines form: one object per line with
// the same five fields as the CSV format. Blank lines are skipped but
// still count toward Line so row identity matches the source file.
func ReadJSONL(path string) ([]model.Event, error) {
	r, closeFn, err := openTrace(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLine)

	var p fastjson.Parser
	var events []model.Event
	var line int64
	for sc.Scan() {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			line++
			continue
		}

		v, err := p.ParseBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ev := model.Event{
			Rank0: v.GetInt("rank0"),
			T0:    v.GetFloat64("t0"),
			Rank1: v.GetInt("rank1"),
			T1:    v.GetFloat64("t1"),
			Kind:  string(v.GetStringBytes("kind")),
			Line:  line,
		}
		ev.Duration = ev.T1 - ev.T0
		events = append(events, ev)
		line++
	}
	return events, sc.Err()
}
