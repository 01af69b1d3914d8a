package storage

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/tracekit/traceline/internal/model"
)

// Snapshot file header
var MagicHeader = []byte("TRACEIX1")

// SnapshotWriter serializes an ingested trace to a .tix snapshot file:
// zstd-compressed columns between a magic header and a fixed-size footer.
// Row order is preserved exactly; the index build depends on it.
type SnapshotWriter struct {
	encoder *zstd.Encoder
}

func NewSnapshotWriter() (*SnapshotWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotWriter{encoder: enc}, nil
}

// WriteSnapshot writes events to path. The file is written to a temp name
// and renamed, so a crash never leaves a half-written snapshot behind.
func (sw *SnapshotWriter) WriteSnapshot(path string, events []model.Event) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// 1. Header
	if _, err := f.Write(MagicHeader); err != nil {
		return err
	}

	// 2. Kind dictionary (first-seen order) and per-row kind ids
	kindID := make(map[string]uint16)
	var kinds []string
	ids := make([]uint16, len(events))
	for i, e := range events {
		id, ok := kindID[e.Kind]
		if !ok {
			id = uint16(len(kinds))
			kindID[e.Kind] = id
			kinds = append(kinds, e.Kind)
		}
		ids[i] = id
	}

	rank0 := make([]int64, len(events))
	t0 := make([]float64, len(events))
	rank1 := make([]int64, len(events))
	t1 := make([]float64, len(events))
	lines := make([]int64, len(events))
	for i, e := range events {
		rank0[i] = int64(e.Rank0)
		t0[i] = e.T0
		rank1[i] = int64(e.Rank1)
		t1[i] = e.T1
		lines[i] = e.Line
	}

	// 3. Compress and write columns
	if err := sw.writeStringCol(f, kinds); err != nil {
		return err
	}
	if err := sw.writeUint16Col(f, ids); err != nil {
		return err
	}
	if err := sw.writeInt64Col(f, rank0); err != nil {
		return err
	}
	if err := sw.writeFloat64Col(f, t0); err != nil {
		return err
	}
	if err := sw.writeInt64Col(f, rank1); err != nil {
		return err
	}
	if err := sw.writeFloat64Col(f, t1); err != nil {
		return err
	}
	if err := sw.writeInt64Col(f, lines); err != nil {
		return err
	}

	// 4. Footer: row count + time extent
	var timeMin, timeMax float64
	for i := range events {
		if i == 0 || t0[i] < timeMin {
			timeMin = t0[i]
		}
		if i == 0 || t1[i] > timeMax {
			timeMax = t1[i]
		}
	}
	if err := sw.writeFooter(f, uint32(len(events)), timeMin, timeMax); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (sw *SnapshotWriter) writeInt64Col(f *os.File, data []int64) error {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return sw.compressAndWrite(f, buf)
}

func (sw *SnapshotWriter) writeFloat64Col(f *os.File, data []float64) error {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return sw.compressAndWrite(f, buf)
}

func (sw *SnapshotWriter) writeUint16Col(f *os.File, data []uint16) error {
	buf := make([]byte, 2*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return sw.compressAndWrite(f, buf)
}

func (sw *SnapshotWriter) writeStringCol(f *os.File, data []string) error {
	buf := new(bytes.Buffer)
	// [Len uint32][Bytes]...
	for _, s := range data {
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	return sw.compressAndWrite(f, buf.Bytes())
}

func (sw *SnapshotWriter) compressAndWrite(f *os.File, raw []byte) error {
	compressed := sw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	size := uint32(len(compressed))
	if err := binary.Write(f, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := f.Write(compressed)
	return err
}

func (sw *SnapshotWriter) writeFooter(f *os.File, rowCount uint32, timeMin, timeMax float64) error {
	if err := binary.Write(f, binary.LittleEndian, rowCount); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, timeMin); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, timeMax)
}
