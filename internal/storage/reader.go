package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/tracekit/traceline/internal/model"
)

var (
	ErrInvalidHeader = errors.New("invalid .tix snapshot header")
	ErrCorrupt       = errors.New("corrupt .tix snapshot")
)

// SnapshotReader loads a .tix snapshot back into the ingested row form,
// in the exact order it was written.
type SnapshotReader struct {
	decoder *zstd.Decoder
}

func NewSnapshotReader() (*SnapshotReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotReader{decoder: dec}, nil
}

// ReadSnapshot reads a snapshot file and returns the trace rows.
func (sr *SnapshotReader) ReadSnapshot(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// 1. Validate header
	header := make([]byte, len(MagicHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, err
	}
	if !bytes.Equal(header, MagicHeader) {
		return nil, ErrInvalidHeader
	}

	// 2. Footer: RowCount(4) + TimeMin(8) + TimeMax(8) = 20 bytes
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < int64(len(MagicHeader))+20 {
		return nil, ErrCorrupt
	}
	footer := make([]byte, 20)
	if _, err := f.ReadAt(footer, info.Size()-20); err != nil {
		return nil, err
	}
	rowCount := int(binary.LittleEndian.Uint32(footer[0:4]))

	// 3. Columns, in write order
	kinds, err := sr.readStringCol(f)
	if err != nil {
		return nil, err
	}
	ids, err := sr.readUint16Col(f)
	if err != nil {
		return nil, err
	}
	rank0, err := sr.readInt64Col(f)
	if err != nil {
		return nil, err
	}
	t0, err := sr.readFloat64Col(f)
	if err != nil {
		return nil, err
	}
	rank1, err := sr.readInt64Col(f)
	if err != nil {
		return nil, err
	}
	t1, err := sr.readFloat64Col(f)
	if err != nil {
		return nil, err
	}
	lines, err := sr.readInt64Col(f)
	if err != nil {
		return nil, err
	}

	if rowCount != len(ids) || rowCount != len(rank0) || rowCount != len(t0) ||
		rowCount != len(rank1) || rowCount != len(t1) || rowCount != len(lines) {
		return nil, ErrCorrupt
	}

	events := make([]model.Event, rowCount)
	for i := 0; i < rowCount; i++ {
		if int(ids[i]) >= len(kinds) {
			return nil, ErrCorrupt
		}
		events[i] = model.Event{
			Rank0:    int(rank0[i]),
			T0:       t0[i],
			Rank1:    int(rank1[i]),
			T1:       t1[i],
			Kind:     kinds[ids[i]],
			Line:     lines[i],
			Duration: t1[i] - t0[i],
		}
	}
	return events, nil
}

func (sr *SnapshotReader) readInt64Col(r io.Reader) ([]int64, error) {
	data, err := sr.readAndDecompress(r)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

func (sr *SnapshotReader) readFloat64Col(r io.Reader) ([]float64, error) {
	data, err := sr.readAndDecompress(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

func (sr *SnapshotReader) readUint16Col(r io.Reader) ([]uint16, error) {
	data, err := sr.readAndDecompress(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return out, nil
}

func (sr *SnapshotReader) readStringCol(r io.Reader) ([]string, error) {
	data, err := sr.readAndDecompress(r)
	if err != nil {
		return nil, err
	}

	var out []string
	buf := bytes.NewReader(data)
	for buf.Len() > 0 {
		var length uint32
		if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
			return nil, ErrCorrupt
		}
		strBytes := make([]byte, length)
		if _, err := io.ReadFull(buf, strBytes); err != nil {
			return nil, ErrCorrupt
		}
		out = append(out, string(strBytes))
	}
	return out, nil
}

// readAndDecompress reads one compressed block (size + data).
func (sr *SnapshotReader) readAndDecompress(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	return sr.decoder.DecodeAll(compressed, nil)
}
