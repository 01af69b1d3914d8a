package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tracekit/traceline/internal/model"
)

// ReadFile loads a trace file, dispatching on extension. A trailing .gz or
// .zst is decompressed transparently; the inner extension picks the format.
// Anything that is not JSON lines is treated as the five-column CSV.
func ReadFile(path string) ([]model.Event, error) {
	switch innerExt(path) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(path)
	default:
		return ReadCSV(path)
	}
}

func innerExt(path string) string {
	base := path
	switch filepath.Ext(base) {
	case ".gz", ".zst":
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Ext(base)
}

// openTrace opens a trace file and wraps it in a decompressor if the
// extension asks for one.
func openTrace(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	switch filepath.Ext(path) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return gz, func() error {
			gz.Close()
			return f.Close()
		}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return zr, func() error {
			zr.Close()
			return f.Close()
		}, nil
	default:
		return f, f.Close, nil
	}
}
