// Package archive appends purge-evicted samples to a compressed journal
// so long-horizon trends stay inspectable offline. The check never reads
// the journal back; losing it never fails a run.
package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"compress/gzip"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/willibrandon/creep/internal/history"
)

// Writer buffers evicted samples and appends them to the journal as one
// compressed frame per run. Frames concatenate, so every run's flush
// remains independently decodable.
type Writer struct {
	path        string
	compression string
	records     [][]string
}

var _ history.ArchiveSink = (*Writer)(nil)

// NewWriter returns a sink journaling to path with the given compression
// (none, gzip, lz4, or zstd).
func NewWriter(path, compression string) *Writer {
	return &Writer{path: path, compression: compression}
}

// Archive implements history.ArchiveSink. Samples are buffered until
// Flush so the journal gets one frame per run, not one per sample.
func (w *Writer) Archive(key history.Key, ts int64, value float64) {
	kind := ""
	if key.Resource == history.Disk {
		kind = key.Kind.String()
	}
	w.records = append(w.records, []string{
		strconv.FormatInt(ts, 10),
		key.Resource.String(),
		key.Mount,
		kind,
		strconv.FormatFloat(value, 'f', -1, 64),
	})
}

// Pending reports how many samples are buffered for the next Flush.
func (w *Writer) Pending() int {
	return len(w.records)
}

// Flush appends the buffered samples as CSV rows in one compressed frame
// and clears the buffer. Flushing nothing is a no-op.
func (w *Writer) Flush() error {
	if len(w.records) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("archive %s: %w", w.path, err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("archive %s: %w", w.path, err)
	}
	defer file.Close()

	var writer io.Writer = file
	var compressCloser io.Closer
	switch w.compression {
	case "", "none":
	case "gzip":
		gw := gzip.NewWriter(file)
		writer = gw
		compressCloser = gw
	case "lz4":
		lw := lz4.NewWriter(file)
		writer = lw
		compressCloser = lw
	case "zstd":
		zw, err := zstd.NewWriter(file)
		if err != nil {
			return fmt.Errorf("archive %s: create zstd writer: %w", w.path, err)
		}
		writer = zw
		compressCloser = zw
	default:
		return fmt.Errorf("archive %s: unknown compression %q", w.path, w.compression)
	}

	cw := csv.NewWriter(writer)
	if err := cw.WriteAll(w.records); err != nil {
		return fmt.Errorf("archive %s: %w", w.path, err)
	}
	if compressCloser != nil {
		if err := compressCloser.Close(); err != nil {
			return fmt.Errorf("archive %s: %w", w.path, err)
		}
	}

	w.records = nil
	return nil
}
