package archive

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/willibrandon/creep/internal/history"
)

func decodeJournal(t *testing.T, path, compression string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer file.Close()

	var reader io.Reader = file
	switch compression {
	case "", "none":
	case "gzip":
		gr, err := gzip.NewReader(file)
		if err != nil {
			t.Fatalf("failed to open gzip reader: %v", err)
		}
		defer gr.Close()
		reader = gr
	case "lz4":
		reader = lz4.NewReader(file)
	case "zstd":
		zr, err := zstd.NewReader(file)
		if err != nil {
			t.Fatalf("failed to open zstd reader: %v", err)
		}
		defer zr.Close()
		reader = zr
	default:
		t.Fatalf("unknown compression %q", compression)
	}

	rows, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		t.Fatalf("failed to read journal rows: %v", err)
	}
	return rows
}

func TestArchiveBuffersUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.csv")
	w := NewWriter(path, "none")

	w.Archive(history.MemoryKey(), 1500000000, 1234.56)
	w.Archive(history.DiskKey("/var", history.Space), 1500000000, 1000.5)

	if got := w.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("journal written before Flush, stat err = %v", err)
	}
}

func TestFlushRoundTrip(t *testing.T) {
	for _, compression := range []string{"none", "gzip", "lz4", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "archive.csv")
			w := NewWriter(path, compression)

			w.Archive(history.MemoryKey(), 1500000000, 1234.56)
			w.Archive(history.DiskKey("/var", history.Inode), 1500086400, 44720)

			if err := w.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			if got := w.Pending(); got != 0 {
				t.Errorf("Pending() after Flush = %d, want 0", got)
			}

			want := [][]string{
				{"1500000000", "memory", "", "", "1234.56"},
				{"1500086400", "disk", "/var", "inode", "44720"},
			}
			if got := decodeJournal(t, path, compression); !reflect.DeepEqual(got, want) {
				t.Errorf("journal rows = %v, want %v", got, want)
			}
		})
	}
}

func TestFlushNothingIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.csv")
	w := NewWriter(path, "zstd")

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("empty Flush created journal, stat err = %v", err)
	}
}

func TestFlushAppendsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.csv.gz")
	w := NewWriter(path, "gzip")

	w.Archive(history.MemoryKey(), 1500000000, 100)
	if err := w.Flush(); err != nil {
		t.Fatalf("first Flush failed: %v", err)
	}
	w.Archive(history.MemoryKey(), 1500086400, 110)
	if err := w.Flush(); err != nil {
		t.Fatalf("second Flush failed: %v", err)
	}

	want := [][]string{
		{"1500000000", "memory", "", "", "100"},
		{"1500086400", "memory", "", "", "110"},
	}
	if got := decodeJournal(t, path, "gzip"); !reflect.DeepEqual(got, want) {
		t.Errorf("journal rows = %v, want %v", got, want)
	}
}

func TestFlushCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "archive.csv")
	w := NewWriter(path, "none")

	w.Archive(history.MemoryKey(), 1500000000, 100)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("journal not created: %v", err)
	}
}

func TestFlushRejectsUnknownCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.csv")
	w := NewWriter(path, "brotli")

	w.Archive(history.MemoryKey(), 1500000000, 100)
	err := w.Flush()
	if err == nil {
		t.Fatal("expected error for unknown compression, got nil")
	}
	if !strings.Contains(err.Error(), "brotli") {
		t.Errorf("error %q does not name the compression", err)
	}
}
