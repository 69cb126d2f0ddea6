package render

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/willibrandon/creep/internal/history"
)

func setupRenderStore(t *testing.T) (*history.Store, string) {
	t.Helper()
	backend := history.NewFileBackend(filepath.Join(t.TempDir(), "history.yaml"))
	store := history.NewStore(backend, 14, 7)
	mount := t.TempDir()
	return store, mount
}

func seedDaily(t *testing.T, store *history.Store, key history.Key, count int, start, perDay float64) {
	t.Helper()
	base := time.Now().Add(-time.Duration(count) * 24 * time.Hour)
	for i := 0; i < count; i++ {
		ts := base.Add(time.Duration(i) * 24 * time.Hour).Unix()
		if err := store.AddAt(key, start+float64(i)*perDay, ts); err != nil {
			t.Fatalf("AddAt failed: %v", err)
		}
	}
}

func TestSparklineAscending(t *testing.T) {
	got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if got != "▁▂▃▄▅▆▇█" {
		t.Errorf("Sparkline = %q, want ▁▂▃▄▅▆▇█", got)
	}
}

func TestSparklineFlat(t *testing.T) {
	got := Sparkline([]float64{5, 5, 5, 5}, 4)
	if got != "▁▁▁▁" {
		t.Errorf("Sparkline = %q, want ▁▁▁▁", got)
	}
}

func TestSparklineEmpty(t *testing.T) {
	got := Sparkline(nil, 4)
	if got != "────" {
		t.Errorf("Sparkline = %q, want ────", got)
	}
}

func TestSparklineResamplesToWidth(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	got := Sparkline(data, 10)
	if n := len([]rune(got)); n != 10 {
		t.Errorf("Sparkline length = %d runes, want 10", n)
	}
}

func TestResampleAverages(t *testing.T) {
	got := resample([]float64{1, 1, 3, 3}, 2)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("resample = %v, want [1 3]", got)
	}
}

func TestHistoryView(t *testing.T) {
	store, mount := setupRenderStore(t)
	seedDaily(t, store, history.MemoryKey(), 8, 100, 10)
	seedDaily(t, store, history.DiskKey(mount, history.Space), 8, 1000, 5)

	out, err := HistoryView(store, 0)
	if err != nil {
		t.Fatalf("HistoryView failed: %v", err)
	}

	for _, want := range []string{
		"memory [8 samples]",
		"space [8 samples]",
		"inode [0 samples]",
		mount,
		"SERIES",
		"10 MB/day",
		"5 MB/day",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HistoryView output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryViewEmptyStore(t *testing.T) {
	store, _ := setupRenderStore(t)

	out, err := HistoryView(store, 0)
	if err != nil {
		t.Fatalf("HistoryView failed: %v", err)
	}
	if !strings.Contains(out, "memory [0 samples]") {
		t.Errorf("HistoryView output missing empty memory series:\n%s", out)
	}
	if !strings.Contains(out, "never") {
		t.Errorf("HistoryView output missing never-sampled marker:\n%s", out)
	}
}

func TestHistoryViewClipsToDays(t *testing.T) {
	store, _ := setupRenderStore(t)
	seedDaily(t, store, history.MemoryKey(), 10, 100, 10)

	out, err := HistoryView(store, 3)
	if err != nil {
		t.Fatalf("HistoryView failed: %v", err)
	}
	// Samples land 10..1 days ago; only the newest two are within 3 days.
	if !strings.Contains(out, "memory [2 samples]") {
		t.Errorf("HistoryView output not clipped to 3 days:\n%s", out)
	}
}

func TestGraphView(t *testing.T) {
	store, _ := setupRenderStore(t)
	seedDaily(t, store, history.MemoryKey(), 8, 100, 10)

	out, err := GraphView(store, history.MemoryKey(), 0, 80)
	if err != nil {
		t.Fatalf("GraphView failed: %v", err)
	}
	if !strings.Contains(out, "memory usage, MB (8 samples)") {
		t.Errorf("GraphView output missing caption:\n%s", out)
	}
}

func TestGraphViewDiskCaption(t *testing.T) {
	store, mount := setupRenderStore(t)
	seedDaily(t, store, history.DiskKey(mount, history.Inode), 8, 40000, 100)

	out, err := GraphView(store, history.DiskKey(mount, history.Inode), 0, 80)
	if err != nil {
		t.Fatalf("GraphView failed: %v", err)
	}
	want := "disk inode usage for " + mount + ", inodes (8 samples)"
	if !strings.Contains(out, want) {
		t.Errorf("GraphView output missing %q:\n%s", want, out)
	}
}

func TestGraphViewEmptySeries(t *testing.T) {
	store, _ := setupRenderStore(t)

	_, err := GraphView(store, history.MemoryKey(), 0, 80)
	if err == nil {
		t.Fatal("expected error for empty series, got nil")
	}
	if !strings.Contains(err.Error(), "no samples") {
		t.Errorf("error = %q, want no-samples", err)
	}
}

func TestClipToDays(t *testing.T) {
	now := time.Now().Unix()
	samples := map[int64]float64{
		now - 10*86400: 1,
		now - 86400:    2,
	}
	got := clipToDays(samples, 5)
	if len(got) != 1 {
		t.Fatalf("clipToDays kept %d samples, want 1", len(got))
	}
	if _, ok := got[now-86400]; !ok {
		t.Error("clipToDays dropped the recent sample")
	}
}
