package history

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/willibrandon/creep/internal/logger"
)

const secondsPerDay = 86400

// Snapshot is the persisted form of a store: plain nested maps decoupled
// from live series state. Backends translate it to and from their codec.
type Snapshot struct {
	Memory map[int64]float64
	Disk   map[string]DiskSnapshot
}

// DiskSnapshot holds the space and inode series of one mountpoint.
type DiskSnapshot struct {
	Space map[int64]float64
	Inode map[int64]float64
}

// Backend persists and restores store snapshots.
type Backend interface {
	// Load returns the persisted snapshot. A nil snapshot with a nil error
	// means there is no usable prior state and the caller starts empty.
	Load() (*Snapshot, error)
	// Save replaces any previously persisted state with snap.
	Save(snap *Snapshot) error
	// Path reports the backing location for logs and error messages.
	Path() string
}

// ArchiveSink receives samples evicted by the retention purge before they
// are discarded.
type ArchiveSink interface {
	Archive(key Key, ts int64, value float64)
}

// Store holds every retained series and enforces the retention window.
// It is built for one synchronous run and does no internal locking.
type Store struct {
	maxWindow int // days, samples older than this are purged
	minWindow int // days, minimum span before a growth rate is trusted

	memory map[int64]float64
	disk   map[string]*diskSeries

	backend Backend
	archive ArchiveSink

	// Test seams.
	now        func() time.Time
	pathExists func(string) bool
}

// diskSeries pairs the two per-mountpoint series. Both maps are allocated
// together so a mountpoint never has one without the other.
type diskSeries struct {
	space map[int64]float64
	inode map[int64]float64
}

func newDiskSeries() *diskSeries {
	return &diskSeries{
		space: make(map[int64]float64),
		inode: make(map[int64]float64),
	}
}

func (d *diskSeries) byKind(kind DiskKind) map[int64]float64 {
	if kind == Inode {
		return d.inode
	}
	return d.space
}

// NewStore returns an empty store over the given backend. Window sanity
// (maxWindow > 0, minWindow < maxWindow) is owned by config validation.
func NewStore(backend Backend, maxWindow, minWindow int) *Store {
	return &Store{
		maxWindow:  maxWindow,
		minWindow:  minWindow,
		memory:     make(map[int64]float64),
		disk:       make(map[string]*diskSeries),
		backend:    backend,
		now:        time.Now,
		pathExists: defaultPathExists,
	}
}

func defaultPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SetArchive routes future purge evictions to sink. A nil sink disables
// archiving.
func (s *Store) SetArchive(sink ArchiveSink) {
	s.archive = sink
}

// MaxWindow reports the retention window in days.
func (s *Store) MaxWindow() int { return s.maxWindow }

// MinWindow reports the minimum averaging window in days.
func (s *Store) MinWindow() int { return s.minWindow }

// Load restores persisted samples and immediately drops any that have
// already aged out of the retention window. Missing or malformed prior
// state leaves the store empty; only genuine I/O failures are returned.
func (s *Store) Load() error {
	snap, err := s.backend.Load()
	if err != nil {
		return err
	}
	if snap == nil {
		logger.Debug("no usable history, starting empty", "path", s.backend.Path())
		return nil
	}
	s.restore(snap)
	s.purge()
	return nil
}

// Add records value for key at the current wall-clock second.
func (s *Store) Add(key Key, value float64) error {
	return s.AddAt(key, value, s.now().Unix())
}

// AddAt records value for key at the given unix timestamp. A colliding
// timestamp overwrites the earlier sample. Adding the first sample for a
// mountpoint allocates its space and inode series together, after the
// mountpoint path has been verified.
func (s *Store) AddAt(key Key, value float64, ts int64) error {
	if err := s.verifyKey(key); err != nil {
		return err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%w: sample value %v for %s", ErrInvalidInput, value, key)
	}
	switch key.Resource {
	case Memory:
		s.memory[ts] = value
	case Disk:
		d := s.disk[key.Mount]
		if d == nil {
			d = newDiskSeries()
			s.disk[key.Mount] = d
		}
		d.byKind(key.Kind)[ts] = value
	}
	return nil
}

// DataSpanDays reports how many days the retained series covers, rounded
// to two decimals. A single sample spans zero days.
func (s *Store) DataSpanDays(key Key) (float64, error) {
	if err := s.verifyKey(key); err != nil {
		return 0, err
	}
	s.purge()
	series := s.series(key)
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: no samples for %s", ErrEmptySeries, key)
	}
	var minTS, maxTS int64
	first := true
	for ts := range series {
		if first {
			minTS, maxTS = ts, ts
			first = false
			continue
		}
		if ts < minTS {
			minTS = ts
		}
		if ts > maxTS {
			maxTS = ts
		}
	}
	return round2(float64(maxTS-minTS) / secondsPerDay), nil
}

// VerifyDataSpan reports how far the retained span exceeds the minimum
// averaging window. A negative result is the number of days of history
// still missing before a growth rate can be trusted.
func (s *Store) VerifyDataSpan(key Key) (float64, error) {
	span, err := s.DataSpanDays(key)
	if err != nil {
		return 0, err
	}
	return round2(span - float64(s.minWindow)), nil
}

// Query returns a copy of the retained samples for key. A valid key whose
// series holds no samples yields an empty map.
func (s *Store) Query(key Key) (map[int64]float64, error) {
	if err := s.verifyKey(key); err != nil {
		return nil, err
	}
	s.purge()
	series := s.series(key)
	out := make(map[int64]float64, len(series))
	for ts, v := range series {
		out[ts] = v
	}
	return out, nil
}

// Mounts returns the mountpoints that currently have disk series
// allocated, in map order.
func (s *Store) Mounts() []string {
	mounts := make([]string, 0, len(s.disk))
	for mount := range s.disk {
		mounts = append(mounts, mount)
	}
	return mounts
}

// Clear drops every retained sample, mountpoint allocations included. The
// window configuration and backend stay as constructed; Clear does not
// persist by itself.
func (s *Store) Clear() {
	s.memory = make(map[int64]float64)
	s.disk = make(map[string]*diskSeries)
}

// Save purges and persists the whole store, replacing previous state.
func (s *Store) Save() error {
	s.purge()
	return s.backend.Save(s.snapshot())
}

// purge drops samples that have aged out of the retention window. The
// cutoff is computed once so every series shares it; a sample exactly at
// the cutoff is dropped. Evicted samples are offered to the archive sink
// before deletion.
func (s *Store) purge() {
	cutoff := s.now().Unix() - int64(s.maxWindow)*secondsPerDay
	s.purgeSeries(MemoryKey(), s.memory, cutoff)
	for mount, d := range s.disk {
		s.purgeSeries(DiskKey(mount, Space), d.space, cutoff)
		s.purgeSeries(DiskKey(mount, Inode), d.inode, cutoff)
	}
}

func (s *Store) purgeSeries(key Key, series map[int64]float64, cutoff int64) {
	for ts, v := range series {
		if ts > cutoff {
			continue
		}
		if s.archive != nil {
			s.archive.Archive(key, ts, v)
		}
		delete(series, ts)
	}
}

func (s *Store) verifyKey(key Key) error {
	switch key.Resource {
	case Memory:
		if key.Mount != "" {
			return fmt.Errorf("%w: memory series takes no mountpoint", ErrInvalidInput)
		}
		return nil
	case Disk:
		if key.Mount == "" {
			return fmt.Errorf("%w: disk series needs a mountpoint", ErrInvalidInput)
		}
		if key.Kind != Space && key.Kind != Inode {
			return fmt.Errorf("%w: unknown disk series kind %d", ErrInvalidInput, int(key.Kind))
		}
		if !s.pathExists(key.Mount) {
			return fmt.Errorf("%w: mountpoint %s does not exist", ErrInvalidInput, key.Mount)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown resource %d", ErrInvalidInput, int(key.Resource))
}

func (s *Store) series(key Key) map[int64]float64 {
	switch key.Resource {
	case Memory:
		return s.memory
	case Disk:
		d := s.disk[key.Mount]
		if d == nil {
			return nil
		}
		return d.byKind(key.Kind)
	}
	return nil
}

func (s *Store) snapshot() *Snapshot {
	snap := &Snapshot{
		Memory: make(map[int64]float64, len(s.memory)),
		Disk:   make(map[string]DiskSnapshot, len(s.disk)),
	}
	for ts, v := range s.memory {
		snap.Memory[ts] = v
	}
	for mount, d := range s.disk {
		ds := DiskSnapshot{
			Space: make(map[int64]float64, len(d.space)),
			Inode: make(map[int64]float64, len(d.inode)),
		}
		for ts, v := range d.space {
			ds.Space[ts] = v
		}
		for ts, v := range d.inode {
			ds.Inode[ts] = v
		}
		snap.Disk[mount] = ds
	}
	return snap
}

func (s *Store) restore(snap *Snapshot) {
	s.memory = make(map[int64]float64, len(snap.Memory))
	for ts, v := range snap.Memory {
		s.memory[ts] = v
	}
	s.disk = make(map[string]*diskSeries, len(snap.Disk))
	for mount, ds := range snap.Disk {
		d := newDiskSeries()
		for ts, v := range ds.Space {
			d.space[ts] = v
		}
		for ts, v := range ds.Inode {
			d.inode[ts] = v
		}
		s.disk[mount] = d
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
