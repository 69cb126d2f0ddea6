package history

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/willibrandon/creep/internal/logger"
)

// historyDoc is the on-disk YAML layout:
//
//	datapoints:
//	  memory:
//	    <unix ts>: <value>
//	  disk:
//	    <mountpoint>:
//	      space:
//	        <unix ts>: <value>
//	      inode:
//	        <unix ts>: <value>
type historyDoc struct {
	Datapoints *datapointsDoc `yaml:"datapoints"`
}

type datapointsDoc struct {
	Memory map[int64]float64  `yaml:"memory"`
	Disk   map[string]diskDoc `yaml:"disk"`
}

type diskDoc struct {
	Space map[int64]float64 `yaml:"space"`
	Inode map[int64]float64 `yaml:"inode"`
}

// FileBackend persists snapshots as a single human-readable YAML file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the history file. A missing file, unparseable content, or a
// document without the expected datapoints section all count as "no prior
// state" and return a nil snapshot; only genuine I/O failures error.
func (b *FileBackend) Load() (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Path: b.path, Err: err}
	}

	var doc historyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		logger.Warn("history file unreadable, starting empty", "path", b.path, "error", err)
		return nil, nil
	}
	if doc.Datapoints == nil {
		logger.Warn("history file has no datapoints section, starting empty", "path", b.path)
		return nil, nil
	}

	snap := &Snapshot{
		Memory: doc.Datapoints.Memory,
		Disk:   make(map[string]DiskSnapshot, len(doc.Datapoints.Disk)),
	}
	if snap.Memory == nil {
		snap.Memory = make(map[int64]float64)
	}
	for mount, d := range doc.Datapoints.Disk {
		snap.Disk[mount] = DiskSnapshot{Space: d.Space, Inode: d.Inode}
	}
	return snap, nil
}

// Save writes the snapshot to a temp file in the target directory and
// renames it over the previous history, so a killed run leaves the old
// file intact.
func (b *FileBackend) Save(snap *Snapshot) error {
	doc := historyDoc{
		Datapoints: &datapointsDoc{
			Memory: snap.Memory,
			Disk:   make(map[string]diskDoc, len(snap.Disk)),
		},
	}
	for mount, ds := range snap.Disk {
		doc.Datapoints.Disk[mount] = diskDoc{Space: ds.Space, Inode: ds.Inode}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return &SaveError{Path: b.path, Err: err}
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &SaveError{Path: b.path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".history-*.yaml")
	if err != nil {
		return &SaveError{Path: b.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &SaveError{Path: b.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &SaveError{Path: b.path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return &SaveError{Path: b.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return &SaveError{Path: b.path, Err: err}
	}
	return nil
}
