package sqlite

import (
	"github.com/willibrandon/creep/internal/history"
	"github.com/willibrandon/creep/internal/logger"
)

// HistoryStore persists history snapshots in SQLite. It implements
// history.Backend with the same replace-all save semantics as the YAML
// file backend.
type HistoryStore struct {
	db *DB
}

var _ history.Backend = (*HistoryStore)(nil)

// NewHistoryStore creates a history backend over an open database.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Path reports the database file path.
func (s *HistoryStore) Path() string {
	return s.db.Path()
}

// Load reads every retained sample. A database that cannot be queried is
// treated like a malformed history file: log and start empty. Opening
// the database at all is the caller's concern, so permission and
// corruption failures have already surfaced there.
func (s *HistoryStore) Load() (*history.Snapshot, error) {
	snap := &history.Snapshot{
		Memory: make(map[int64]float64),
		Disk:   make(map[string]history.DiskSnapshot),
	}

	if err := s.loadMounts(snap); err != nil {
		logger.Warn("history db unreadable, starting empty", "path", s.db.Path(), "error", err)
		return nil, nil
	}
	if err := s.loadSamples(snap); err != nil {
		logger.Warn("history db unreadable, starting empty", "path", s.db.Path(), "error", err)
		return nil, nil
	}

	if len(snap.Memory) == 0 && len(snap.Disk) == 0 {
		return nil, nil
	}
	return snap, nil
}

func (s *HistoryStore) loadMounts(snap *history.Snapshot) error {
	rows, err := s.db.conn.Query(`SELECT mount FROM mounts`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var mount string
		if err := rows.Scan(&mount); err != nil {
			return err
		}
		snap.Disk[mount] = history.DiskSnapshot{
			Space: make(map[int64]float64),
			Inode: make(map[int64]float64),
		}
	}
	return rows.Err()
}

func (s *HistoryStore) loadSamples(snap *history.Snapshot) error {
	rows, err := s.db.conn.Query(`SELECT resource, mount, kind, ts, value FROM samples`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var resource, mount, kind string
		var ts int64
		var value float64
		if err := rows.Scan(&resource, &mount, &kind, &ts, &value); err != nil {
			return err
		}
		switch resource {
		case "memory":
			snap.Memory[ts] = value
		case "disk":
			ds, ok := snap.Disk[mount]
			if !ok {
				ds = history.DiskSnapshot{
					Space: make(map[int64]float64),
					Inode: make(map[int64]float64),
				}
				snap.Disk[mount] = ds
			}
			switch kind {
			case "space":
				ds.Space[ts] = value
			case "inode":
				ds.Inode[ts] = value
			default:
				logger.Warn("skipping sample with unknown kind", "kind", kind, "mount", mount)
			}
		default:
			logger.Warn("skipping sample with unknown resource", "resource", resource)
		}
	}
	return rows.Err()
}

// Save replaces all persisted state with snap in one transaction.
func (s *HistoryStore) Save(snap *history.Snapshot) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM samples`); err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}
	if _, err := tx.Exec(`DELETE FROM mounts`); err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}

	sampleStmt, err := tx.Prepare(`INSERT INTO samples (resource, mount, kind, ts, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}
	defer sampleStmt.Close()

	for ts, v := range snap.Memory {
		if _, err := sampleStmt.Exec("memory", "", "", ts, v); err != nil {
			return &history.SaveError{Path: s.db.Path(), Err: err}
		}
	}

	mountStmt, err := tx.Prepare(`INSERT INTO mounts (mount) VALUES (?)`)
	if err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}
	defer mountStmt.Close()

	for mount, ds := range snap.Disk {
		if _, err := mountStmt.Exec(mount); err != nil {
			return &history.SaveError{Path: s.db.Path(), Err: err}
		}
		for ts, v := range ds.Space {
			if _, err := sampleStmt.Exec("disk", mount, "space", ts, v); err != nil {
				return &history.SaveError{Path: s.db.Path(), Err: err}
			}
		}
		for ts, v := range ds.Inode {
			if _, err := sampleStmt.Exec("disk", mount, "inode", ts, v); err != nil {
				return &history.SaveError{Path: s.db.Path(), Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &history.SaveError{Path: s.db.Path(), Err: err}
	}
	return nil
}
