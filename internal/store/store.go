// Package store persists published snapshots to SQLite so speed history
// survives restarts and can be inspected after the fact.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	_ "modernc.org/sqlite"

	"github.com/saveenergy/netglance/internal/logging"
	"github.com/saveenergy/netglance/pkg/errors"
	"github.com/saveenergy/netglance/pkg/types"
)

const retentionDays = 7

// Record is one persisted snapshot row.
type Record struct {
	ID            int64     `json:"id"`
	UploadBps     float64   `json:"upload_bps"`
	DownloadBps   float64   `json:"download_bps"`
	PingMillis    *float64  `json:"ping_ms,omitempty"`
	InterfaceName string    `json:"interface_name"`
	InterfaceKind string    `json:"interface_kind"`
	PublicAddress string    `json:"public_address"`
	TakenAt       time.Time `json:"taken_at"`
}

type Store struct {
	db           *sql.DB
	maxSnapshots int
	scheduler    *cron.Cron
	logger       *logging.Logger
	closeOnce    sync.Once
}

// New opens (or creates) the database at dbPath and schedules retention
// cleanup on the given cron expression.
func New(dbPath string, maxSnapshots int, cleanupSchedule string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.ErrStoreFailed("open database", err)
	}

	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.ErrStoreFailed("ping database", err)
	}

	// modernc.org/sqlite requires explicit PRAGMAs (not query-string params)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.ErrStoreFailed("set WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, errors.ErrStoreFailed("set busy_timeout", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.ErrStoreFailed("migrate", err)
	}

	s := &Store{
		db:           db,
		maxSnapshots: maxSnapshots,
		logger:       logging.NewLogger("store"),
	}

	s.cleanup()

	if cleanupSchedule != "" {
		s.scheduler = cron.New()
		if err := s.scheduler.AddFunc(cleanupSchedule, s.cleanup); err != nil {
			db.Close()
			return nil, errors.ErrInvalidConfig(
				fmt.Sprintf("bad cleanup schedule %q", cleanupSchedule), err)
		}
		s.scheduler.Start()
	}

	return s, nil
}

func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close failed", logging.Field{Key: "error", Value: err})
		}
	})
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		upload_bps REAL NOT NULL,
		download_bps REAL NOT NULL,
		ping_ms REAL,
		interface_name TEXT NOT NULL DEFAULT '',
		interface_kind TEXT NOT NULL DEFAULT '',
		public_address TEXT NOT NULL DEFAULT '',
		taken_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at)`)
	return err
}

// Save persists one published snapshot.
func (s *Store) Save(snap types.NetworkSnapshot) error {
	var ping sql.NullFloat64
	if snap.PingMillis != nil {
		ping = sql.NullFloat64{Float64: *snap.PingMillis, Valid: true}
	}
	name, kind := "", ""
	if snap.Interface != nil {
		name = snap.Interface.Name
		kind = string(snap.Interface.Kind)
	}

	_, err := s.db.Exec(
		`INSERT INTO snapshots (upload_bps, download_bps, ping_ms,
			interface_name, interface_kind, public_address, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Speed.UploadBps, snap.Speed.DownloadBps, ping,
		name, kind, snap.PublicAddress, snap.TakenAt.UTC(),
	)
	if err != nil {
		return errors.ErrStoreFailed("insert snapshot", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, upload_bps, download_bps, ping_ms,
			interface_name, interface_kind, public_address, taken_at
		FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.ErrStoreFailed("query snapshots", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ping sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.UploadBps, &r.DownloadBps, &ping,
			&r.InterfaceName, &r.InterfaceKind, &r.PublicAddress, &r.TakenAt); err != nil {
			return nil, errors.ErrStoreFailed("scan snapshot", err)
		}
		if ping.Valid {
			v := ping.Float64
			r.PingMillis = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrStoreFailed("iterate snapshots", err)
	}
	return out, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, errors.ErrStoreFailed("count snapshots", err)
	}
	return n, nil
}

// cleanup drops rows past the retention age, then trims to the configured
// maximum, keeping the newest.
func (s *Store) cleanup() {
	cutoff := time.Now().UTC().Add(-retentionDays * 24 * time.Hour)
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, cutoff)
	if err != nil {
		s.logger.Warn("cleanup (age) failed", logging.Field{Key: "error", Value: err})
	} else if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("cleanup: removed expired", logging.Field{Key: "count", Value: n})
	}

	if s.maxSnapshots > 0 {
		res, err = s.db.Exec(
			`DELETE FROM snapshots WHERE id NOT IN (
				SELECT id FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?
			)`, s.maxSnapshots)
		if err != nil {
			s.logger.Warn("cleanup (count) failed", logging.Field{Key: "error", Value: err})
		} else if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Info("cleanup: trimmed to max",
				logging.Field{Key: "removed", Value: n},
				logging.Field{Key: "max", Value: s.maxSnapshots})
		}
	}
}
