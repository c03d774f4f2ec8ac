// Package store persists research progress per save profile in SQLite.
// Only the researched set, grants, the research in flight and the colony
// stock are stored; availability and effect state are re-derived on load.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/research"
)

// ErrNotFound is returned when a profile has never been saved
var ErrNotFound = errors.New("profile not found")

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS profiles (
	name       TEXT PRIMARY KEY,
	current    TEXT,
	elapsed    REAL NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS researched (
	profile TEXT NOT NULL REFERENCES profiles(name) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	tech_id TEXT NOT NULL,
	PRIMARY KEY (profile, seq)
);
CREATE TABLE IF NOT EXISTS granted (
	profile TEXT NOT NULL REFERENCES profiles(name) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	tech_id TEXT NOT NULL,
	PRIMARY KEY (profile, seq)
);
CREATE TABLE IF NOT EXISTS stock (
	profile  TEXT NOT NULL REFERENCES profiles(name) ON DELETE CASCADE,
	resource TEXT NOT NULL,
	amount   REAL NOT NULL,
	PRIMARY KEY (profile, resource)
);
`

// Record is one saved profile
type Record struct {
	Snapshot  research.Snapshot
	Stock     map[models.ResourceType]float64
	UpdatedAt time.Time
}

// Store is a SQLite-backed profile store
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored profile with rec in one transaction
func (s *Store) Save(ctx context.Context, profile string, rec Record) error {
	if profile == "" {
		return errors.New("save: empty profile name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := rec.Snapshot
	var current sql.NullString
	if snap.Current != "" {
		current = sql.NullString{String: string(snap.Current), Valid: true}
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles(name, current, elapsed, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET current = excluded.current,
			elapsed = excluded.elapsed, updated_at = excluded.updated_at`,
		profile, current, snap.Elapsed, updated.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save profile %s: %w", profile, err)
	}
	for _, table := range []string{"researched", "granted", "stock"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile = ?", profile); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, profile, err)
		}
	}
	if err := insertIDs(ctx, tx, "researched", profile, snap.Researched); err != nil {
		return err
	}
	if err := insertIDs(ctx, tx, "granted", profile, snap.Granted); err != nil {
		return err
	}
	for rt, amount := range rec.Stock {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO stock(profile, resource, amount) VALUES(?, ?, ?)",
			profile, string(rt), amount); err != nil {
			return fmt.Errorf("save stock %s: %w", rt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func insertIDs(ctx context.Context, tx *sql.Tx, table, profile string, ids []models.TechID) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+"(profile, seq, tech_id) VALUES(?, ?, ?)",
			profile, i, string(id)); err != nil {
			return fmt.Errorf("save %s %s: %w", table, id, err)
		}
	}
	return nil
}

// Load reads a profile. It returns ErrNotFound for unknown profiles.
func (s *Store) Load(ctx context.Context, profile string) (Record, error) {
	var (
		rec     Record
		current sql.NullString
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT current, elapsed, updated_at FROM profiles WHERE name = ?", profile,
	).Scan(&current, &rec.Snapshot.Elapsed, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("load %s: %w", profile, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", profile, err)
	}
	if current.Valid {
		rec.Snapshot.Current = models.TechID(current.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = t
	}

	if rec.Snapshot.Researched, err = s.loadIDs(ctx, "researched", profile); err != nil {
		return Record{}, err
	}
	if rec.Snapshot.Researched == nil {
		rec.Snapshot.Researched = []models.TechID{}
	}
	if rec.Snapshot.Granted, err = s.loadIDs(ctx, "granted", profile); err != nil {
		return Record{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT resource, amount FROM stock WHERE profile = ?", profile)
	if err != nil {
		return Record{}, fmt.Errorf("load stock for %s: %w", profile, err)
	}
	defer rows.Close()
	rec.Stock = make(map[models.ResourceType]float64)
	for rows.Next() {
		var (
			res    string
			amount float64
		)
		if err := rows.Scan(&res, &amount); err != nil {
			return Record{}, fmt.Errorf("scan stock: %w", err)
		}
		rec.Stock[models.ResourceType(res)] = amount
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("load stock for %s: %w", profile, err)
	}
	return rec, nil
}

func (s *Store) loadIDs(ctx context.Context, table, profile string) ([]models.TechID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tech_id FROM "+table+" WHERE profile = ? ORDER BY seq", profile)
	if err != nil {
		return nil, fmt.Errorf("load %s for %s: %w", table, profile, err)
	}
	defer rows.Close()
	var ids []models.TechID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		ids = append(ids, models.TechID(id))
	}
	return ids, rows.Err()
}

// Delete removes a profile. Deleting an unknown profile returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, profile string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"researched", "granted", "stock"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile = ?", profile); err != nil {
			return fmt.Errorf("delete %s for %s: %w", table, profile, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", profile)
	if err != nil {
		return fmt.Errorf("delete %s: %w", profile, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s: %w", profile, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// Profiles lists saved profile names alphabetically
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM profiles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
