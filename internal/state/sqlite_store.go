package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
)

const configHashKey = "config_hash"

// SQLiteStore keeps the build state in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS build_files (
		path TEXT PRIMARY KEY,
		mtime REAL NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		hierarchy TEXT NOT NULL,
		output_filepath TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Load(ctx context.Context) (*BuildState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := New()
	err := s.db.QueryRowContext(ctx, "SELECT value FROM build_meta WHERE key = ?", configHashKey).Scan(&st.ConfigHash)
	if err != nil && err != sql.ErrNoRows {
		return nil, s.loadError(err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, mtime, digest, hierarchy, output_filepath FROM build_files")
	if err != nil {
		return nil, s.loadError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			path, digest, hierarchyJSON string
			mtime                       float64
			output                      sql.NullString
		)
		if err := rows.Scan(&path, &mtime, &digest, &hierarchyJSON, &output); err != nil {
			return nil, s.loadError(err)
		}
		var fp hierarchy.Fingerprint
		if err := json.Unmarshal([]byte(hierarchyJSON), &fp); err != nil {
			return nil, fmt.Errorf("%w: hierarchy of %s: %w", ErrCorrupt, path, err)
		}
		st.Files[path] = &Entry{ModTime: mtime, Digest: digest, Hierarchy: fp, OutputPath: output.String}
	}
	if err := rows.Err(); err != nil {
		return nil, s.loadError(err)
	}
	return st, nil
}

// Save replaces the stored state inside a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *BuildState) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.saveError(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO build_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		configHashKey, st.ConfigHash,
	); err != nil {
		return s.saveError(err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM build_files"); err != nil {
		return s.saveError(err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO build_files (path, mtime, digest, hierarchy, output_filepath) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return s.saveError(err)
	}
	defer func() { _ = stmt.Close() }()

	for _, path := range st.Paths() {
		e := st.Files[path]
		fp := e.Hierarchy
		if fp == nil {
			fp = hierarchy.Fingerprint{}
		}
		hierarchyJSON, mErr := json.Marshal(fp)
		if mErr != nil {
			err = mErr
			return ferrors.InternalError("failed to marshal hierarchy fingerprint").WithCause(err).Build()
		}
		output := sql.NullString{String: e.OutputPath, Valid: e.OutputPath != ""}
		if _, err = stmt.ExecContext(ctx, path, e.ModTime, e.Digest, string(hierarchyJSON), output); err != nil {
			return s.saveError(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return s.saveError(err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadError(err error) error {
	return ferrors.StateError("failed to load build state").WithCause(err).
		WithContext("path", s.path).Build()
}

func (s *SQLiteStore) saveError(err error) error {
	return ferrors.StateError("failed to save build state").WithCause(err).
		WithContext("path", s.path).Build()
}
