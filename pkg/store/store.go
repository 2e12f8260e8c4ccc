// Package store persists kits in a SQLite database. Types and designs are
// stored as YAML documents, one row each, so that a kit can be listed
// without decoding it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/kit"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// KitInfo summarizes a stored kit.
type KitInfo struct {
	Name        string
	Version     string
	Description string
	Types       int
	Designs     int
	UpdatedAt   time.Time
}

// Store is a kit database.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes them anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("store opened", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kits (
			name        TEXT NOT NULL,
			version     TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (name, version)
		);

		CREATE TABLE IF NOT EXISTS types (
			kit_name    TEXT    NOT NULL,
			kit_version TEXT    NOT NULL,
			ord         INTEGER NOT NULL,
			name        TEXT    NOT NULL,
			variant     TEXT    NOT NULL DEFAULT '',
			body        TEXT    NOT NULL,
			PRIMARY KEY (kit_name, kit_version, name, variant),
			FOREIGN KEY (kit_name, kit_version) REFERENCES kits(name, version) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS designs (
			kit_name    TEXT    NOT NULL,
			kit_version TEXT    NOT NULL,
			ord         INTEGER NOT NULL,
			name        TEXT    NOT NULL,
			variant     TEXT    NOT NULL DEFAULT '',
			view        TEXT    NOT NULL DEFAULT '',
			body        TEXT    NOT NULL,
			PRIMARY KEY (kit_name, kit_version, name, variant, view),
			FOREIGN KEY (kit_name, kit_version) REFERENCES kits(name, version) ON DELETE CASCADE
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveKit stores k, replacing a kit with the same name and version.
func (s *Store) SaveKit(ctx context.Context, k *catalog.Kit) (err error) {
	if k.Name == "" {
		return fmt.Errorf("store: kit has no name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM kits WHERE name = ? AND version = ?`, k.Name, k.Version); err != nil {
		return fmt.Errorf("store: replace kit %s: %w", k.Name, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO kits (name, version, description, updated_at) VALUES (?, ?, ?, ?)`,
		k.Name, k.Version, k.Description, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: insert kit %s: %w", k.Name, err)
	}

	for i := range k.Types {
		t := &k.Types[i]
		body, err := yaml.Marshal(t)
		if err != nil {
			return fmt.Errorf("store: encode type %s: %w", t.ID(), err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO types (kit_name, kit_version, ord, name, variant, body) VALUES (?, ?, ?, ?, ?, ?)`,
			k.Name, k.Version, i, t.Name, t.Variant, string(body))
		if err != nil {
			return fmt.Errorf("store: insert type %s: %w", t.ID(), err)
		}
	}
	for i := range k.Designs {
		d := &k.Designs[i]
		body, err := yaml.Marshal(d)
		if err != nil {
			return fmt.Errorf("store: encode design %s: %w", d.ID(), err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO designs (kit_name, kit_version, ord, name, variant, view, body) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			k.Name, k.Version, i, d.Name, d.Variant, d.View, string(body))
		if err != nil {
			return fmt.Errorf("store: insert design %s: %w", d.ID(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.log.Info("kit saved",
		zap.String("kit", k.Name),
		zap.String("version", k.Version),
		zap.Int("types", len(k.Types)),
		zap.Int("designs", len(k.Designs)))
	return nil
}

// LoadKit returns the kit with the given name and version. A missing kit
// is a design.ErrNotFound.
func (s *Store) LoadKit(ctx context.Context, name, version string) (*catalog.Kit, error) {
	k := &catalog.Kit{Name: name, Version: version}
	err := s.db.QueryRowContext(ctx,
		`SELECT description FROM kits WHERE name = ? AND version = ?`, name, version).Scan(&k.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, design.Errorf(design.KindNotFound, "", "kit %s %s", name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load kit %s: %w", name, err)
	}

	err = s.eachBody(ctx, `SELECT body FROM types WHERE kit_name = ? AND kit_version = ? ORDER BY ord`, name, version,
		func(body []byte) error {
			var t kit.Type
			if err := yaml.Unmarshal(body, &t); err != nil {
				return err
			}
			k.Types = append(k.Types, t)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("store: load types of %s: %w", name, err)
	}

	err = s.eachBody(ctx, `SELECT body FROM designs WHERE kit_name = ? AND kit_version = ? ORDER BY ord`, name, version,
		func(body []byte) error {
			var d design.Design
			if err := yaml.Unmarshal(body, &d); err != nil {
				return err
			}
			k.Designs = append(k.Designs, d)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("store: load designs of %s: %w", name, err)
	}
	return k, nil
}

func (s *Store) eachBody(ctx context.Context, query, name, version string, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, query, name, version)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return err
		}
		if err := fn([]byte(body)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListKits returns every stored kit ordered by name and version.
func (s *Store) ListKits(ctx context.Context) ([]KitInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT k.name, k.version, k.description, k.updated_at,
			(SELECT COUNT(*) FROM types t WHERE t.kit_name = k.name AND t.kit_version = k.version),
			(SELECT COUNT(*) FROM designs d WHERE d.kit_name = k.name AND d.kit_version = k.version)
		FROM kits k
		ORDER BY k.name, k.version`)
	if err != nil {
		return nil, fmt.Errorf("store: list kits: %w", err)
	}
	defer rows.Close()

	var out []KitInfo
	for rows.Next() {
		var info KitInfo
		var updated string
		if err := rows.Scan(&info.Name, &info.Version, &info.Description, &updated, &info.Types, &info.Designs); err != nil {
			return nil, fmt.Errorf("store: list kits: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("store: list kits: kit %s %s: updated_at: %w", info.Name, info.Version, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteKit removes a kit with its types and designs.
func (s *Store) DeleteKit(ctx context.Context, name, version string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kits WHERE name = ? AND version = ?`, name, version)
	if err != nil {
		return fmt.Errorf("store: delete kit %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete kit %s: %w", name, err)
	}
	if n == 0 {
		return design.Errorf(design.KindNotFound, "", "kit %s %s", name, version)
	}
	s.log.Info("kit deleted", zap.String("kit", name), zap.String("version", version))
	return nil
}
