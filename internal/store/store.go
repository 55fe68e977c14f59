// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store exports decoded dataset tables into a SQLite database.
// Each import replaces the samples, papers, and curves tables and appends
// a row to the snapshots history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/starrydata/pkg/table"
	"github.com/pdiddy/starrydata/pkg/types"
)

const defaultDBPath = "starrydata.db"

// Store manages the snapshot database.
type Store struct {
	db   *sql.DB
	path string
}

// Snapshot records where an imported set of tables came from. Source is
// the download URL or local archive path; DBTimestamp is the content of
// db_snapshot.txt; Rows counts imported rows per kind.
type Snapshot struct {
	ArticleID     int64          `json:"article_id" yaml:"article_id"`
	Title         string         `json:"title" yaml:"title"`
	PublishedDate string         `json:"published_date" yaml:"published_date"`
	Source        string         `json:"source" yaml:"source"`
	DBTimestamp   string         `json:"db_timestamp" yaml:"db_timestamp"`
	ImportedAt    time.Time      `json:"imported_at" yaml:"imported_at"`
	Rows          map[string]int `json:"rows" yaml:"rows"`
}

// NewStore opens or creates the database at cfg.DBPath and creates the
// schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER,
		title TEXT,
		published_date TEXT,
		source TEXT,
		db_timestamp TEXT,
		imported_at TEXT NOT NULL,
		row_counts TEXT
	)`)
	return err
}

// Import replaces the table of every kind present in tables and records
// snap, all in one transaction. It returns snap with ImportedAt and Rows set.
func (s *Store) Import(ctx context.Context, snap Snapshot, tables map[types.Kind]*table.Table) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return snap, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	snap.Rows = make(map[string]int, len(tables))
	for _, kind := range types.Kinds {
		t, ok := tables[kind]
		if !ok {
			continue
		}
		if err := replaceTable(ctx, tx, string(kind), t); err != nil {
			return snap, fmt.Errorf("importing %s: %w", kind, err)
		}
		snap.Rows[string(kind)] = t.Len()
	}

	rows, err := json.Marshal(snap.Rows)
	if err != nil {
		return snap, fmt.Errorf("encoding row counts: %w", err)
	}
	snap.ImportedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (article_id, title, published_date, source, db_timestamp, imported_at, row_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ArticleID, snap.Title, snap.PublishedDate, snap.Source, snap.DBTimestamp,
		snap.ImportedAt.Format(time.RFC3339Nano), string(rows),
	); err != nil {
		return snap, fmt.Errorf("recording snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return snap, fmt.Errorf("committing import: %w", err)
	}
	return snap, nil
}

func replaceTable(ctx context.Context, tx *sql.Tx, name string, t *table.Table) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}

	columns := t.Columns()
	if len(columns) == 0 {
		_, err := tx.ExecContext(ctx, "CREATE TABLE "+quoteIdent(name)+" (_empty INTEGER)")
		return err
	}

	idents := sqlIdents(columns)
	defs := make([]string, len(columns))
	for i, c := range columns {
		cells, _ := t.Column(c)
		defs[i] = quoteIdent(idents[i]) + " " + affinity(cells)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+quoteIdent(name)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	quoted := make([]string, len(idents))
	for i, c := range idents {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(name)+
		" ("+strings.Join(quoted, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for r := 0; r < t.Len(); r++ {
		for i, c := range columns {
			args[i] = sqlValue(t.Value(r, c))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", r, err)
		}
	}
	return nil
}

// sqlIdents returns column names that are unique under SQLite's
// case-insensitive identifier matching. Later collisions get a ".N" suffix.
func sqlIdents(columns []string) []string {
	used := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		candidate := c
		for n := 1; used[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s.%d", c, n)
		}
		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

// affinity picks the SQLite column type for a column's cells.
func affinity(cells []any) string {
	kind := ""
	for _, v := range cells {
		var k string
		switch v.(type) {
		case nil:
			continue
		case int64, bool:
			k = "INTEGER"
		case float64:
			k = "REAL"
		default:
			return "TEXT"
		}
		switch {
		case kind == "":
			kind = k
		case kind != k:
			kind = "REAL"
		}
	}
	if kind == "" {
		return "TEXT"
	}
	return kind
}

func sqlValue(v any) any {
	switch v.(type) {
	case nil, int64, float64, bool, string:
		return v
	}
	return table.FormatCell(v)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Snapshots returns the import history, newest first.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT article_id, title, published_date, source, db_timestamp, imported_at, row_counts
		FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap       Snapshot
			importedAt string
			counts     sql.NullString
		)
		if err := rows.Scan(&snap.ArticleID, &snap.Title, &snap.PublishedDate, &snap.Source,
			&snap.DBTimestamp, &importedAt, &counts); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.ImportedAt, _ = time.Parse(time.RFC3339Nano, importedAt)
		if counts.Valid {
			if err := json.Unmarshal([]byte(counts.String), &snap.Rows); err != nil {
				return nil, fmt.Errorf("decoding row counts: %w", err)
			}
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Count returns the number of rows stored for kind.
func (s *Store) Count(ctx context.Context, kind types.Kind) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(string(kind))).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", kind, err)
	}
	return n, nil
}
