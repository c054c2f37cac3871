// Package watchlist persists the ordered list of symbols the board shows.
package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrEmpty      = errors.New("symbol is empty")
	ErrDuplicate  = errors.New("symbol already in watch list")
	ErrNotFound   = errors.New("symbol not in watch list")
	ErrOutOfRange = errors.New("position out of range")
)

// Store is a SQLite-backed watch list. Position 0 is the top of the board.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the watch-list database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_watchlist_position ON watchlist(position);
	`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// List returns the symbols in board order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return list(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func list(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY position, added_at`)
	if err != nil {
		return nil, fmt.Errorf("query watch list: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan watch list: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// Add trims and uppercases raw and puts it at the top of the list. It returns
// the stored symbol.
func (s *Store) Add(ctx context.Context, raw string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	if sym == "" {
		return "", ErrEmpty
	}
	err := s.edit(ctx, func(syms []string) ([]string, error) {
		for _, existing := range syms {
			if existing == sym {
				return nil, fmt.Errorf("%s: %w", sym, ErrDuplicate)
			}
		}
		return append([]string{sym}, syms...), nil
	})
	if err != nil {
		return "", err
	}
	return sym, nil
}

// Remove deletes sym (matched after trimming and uppercasing).
func (s *Store) Remove(ctx context.Context, raw string) error {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	return s.edit(ctx, func(syms []string) ([]string, error) {
		for i, existing := range syms {
			if existing == sym {
				return append(syms[:i:i], syms[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%s: %w", sym, ErrNotFound)
	})
}

// Move takes the entry at from out of the list and reinserts it at to.
func (s *Store) Move(ctx context.Context, from, to int) error {
	return s.edit(ctx, func(syms []string) ([]string, error) {
		if from < 0 || from >= len(syms) || to < 0 || to >= len(syms) {
			return nil, fmt.Errorf("move %d -> %d in list of %d: %w", from, to, len(syms), ErrOutOfRange)
		}
		if from == to {
			return syms, nil
		}
		moved := syms[from]
		rest := append(syms[:from:from], syms[from+1:]...)
		out := make([]string, 0, len(syms))
		out = append(out, rest[:to]...)
		out = append(out, moved)
		return append(out, rest[to:]...), nil
	})
}

// edit applies fn to the current list and rewrites positions in one
// transaction.
func (s *Store) edit(ctx context.Context, fn func([]string) ([]string, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	syms, err := list(ctx, tx)
	if err != nil {
		return err
	}
	next, err := fn(syms)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(next))
	for _, sym := range next {
		keep[sym] = true
	}
	for _, sym := range syms {
		if keep[sym] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, sym); err != nil {
			return fmt.Errorf("delete %s: %w", sym, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO watchlist (symbol, position) VALUES (?, ?)
	ON CONFLICT(symbol) DO UPDATE SET position = excluded.position`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for i, sym := range next {
		if _, err := stmt.ExecContext(ctx, sym, i); err != nil {
			return fmt.Errorf("store %s: %w", sym, err)
		}
	}
	return tx.Commit()
}
