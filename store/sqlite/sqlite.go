/*
Package sqlite backs the engine's ledger and log contracts with SQLite.

PURPOSE:
  Local deployments keep the master credit table and the payment log in a
  single SQLite file instead of a hosted spreadsheet. Both tables keep the
  sheet's row discipline: 1-based positions, fixed column tuples, row 1
  reserved for the header.

CONDITIONAL WRITES:
  The payment log's WriteRow relies on the position being the primary key:
  an INSERT that hits an existing position changes no rows, which surfaces
  as engine.ErrRowOccupied. That gives the appender the same conditional
  semantics the engine assumes against any sheet-like medium.

WAL MODE:
  The database is opened with WAL so concurrent readers don't block the
  single writer.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ticksnap/credit-engine/engine"
)

// firstDataRow mirrors the sheet convention: row 1 is the header.
const firstDataRow = 2

// Store implements engine.LedgerSource (via Ledger) and engine.LogStore
// (via Log) on one SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path. Use ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Master credit table (read-only from the engine)
	CREATE TABLE IF NOT EXISTS master_credits (
		position INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		item TEXT NOT NULL,
		item_code TEXT NOT NULL,
		item_id TEXT NOT NULL,
		store TEXT NOT NULL,
		address TEXT NOT NULL,
		total_credit TEXT NOT NULL,
		installment_amount TEXT NOT NULL,
		total_installments TEXT NOT NULL,
		installments_paid TEXT NOT NULL
	);

	-- Payment log (append-only; position is the allocation unit)
	CREATE TABLE IF NOT EXISTS payment_log (
		position INTEGER PRIMARY KEY,
		paid_on TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		item TEXT NOT NULL,
		item_id TEXT NOT NULL,
		store TEXT NOT NULL,
		address TEXT NOT NULL,
		amount TEXT NOT NULL,
		installments TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Ledger returns the master table view satisfying engine.LedgerSource.
func (s *Store) Ledger() *Ledger { return &Ledger{db: s.db} }

// Log returns the payment log view satisfying engine.LogStore.
func (s *Store) Log() *Log { return &Log{db: s.db} }

// =============================================================================
// LEDGER - engine.LedgerSource
// =============================================================================

type Ledger struct {
	db *sql.DB
}

func (l *Ledger) ReadRows(ctx context.Context) ([]engine.Row, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT position, first_name, last_name, item, item_code, item_id,
		       store, address, total_credit, installment_amount,
		       total_installments, installments_paid
		FROM master_credits ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("read master rows: %w", err)
	}
	defer rows.Close()

	var out []engine.Row
	for rows.Next() {
		cells := make([]string, engine.MasterColumns)
		dest := make([]any, 0, engine.MasterColumns+1)
		var pos int
		dest = append(dest, &pos)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan master row: %w", err)
		}
		out = append(out, engine.Row{Position: pos, Cells: cells})
	}
	return out, rows.Err()
}

// Import inserts master rows at the next free positions, in order. Used by
// the seed command; the engine itself never writes this table.
func (l *Ledger) Import(ctx context.Context, rowsCells [][]string) (int, error) {
	var next int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position)+1, ?) FROM master_credits`, firstDataRow).Scan(&next); err != nil {
		return 0, fmt.Errorf("find next master position: %w", err)
	}

	count := 0
	for _, cells := range rowsCells {
		if len(cells) != int(engine.MasterColumns) {
			return count, fmt.Errorf("row %d: %d cells, need %d", next, len(cells), int(engine.MasterColumns))
		}
		args := make([]any, 0, engine.MasterColumns+1)
		args = append(args, next)
		for _, c := range cells {
			args = append(args, c)
		}
		if _, err := l.db.ExecContext(ctx, `
			INSERT INTO master_credits (
				position, first_name, last_name, item, item_code, item_id,
				store, address, total_credit, installment_amount,
				total_installments, installments_paid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
			return count, fmt.Errorf("insert master row %d: %w", next, err)
		}
		next++
		count++
	}
	return count, nil
}

// =============================================================================
// LOG - engine.LogStore
// =============================================================================

type Log struct {
	db *sql.DB
}

func (g *Log) ReadRows(ctx context.Context, from, to int) ([]engine.Row, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT position, paid_on, first_name, last_name, item, item_id,
		       store, address, amount, installments
		FROM payment_log WHERE position BETWEEN ? AND ? ORDER BY position`, from, to)
	if err != nil {
		return nil, fmt.Errorf("read log rows: %w", err)
	}
	defer rows.Close()

	var out []engine.Row
	for rows.Next() {
		cells := make([]string, engine.LogColumns)
		dest := make([]any, 0, engine.LogColumns+1)
		var pos int
		dest = append(dest, &pos)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, engine.Row{Position: pos, Cells: cells})
	}
	return out, rows.Err()
}

func (g *Log) WriteRow(ctx context.Context, position int, cells []string) error {
	if len(cells) != int(engine.LogColumns) {
		return fmt.Errorf("log row needs %d cells, got %d", int(engine.LogColumns), len(cells))
	}

	args := make([]any, 0, engine.LogColumns+1)
	args = append(args, position)
	for _, c := range cells {
		args = append(args, c)
	}

	res, err := g.db.ExecContext(ctx, `
		INSERT INTO payment_log (
			position, paid_on, first_name, last_name, item, item_id,
			store, address, amount, installments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (position) DO NOTHING`, args...)
	if err != nil {
		return fmt.Errorf("write log row %d: %w", position, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write log row %d: %w", position, err)
	}
	if n == 0 {
		return engine.ErrRowOccupied
	}
	return nil
}
