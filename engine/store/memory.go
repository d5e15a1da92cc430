// Package store provides in-memory implementations of the engine's
// ledger and log contracts, used by tests and local development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ticksnap/credit-engine/engine"
)

// firstDataRow mirrors the sheet convention: row 1 is the header.
const firstDataRow = 2

// =============================================================================
// MEMORY LEDGER - engine.LedgerSource
// =============================================================================

// Ledger is an in-memory master credit table.
type Ledger struct {
	mu   sync.RWMutex
	rows [][]string
}

// NewLedger creates a ledger seeded with the given rows, in order.
func NewLedger(rows ...[]string) *Ledger {
	l := &Ledger{}
	for _, r := range rows {
		l.Add(r)
	}
	return l
}

// Add appends a master row. Positions are assigned in insertion order.
func (l *Ledger) Add(cells []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, append([]string(nil), cells...))
}

// SetCell overwrites one cell, simulating an operator editing the sheet
// between requests.
func (l *Ledger) SetCell(position, column int, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[position-firstDataRow][column] = value
}

func (l *Ledger) ReadRows(_ context.Context) ([]engine.Row, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]engine.Row, len(l.rows))
	for i, cells := range l.rows {
		out[i] = engine.Row{
			Position: firstDataRow + i,
			Cells:    append([]string(nil), cells...),
		}
	}
	return out, nil
}

// =============================================================================
// MEMORY LOG - engine.LogStore
// =============================================================================

// Log is an in-memory payment log table with conditional positioned writes.
type Log struct {
	mu   sync.Mutex
	rows map[int][]string
}

func NewLog() *Log {
	return &Log{rows: make(map[int][]string)}
}

func (g *Log) ReadRows(_ context.Context, from, to int) ([]engine.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []engine.Row
	for pos, cells := range g.rows {
		if pos >= from && pos <= to {
			out = append(out, engine.Row{Position: pos, Cells: append([]string(nil), cells...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// WriteRow is conditional: a position that already holds data fails with
// engine.ErrRowOccupied, which drives the appender's retry loop.
func (g *Log) WriteRow(_ context.Context, position int, cells []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.rows[position]; taken {
		return engine.ErrRowOccupied
	}
	g.rows[position] = append([]string(nil), cells...)
	return nil
}

// Seed writes a row unconditionally. Test helper for simulating rows
// written by a concurrent process.
func (g *Log) Seed(position int, cells []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows[position] = append([]string(nil), cells...)
}

// Len returns the number of occupied rows.
func (g *Log) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rows)
}
