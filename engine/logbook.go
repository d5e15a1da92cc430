/*
logbook.go - Concurrency-safe append protocol for the payment log

PURPOSE:
  The payment log is an external table exposing only range reads and
  positioned writes; there is no native atomic append. Two concurrent
  payments must never share a row and never overwrite each other, so the
  appender implements optimistic allocation:

    1. Scan for the frontier: the first row beyond existing data.
    2. Conditionally write there; the store fails with ErrRowOccupied
       when a concurrent invocation won the race for that row.
    3. On conflict, retry with the next candidate frontier, up to a small
       bound. Exhausting the bound fails with LogConflictError.

  Strict serializability is unavailable against the external store. The
  bounded optimistic retry is the correct trade for a small business's
  payment volume: contention is rare and every retry terminates.

PARTIAL FAILURE:
  A LogConflictError can arrive after the receipt was already issued.
  Callers must report that state explicitly ("ticket issued, logging
  failed") so the operator can reconcile by hand; it is never a crash.
*/
package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Payment log column offsets (0-based within a row's cells).
const (
	logColDate = iota
	logColFirstName
	logColLastName
	logColItem
	logColItemID
	logColStore
	logColAddress
	logColAmount
	logColInstallments

	// LogColumns is the number of cells a log row carries.
	LogColumns
)

// logDateLayout matches the dd/mm/yyyy convention of the paper tickets.
const logDateLayout = "02/01/2006"

// LogStore is the narrow contract the external log table exposes.
//
// WriteRow must be conditional: it fails with ErrRowOccupied when the
// target row already holds data. Stores without a native conditional
// primitive emulate it with a write-then-verify on the single row, which
// the medium's single-cell consistency makes safe.
type LogStore interface {
	// ReadRows returns the rows holding data in [from, to], 1-based,
	// ascending. Positions without data are simply absent.
	ReadRows(ctx context.Context, from, to int) ([]Row, error)

	// WriteRow writes cells at the given position, or ErrRowOccupied.
	WriteRow(ctx context.Context, position int, cells []string) error
}

// EncodeLogRow flattens a PaymentRecord into the fixed log tuple.
func EncodeLogRow(rec PaymentRecord) []string {
	cells := make([]string, LogColumns)
	cells[logColDate] = rec.IssuedAt.Format(logDateLayout)
	cells[logColFirstName] = rec.FirstName
	cells[logColLastName] = rec.LastName
	cells[logColItem] = rec.Item
	cells[logColItemID] = rec.ItemID
	cells[logColStore] = rec.Store
	cells[logColAddress] = rec.Address
	cells[logColAmount] = rec.Amount.StringFixed(2)
	cells[logColInstallments] = strconv.Itoa(rec.Installments)
	return cells
}

// =============================================================================
// APPENDER
// =============================================================================

// DefaultMaxAppendAttempts bounds the optimistic retry loop. The loop must
// terminate under contention; there is no unbounded retry or backoff.
const DefaultMaxAppendAttempts = 5

// frontierWindow is how many rows a single frontier scan reads at once.
const frontierWindow = 250

// Appender appends payment records to the log under the optimistic
// allocation protocol.
type Appender struct {
	Store       LogStore
	FirstRow    int // first data row (row 1 is the header), default 2
	MaxAttempts int // default DefaultMaxAppendAttempts
}

// NewAppender returns an appender with the default bounds.
func NewAppender(store LogStore) *Appender {
	return &Appender{Store: store, FirstRow: 2, MaxAttempts: DefaultMaxAppendAttempts}
}

func (a *Appender) firstRow() int {
	if a.FirstRow > 0 {
		return a.FirstRow
	}
	return 2
}

func (a *Appender) maxAttempts() int {
	if a.MaxAttempts > 0 {
		return a.MaxAttempts
	}
	return DefaultMaxAppendAttempts
}

// Frontier returns the first row position beyond the existing contiguous
// data. Mid-table gaps count as the frontier: the log is append-only, so a
// gap can only mean a row that was never written.
func (a *Appender) Frontier(ctx context.Context) (int, error) {
	return a.frontierFrom(ctx, a.firstRow())
}

func (a *Appender) frontierFrom(ctx context.Context, start int) (int, error) {
	for from := start; ; from += frontierWindow {
		to := from + frontierWindow - 1
		rows, err := a.Store.ReadRows(ctx, from, to)
		if err != nil {
			return 0, err
		}

		occupied := make(map[int]bool, len(rows))
		for _, r := range rows {
			if !rowEmpty(r) {
				occupied[r.Position] = true
			}
		}
		for pos := from; pos <= to; pos++ {
			if !occupied[pos] {
				return pos, nil
			}
		}
		// Whole window occupied: scan the next one.
	}
}

// Append writes the record at the current frontier and returns the row
// position it landed on. Row collisions with concurrent appends are
// recovered automatically up to the attempt bound; exhaustion returns a
// *LogConflictError and the payment is NOT logged.
func (a *Appender) Append(ctx context.Context, rec PaymentRecord) (int, error) {
	cells := EncodeLogRow(rec)

	pos, err := a.Frontier(ctx)
	if err != nil {
		return 0, err
	}

	max := a.maxAttempts()
	for attempt := 1; ; attempt++ {
		err := a.Store.WriteRow(ctx, pos, cells)
		if err == nil {
			paymentsLoggedTotal.Inc()
			return pos, nil
		}
		if !errors.Is(err, ErrRowOccupied) {
			return 0, err
		}
		appendRetriesTotal.Inc()
		if attempt >= max {
			appendConflictsTotal.Inc()
			return 0, &LogConflictError{Attempts: attempt}
		}
		// Lost the race for this row: rescan from the next candidate.
		if pos, err = a.frontierFrom(ctx, pos+1); err != nil {
			return 0, err
		}
	}
}

func rowEmpty(r Row) bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
