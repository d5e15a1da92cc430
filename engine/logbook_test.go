package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticksnap/credit-engine/engine"
	"github.com/ticksnap/credit-engine/engine/store"
)

func testRecord() engine.PaymentRecord {
	return engine.PaymentRecord{
		ID:                "rec-1",
		IssuedAt:          time.Date(2026, time.August, 29, 15, 4, 5, 0, time.UTC),
		FirstName:         "Juan",
		LastName:          "Perez",
		Item:              "Bicicleta",
		ItemCode:          "B12",
		ItemID:            "7",
		Store:             "Centro",
		Address:           "Av. 1",
		InstallmentAmount: decimal.NewFromInt(500),
		Installments:      2,
		Amount:            decimal.NewFromInt(1000),
	}
}

// racingLog wraps the memory log and injects a competing write just before
// each of the first n conditional writes, simulating a concurrent
// invocation that keeps winning the race for the frontier row.
type racingLog struct {
	*store.Log
	wins int
}

func (r *racingLog) WriteRow(ctx context.Context, position int, cells []string) error {
	if r.wins > 0 {
		r.wins--
		r.Log.Seed(position, []string{"raced"})
	}
	return r.Log.WriteRow(ctx, position, cells)
}

func TestAppend_FirstEmptyRow(t *testing.T) {
	ctx := context.Background()
	log := store.NewLog()
	a := engine.NewAppender(log)

	pos, err := a.Append(ctx, testRecord())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if pos != 2 {
		t.Errorf("first append landed at %d, want 2 (row 1 is the header)", pos)
	}

	rows, err := log.ReadRows(ctx, 2, 2)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ReadRows = %v, %v", rows, err)
	}
	cells := rows[0].Cells
	want := []string{"29/08/2026", "Juan", "Perez", "Bicicleta", "7", "Centro", "Av. 1", "1000.00", "2"}
	for i, w := range want {
		if cells[i] != w {
			t.Errorf("cell %d = %q, want %q", i, cells[i], w)
		}
	}
}

func TestAppend_SkipsExistingData(t *testing.T) {
	ctx := context.Background()
	log := store.NewLog()
	log.Seed(2, []string{"existing"})
	log.Seed(3, []string{"existing"})

	pos, err := engine.NewAppender(log).Append(ctx, testRecord())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if pos != 4 {
		t.Errorf("append landed at %d, want 4", pos)
	}
}

func TestAppend_InterleavedWritersGetDistinctRows(t *testing.T) {
	// GIVEN: two appends racing from the same initial frontier; the first
	// conditional write of each loses one round to a concurrent writer
	ctx := context.Background()
	log := store.NewLog()
	raced := &racingLog{Log: log, wins: 1}
	a := engine.NewAppender(raced)

	// WHEN: appending twice against sustained interleaving
	pos1, err := a.Append(ctx, testRecord())
	if err != nil {
		t.Fatalf("first Append: %v", err)
	}
	raced.wins = 1
	pos2, err := a.Append(ctx, testRecord())
	if err != nil {
		t.Fatalf("second Append: %v", err)
	}

	// THEN: two distinct rows, neither overwrote the other or the racers
	if pos1 == pos2 {
		t.Fatalf("both appends landed at row %d", pos1)
	}
	if log.Len() != 4 { // 2 raced rows + 2 appended rows
		t.Errorf("log has %d rows, want 4", log.Len())
	}
}

func TestAppend_RetryBoundExhausted(t *testing.T) {
	// GIVEN: every candidate row is stolen before the conditional write
	ctx := context.Background()
	raced := &racingLog{Log: store.NewLog(), wins: 1 << 20}
	a := engine.NewAppender(raced)
	a.MaxAttempts = 5

	// WHEN/THEN: the loop terminates with a conflict error, not a hang
	_, err := a.Append(ctx, testRecord())
	if !errors.Is(err, engine.ErrLogConflict) {
		t.Fatalf("error = %v, want ErrLogConflict", err)
	}
	var conflict *engine.LogConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error is not *LogConflictError: %v", err)
	}
	if conflict.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", conflict.Attempts)
	}
	if !engine.IsRetryable(err) {
		t.Error("log conflict should classify as retryable")
	}
}

func TestFrontier_MidTableGap(t *testing.T) {
	// The log is append-only, so a gap can only be a never-written row;
	// it counts as the frontier.
	ctx := context.Background()
	log := store.NewLog()
	log.Seed(2, []string{"a"})
	log.Seed(4, []string{"b"})

	pos, err := engine.NewAppender(log).Frontier(ctx)
	if err != nil {
		t.Fatalf("Frontier: %v", err)
	}
	if pos != 3 {
		t.Errorf("Frontier = %d, want 3", pos)
	}
}

func TestFrontier_WholeWindowOccupied(t *testing.T) {
	// Force the scan past its first read window.
	ctx := context.Background()
	log := store.NewLog()
	for pos := 2; pos < 2+300; pos++ {
		log.Seed(pos, []string{"x"})
	}

	pos, err := engine.NewAppender(log).Frontier(ctx)
	if err != nil {
		t.Fatalf("Frontier: %v", err)
	}
	if pos != 302 {
		t.Errorf("Frontier = %d, want 302", pos)
	}
}

func TestFrontier_TreatsWhitespaceRowsAsEmpty(t *testing.T) {
	ctx := context.Background()
	log := store.NewLog()
	log.Seed(2, []string{"  ", "", "\t"})

	pos, err := engine.NewAppender(log).Frontier(ctx)
	if err != nil {
		t.Fatalf("Frontier: %v", err)
	}
	if pos != 2 {
		t.Errorf("Frontier = %d, want 2 (all-blank row is empty)", pos)
	}
}
