package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ticksnap/credit-engine/engine"
	"github.com/ticksnap/credit-engine/engine/store"
)

// stubRenderer stands in for the receipt package; engine tests only care
// that the bytes flow through.
type stubRenderer struct {
	fail bool
}

func (s *stubRenderer) Render(engine.PaymentRecord) ([]byte, error) {
	if s.fail {
		return nil, errors.New("no fonts")
	}
	return []byte("png-bytes"), nil
}

func newTestEngine(ledger *store.Ledger, log *store.Log) *engine.Engine {
	return engine.New(ledger, log, &stubRenderer{}, "John", 0)
}

func TestEndToEnd_SingleMatchPayment(t *testing.T) {
	// GIVEN: one open credit for Juan Perez, 500 per installment, 3 of 10 paid
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("Juan", "Pérez", "Bicicleta", "B12", "7", "Centro", "Av. 1", "5000", "500", "10", "3"),
	)
	log := store.NewLog()
	eng := newTestEngine(ledger, log)

	// WHEN: the operator sends "Juan Perez 2"
	p, err := eng.HandleQuery(ctx, "op-1", "Juan Perez 2")

	// THEN: single match settles straight through to a receipt
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if p.Kind != engine.PresentReceipt {
		t.Fatalf("presentation = %v (%q), want receipt", p.Kind, p.Text)
	}
	if len(p.Image) == 0 {
		t.Error("receipt presentation has no image")
	}
	if !strings.Contains(p.Caption, "$1000.00") {
		t.Errorf("caption %q should carry the computed amount 1000.00", p.Caption)
	}

	// AND: one log row at the first empty position, amount and count correct
	rows, err := log.ReadRows(ctx, 2, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("log rows = %v, %v", rows, err)
	}
	if rows[0].Position != 2 {
		t.Errorf("log row at %d, want 2", rows[0].Position)
	}
	if rows[0].Cells[7] != "1000.00" || rows[0].Cells[8] != "2" {
		t.Errorf("log amount/count = %q/%q", rows[0].Cells[7], rows[0].Cells[8])
	}

	// AND: no session was created, the ledger was not written back
	if eng.Sessions.Pending("op-1") {
		t.Error("single match must not create a session")
	}
	master := readRows(t, ledger)
	if got := master[0].Cells[10]; got != "3" {
		t.Errorf("ledger installments-paid = %q, want untouched 3", got)
	}
}

func TestEndToEnd_Disambiguation(t *testing.T) {
	// GIVEN: two open credits for the same normalized name, different items
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("María", "López", "Heladera", "H01", "2", "Centro", "Av. 1", "12000", "1000", "12", "4"),
		masterRow("Maria", "Lopez", "Televisor", "T44", "9", "Centro", "Av. 1", "9000", "750", "12", "0"),
	)
	log := store.NewLog()
	eng := newTestEngine(ledger, log)

	// WHEN: the query resolves
	p, err := eng.HandleQuery(ctx, "op-1", "Maria Lopez 2")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}

	// THEN: two options in ledger order await a choice
	if p.Kind != engine.PresentChoices {
		t.Fatalf("presentation = %v, want choices", p.Kind)
	}
	if len(p.Options) != 2 || p.Options[0].Label != "Heladera (code H01)" || p.Options[1].Label != "Televisor (code T44)" {
		t.Fatalf("options = %+v", p.Options)
	}
	if !eng.Sessions.Pending("op-1") {
		t.Fatal("expected a pending session")
	}

	// WHEN: an out-of-range choice arrives
	p, err = eng.HandleChoice(ctx, "op-1", 5)

	// THEN: InvalidSelection, and the requester is back to Idle
	if !errors.Is(err, engine.ErrInvalidSelection) {
		t.Fatalf("error = %v, want ErrInvalidSelection", err)
	}
	if p.Kind != engine.PresentText {
		t.Errorf("rejection should be a text presentation, got %v", p.Kind)
	}
	if eng.Sessions.Pending("op-1") {
		t.Error("invalid selection must return the session to Idle")
	}

	// WHEN: the query is resent and index 1 chosen
	if _, err := eng.HandleQuery(ctx, "op-1", "Maria Lopez 2"); err != nil {
		t.Fatalf("second HandleQuery: %v", err)
	}
	p, err = eng.HandleChoice(ctx, "op-1", 1)
	if err != nil {
		t.Fatalf("HandleChoice: %v", err)
	}

	// THEN: the second candidate settles, 2 x 750
	if p.Kind != engine.PresentReceipt {
		t.Fatalf("presentation = %v (%q), want receipt", p.Kind, p.Text)
	}
	rows, _ := log.ReadRows(ctx, 2, 10)
	if len(rows) != 1 || rows[0].Cells[3] != "Televisor" || rows[0].Cells[7] != "1500.00" {
		t.Fatalf("log rows = %+v", rows)
	}

	// AND: a stale follow-up press is a harmless no-op
	p, err = eng.HandleChoice(ctx, "op-1", 1)
	if err != nil {
		t.Fatalf("stale choice must not error, got %v", err)
	}
	if p.Kind != engine.PresentText {
		t.Errorf("stale choice presentation = %v, want text", p.Kind)
	}
}

func TestEndToEnd_OverpaymentWritesNothing(t *testing.T) {
	// GIVEN: 8 of 10 installments paid
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("María", "López", "Heladera", "H01", "2", "Centro", "Av. 1", "12000", "1000", "10", "8"),
	)
	log := store.NewLog()
	eng := newTestEngine(ledger, log)

	// WHEN: the operator asks to pay 4
	p, err := eng.HandleQuery(ctx, "op-1", "Maria Lopez 4")

	// THEN: hard validation failure with a correctable message
	if !errors.Is(err, engine.ErrOverpayment) {
		t.Fatalf("error = %v, want ErrOverpayment", err)
	}
	if p.Kind != engine.PresentText || !strings.Contains(p.Text, "2 remaining") {
		t.Errorf("presentation = %v %q", p.Kind, p.Text)
	}

	// AND: no log row, no session
	if log.Len() != 0 {
		t.Errorf("log has %d rows, want 0", log.Len())
	}
	if eng.Sessions.Pending("op-1") {
		t.Error("no session should be created")
	}
}

func TestHandleQuery_NoMatchAndUsage(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(store.NewLedger(), store.NewLog())

	p, err := eng.HandleQuery(ctx, "op-1", "Carlos Gomez 1")
	if err != nil {
		t.Fatalf("no match is a normal outcome, got error %v", err)
	}
	if p.Kind != engine.PresentText || !strings.Contains(p.Text, "No open credits") {
		t.Errorf("presentation = %v %q", p.Kind, p.Text)
	}

	// Malformed text gets the usage message, not an outcome.
	for _, text := range []string{"hola", "Juan Perez", "Juan Perez cero", "Juan Perez 0", "Juan Perez -1"} {
		p, err := eng.HandleQuery(ctx, "op-1", text)
		if !errors.Is(err, engine.ErrMalformedQuery) {
			t.Errorf("HandleQuery(%q) error = %v, want ErrMalformedQuery", text, err)
		}
		if p.Text != engine.UsageMessage {
			t.Errorf("HandleQuery(%q) should present the usage message", text)
		}
	}
}

func TestHandleQuery_SupersedesPendingSession(t *testing.T) {
	// GIVEN: a pending two-candidate session
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("María", "López", "Heladera", "H01", "2", "Centro", "Av. 1", "12000", "1000", "12", "4"),
		masterRow("Maria", "Lopez", "Televisor", "T44", "9", "Centro", "Av. 1", "9000", "750", "12", "0"),
		masterRow("Juan", "Pérez", "Bicicleta", "B12", "7", "Centro", "Av. 1", "5000", "500", "10", "3"),
	)
	eng := newTestEngine(ledger, store.NewLog())
	if _, err := eng.HandleQuery(ctx, "op-1", "Maria Lopez 1"); err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}

	// WHEN: the same requester sends a new query before choosing
	p, err := eng.HandleQuery(ctx, "op-1", "Juan Perez 1")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if p.Kind != engine.PresentReceipt {
		t.Fatalf("new query should settle the single match, got %v", p.Kind)
	}

	// THEN: the old session is gone; its choice is stale
	p, err = eng.HandleChoice(ctx, "op-1", 0)
	if err != nil {
		t.Fatalf("stale choice errored: %v", err)
	}
	if !strings.Contains(p.Text, "No selection is pending") {
		t.Errorf("stale choice text = %q", p.Text)
	}
}

func TestHandleQuery_SeesLedgerChangesBetweenRequests(t *testing.T) {
	// The index is rebuilt per request: an edit to the external ledger is
	// visible on the very next query.
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("Juan", "Pérez", "Bicicleta", "B12", "7", "Centro", "Av. 1", "5000", "500", "10", "9"),
	)
	eng := newTestEngine(ledger, store.NewLog())

	if p, _ := eng.HandleQuery(ctx, "op-1", "Juan Perez 1"); p.Kind != engine.PresentReceipt {
		t.Fatalf("first query should settle, got %v (%q)", p.Kind, p.Text)
	}

	// Credit closes out in the external ledger.
	ledger.SetCell(2, 10, "10")

	p, err := eng.HandleQuery(ctx, "op-1", "Juan Perez 1")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if p.Kind != engine.PresentText || !strings.Contains(p.Text, "No open credits") {
		t.Errorf("closed credit should no longer match: %v %q", p.Kind, p.Text)
	}
}

func TestSettle_TicketIssuedLoggingFailed(t *testing.T) {
	// GIVEN: a log where every candidate row is stolen by a concurrent writer
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("Juan", "Pérez", "Bicicleta", "B12", "7", "Centro", "Av. 1", "5000", "500", "10", "3"),
	)
	raced := &racingLog{Log: store.NewLog(), wins: 1 << 20}
	eng := engine.New(ledger, raced, &stubRenderer{}, "John", 0)

	// WHEN: a payment settles
	p, err := eng.HandleQuery(ctx, "op-1", "Juan Perez 2")

	// THEN: the partial state is reported as such - receipt delivered,
	// logging explicitly flagged as failed
	if !errors.Is(err, engine.ErrLogConflict) {
		t.Fatalf("error = %v, want ErrLogConflict", err)
	}
	if p.Kind != engine.PresentReceipt || len(p.Image) == 0 {
		t.Fatalf("the already-rendered ticket must still be delivered, got %v", p.Kind)
	}
	if !strings.Contains(p.Caption, "NOT logged") {
		t.Errorf("caption %q should state the payment was not logged", p.Caption)
	}
}

func TestSettle_RenderFailureStillLogs(t *testing.T) {
	// Receipt rendering is not on the durability-critical path: the log
	// row is written even when the image cannot be produced.
	ctx := context.Background()
	ledger := store.NewLedger(
		masterRow("Juan", "Pérez", "Bicicleta", "B12", "7", "Centro", "Av. 1", "5000", "500", "10", "3"),
	)
	log := store.NewLog()
	eng := engine.New(ledger, log, &stubRenderer{fail: true}, "John", 0)

	p, err := eng.HandleQuery(ctx, "op-1", "Juan Perez 2")
	if err == nil {
		t.Fatal("render failure should surface as an error")
	}
	if p.Kind != engine.PresentText || !strings.Contains(p.Text, "logged at row 2") {
		t.Errorf("presentation = %v %q", p.Kind, p.Text)
	}
	if log.Len() != 1 {
		t.Errorf("log has %d rows, want 1", log.Len())
	}
}
