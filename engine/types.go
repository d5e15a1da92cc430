/*
Package engine implements the credit matching and payment logging core.

PURPOSE:
  Given a free-text client name and an installment count, the engine finds
  the client's open credits in an external row-oriented ledger, resolves
  ambiguity through a per-requester selection session, computes the payment
  figures, renders a receipt, and appends an audit row to the payment log.

KEY CONCEPTS IN THIS FILE (types.go):
  - Credit: one client's installment plan, read from the master ledger
  - MatchQuery / MatchCandidate: ephemeral inputs and outputs of matching
  - PaymentRecord: immutable snapshot of a resolved payment
  - Row: a positioned tuple of cells in an external sheet-like table
  - Presentation: transport-agnostic description of what to show the operator

DESIGN PRINCIPLES:
  1. Immutability: PaymentRecords are values, never mutated after Compose
  2. Precision: Uses decimal.Decimal for all money, never float64
  3. Read-only ledger: The master table is never written by this engine
  4. Append-only log: The payment log gets new rows, no updates or deletes

SEE ALSO:
  - resolver.go: name matching policy
  - session.go: multi-turn disambiguation state machine
  - payment.go: payment figure computation and validation
  - logbook.go: concurrency-safe log append protocol
*/
package engine

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CREDIT - One client's installment plan
// =============================================================================

// Credit is a single installment plan read from the master ledger.
// Invariant: 0 <= InstallmentsPaid <= TotalInstallments.
type Credit struct {
	FirstName string
	LastName  string
	Item      string
	ItemCode  string
	ItemID    string
	Store     string
	Address   string

	TotalCredit       decimal.Decimal
	InstallmentAmount decimal.Decimal
	TotalInstallments int
	InstallmentsPaid  int
}

// Open reports whether the credit still has unpaid installments.
func (c Credit) Open() bool {
	return c.InstallmentsPaid < c.TotalInstallments
}

// Remaining returns the number of unpaid installments.
func (c Credit) Remaining() int {
	return c.TotalInstallments - c.InstallmentsPaid
}

// =============================================================================
// QUERY AND CANDIDATES
// =============================================================================

// MatchQuery is the parsed form of an operator's free-text request.
// Constructed per incoming message, discarded after resolution.
type MatchQuery struct {
	RawName      string // name text exactly as typed
	Installments int    // requested installment count, always > 0
}

// MatchCandidate pairs a Credit with the ledger row it occupies.
// The position is carried opaquely; a future write-back would need it.
type MatchCandidate struct {
	Credit   Credit
	Position int
}

// Label returns the option text shown when the operator must choose
// between several candidates.
func (mc MatchCandidate) Label() string {
	return mc.Credit.Item + " (code " + mc.Credit.ItemCode + ")"
}

// =============================================================================
// PAYMENT RECORD - Immutable result of a resolved selection
// =============================================================================

// PaymentRecord is the immutable outcome of composing a payment.
// It snapshots every display field the renderer and the logger need,
// decoupling both from the Credit's live representation.
type PaymentRecord struct {
	ID       string // uuid, unique per composed payment
	IssuedAt time.Time

	FirstName string
	LastName  string
	Item      string
	ItemCode  string
	ItemID    string
	Store     string
	Address   string

	InstallmentAmount decimal.Decimal
	Installments      int             // installments paid in this payment
	Amount            decimal.Decimal // Installments x InstallmentAmount

	PaidBefore        int // installments paid before this payment
	PaidAfter         int // PaidBefore + Installments
	TotalInstallments int
	TotalCredit       decimal.Decimal
	CumulativePaid    decimal.Decimal // PaidAfter x InstallmentAmount

	ReceiptNumber string // "IID/RRRR", best-effort, may be empty
	Collector     string
}

// InstallmentRange describes which installments this payment covers,
// e.g. "4 to 5 of 10", or "4 of 10" for a single installment.
func (p PaymentRecord) InstallmentRange() string {
	first := strconv.Itoa(p.PaidBefore + 1)
	total := strconv.Itoa(p.TotalInstallments)
	if p.Installments == 1 {
		return first + " of " + total
	}
	return first + " to " + strconv.Itoa(p.PaidAfter) + " of " + total
}

// =============================================================================
// ROW - Positioned cell tuple in an external table
// =============================================================================

// Row is one row of an external sheet-like table. Position is 1-based and
// stable; Cells are raw strings at fixed column offsets.
type Row struct {
	Position int
	Cells    []string
}

// =============================================================================
// PRESENTATION - Transport-agnostic output
// =============================================================================

// PresentationKind distinguishes what the transport should render.
type PresentationKind string

const (
	PresentText    PresentationKind = "text"    // plain message
	PresentChoices PresentationKind = "choices" // list of labeled options
	PresentReceipt PresentationKind = "receipt" // image payload + caption
)

// ChoiceOption is one selectable entry in a choices Presentation.
// Index is what the transport must echo back via HandleChoice.
type ChoiceOption struct {
	Index int
	Label string
}

// Presentation describes an engine response without assuming any particular
// chat transport. Exactly one of Text / Options / Image is meaningful,
// according to Kind; Caption accompanies a receipt image.
type Presentation struct {
	Kind    PresentationKind
	Text    string
	Options []ChoiceOption
	Image   []byte
	Caption string
}

func textPresentation(msg string) Presentation {
	return Presentation{Kind: PresentText, Text: msg}
}
