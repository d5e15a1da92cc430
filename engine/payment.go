package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Composer turns a selected credit and a requested installment count into
// an immutable PaymentRecord.
type Composer struct {
	Collector string           // identity printed on receipts and logged
	Now       func() time.Time // injectable clock for tests
	NewID     func() string    // record id generator
}

// NewComposer returns a Composer using the wall clock and uuid ids.
func NewComposer(collector string) *Composer {
	return &Composer{
		Collector: collector,
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

// Compose computes the payment figures for the candidate. It fails with an
// *OverpaymentError when paid + requested exceeds the credit's total; this
// is a hard validation, not a warning, because logging it would corrupt the
// ledger's remaining-balance semantics. The boundary case
// paid + requested == total is accepted and closes out the credit.
//
// receiptNumber is the pre-allocated ticket number (may be empty when the
// frontier peek failed; the receipt then simply omits it).
func (c *Composer) Compose(candidate MatchCandidate, requested int, receiptNumber string) (PaymentRecord, error) {
	credit := candidate.Credit

	if requested <= 0 {
		return PaymentRecord{}, fmt.Errorf("installment count must be positive, got %d", requested)
	}
	if credit.InstallmentsPaid+requested > credit.TotalInstallments {
		return PaymentRecord{}, &OverpaymentError{
			Requested: requested,
			Paid:      credit.InstallmentsPaid,
			Total:     credit.TotalInstallments,
		}
	}

	n := decimal.NewFromInt(int64(requested))
	paidAfter := credit.InstallmentsPaid + requested

	return PaymentRecord{
		ID:       c.NewID(),
		IssuedAt: c.Now(),

		FirstName: credit.FirstName,
		LastName:  credit.LastName,
		Item:      credit.Item,
		ItemCode:  credit.ItemCode,
		ItemID:    credit.ItemID,
		Store:     credit.Store,
		Address:   credit.Address,

		InstallmentAmount: credit.InstallmentAmount,
		Installments:      requested,
		Amount:            credit.InstallmentAmount.Mul(n),

		PaidBefore:        credit.InstallmentsPaid,
		PaidAfter:         paidAfter,
		TotalInstallments: credit.TotalInstallments,
		TotalCredit:       credit.TotalCredit,
		CumulativePaid:    credit.InstallmentAmount.Mul(decimal.NewFromInt(int64(paidAfter))),

		ReceiptNumber: receiptNumber,
		Collector:     c.Collector,
	}, nil
}

// FormatReceiptNumber builds the ticket number from the item id and the
// next free log row: item id zero-padded to three digits, row to four
// ("007/0042"). A non-numeric item id is used verbatim.
func FormatReceiptNumber(itemID string, logRow int) string {
	if id, err := strconv.Atoi(itemID); err == nil {
		return fmt.Sprintf("%03d/%04d", id, logRow)
	}
	return fmt.Sprintf("%s/%04d", itemID, logRow)
}
