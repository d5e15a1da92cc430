/*
ledger.go - Master ledger row layout and parsing

PURPOSE:
  The master ledger is an external row-oriented table with a fixed column
  layout. This file owns the layout, the read contract, and the conversion
  from raw cells into Credit values.

READ-ONLY CONTRACT:
  The engine never writes the master ledger. Even the derived "installments
  paid" figure is only reflected in PaymentRecords; write-back is a possible
  future extension, which is why MatchCandidate carries the row position.

ROW HYGIENE:
  Rows missing an item id or item code, or with unparseable numerics, are
  skipped during index build rather than failing the whole query. The
  ledger is operator-maintained and partially filled rows are common.
*/
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Master ledger column offsets (0-based within a row's cells).
const (
	colFirstName = iota
	colLastName
	colItem
	colItemCode
	colItemID
	colStore
	colAddress
	colTotalCredit
	colInstallmentAmount
	colTotalInstallments
	colInstallmentsPaid

	// MasterColumns is the number of cells a complete master row carries.
	MasterColumns
)

// LedgerSource reads the master credit table. Implementations treat the
// table as a shared mutable resource with no locking primitive, so every
// call returns a fresh snapshot.
type LedgerSource interface {
	// ReadRows returns all data rows in table order, positions 1-based.
	ReadRows(ctx context.Context) ([]Row, error)
}

// ParseCredit converts a raw ledger row into a Credit. It returns an error
// for rows the index must skip: short rows, missing item identifiers, or
// numerics that do not parse.
func ParseCredit(r Row) (Credit, error) {
	if len(r.Cells) < MasterColumns {
		return Credit{}, fmt.Errorf("row %d: %d cells, need %d", r.Position, len(r.Cells), int(MasterColumns))
	}

	cell := func(i int) string { return strings.TrimSpace(r.Cells[i]) }

	c := Credit{
		FirstName: cell(colFirstName),
		LastName:  cell(colLastName),
		Item:      cell(colItem),
		ItemCode:  cell(colItemCode),
		ItemID:    cell(colItemID),
		Store:     cell(colStore),
		Address:   cell(colAddress),
	}

	if c.ItemID == "" {
		return Credit{}, fmt.Errorf("row %d: missing item id", r.Position)
	}
	if c.ItemCode == "" {
		return Credit{}, fmt.Errorf("row %d: missing item code", r.Position)
	}

	var err error
	if c.TotalCredit, err = parseAmount(cell(colTotalCredit)); err != nil {
		return Credit{}, fmt.Errorf("row %d: total credit: %w", r.Position, err)
	}
	if c.InstallmentAmount, err = parseAmount(cell(colInstallmentAmount)); err != nil {
		return Credit{}, fmt.Errorf("row %d: installment amount: %w", r.Position, err)
	}
	if !c.InstallmentAmount.IsPositive() {
		return Credit{}, fmt.Errorf("row %d: installment amount must be positive", r.Position)
	}
	if c.TotalInstallments, err = strconv.Atoi(cell(colTotalInstallments)); err != nil {
		return Credit{}, fmt.Errorf("row %d: total installments: %w", r.Position, err)
	}
	if c.TotalInstallments <= 0 {
		return Credit{}, fmt.Errorf("row %d: total installments must be positive", r.Position)
	}
	if paid := cell(colInstallmentsPaid); paid == "" {
		c.InstallmentsPaid = 0
	} else if c.InstallmentsPaid, err = strconv.Atoi(paid); err != nil {
		return Credit{}, fmt.Errorf("row %d: installments paid: %w", r.Position, err)
	}
	if c.InstallmentsPaid < 0 || c.InstallmentsPaid > c.TotalInstallments {
		return Credit{}, fmt.Errorf("row %d: installments paid %d outside 0-%d",
			r.Position, c.InstallmentsPaid, c.TotalInstallments)
	}

	return c, nil
}

// parseAmount accepts the formats operators type into the sheet: an optional
// currency sign, "." thousand separators with "," decimals ("$1.250,50"),
// or a plain decimal string ("1250.50").
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}
