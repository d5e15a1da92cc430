package receipt_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticksnap/credit-engine/engine"
	"github.com/ticksnap/credit-engine/receipt"
)

func sampleRecord() engine.PaymentRecord {
	return engine.PaymentRecord{
		ID:                "rec-1",
		IssuedAt:          time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC),
		FirstName:         "Juan",
		LastName:          "Pérez",
		Item:              "Bicicleta",
		ItemCode:          "B12",
		ItemID:            "7",
		Store:             "Centro",
		Address:           "Av. Siempreviva 742",
		InstallmentAmount: decimal.NewFromInt(1250),
		Installments:      2,
		Amount:            decimal.NewFromInt(2500),
		PaidBefore:        3,
		PaidAfter:         5,
		TotalInstallments: 10,
		TotalCredit:       decimal.NewFromInt(12500),
		CumulativePaid:    decimal.NewFromInt(6250),
		ReceiptNumber:     "007/0042",
		Collector:         "John",
	}
}

func TestComposeText_TicketContents(t *testing.T) {
	text := receipt.ComposeText(sampleRecord())

	for _, want := range []string{
		"**Payment Receipt**",
		"**Date:** 29/08/2026 - 14:30:05",
		"**Client:** Juan Pérez",
		"**Store:** Centro",
		"**Address:** Av. Siempreviva 742",
		"**AMOUNT PER INSTALLMENT: $1,250.00**",
		"**INSTALLMENTS PAID TODAY: 2**",
		"**ITEM: Bicicleta (code B12)**",
		"**INSTALLMENT No: 4 to 5 of 10**",
		"**TOTAL PAID TO DATE: $6,250.00 of $12,500.00**",
		"**RECEIPT No: 007/0042**",
		"**TOTAL PAID TODAY: $2,500.00**",
		"**COLLECTOR: John**",
		"ATTENTION!",
	} {
		assert.Contains(t, text, want)
	}
}

func TestComposeText_OmitsEmptyReceiptNumber(t *testing.T) {
	rec := sampleRecord()
	rec.ReceiptNumber = ""

	text := receipt.ComposeText(rec)

	assert.NotContains(t, text, "RECEIPT No")
}

func TestComposeText_SingleInstallmentRange(t *testing.T) {
	rec := sampleRecord()
	rec.Installments = 1
	rec.PaidAfter = 4

	text := receipt.ComposeText(rec)

	assert.Contains(t, text, "**INSTALLMENT No: 4 of 10**")
}

func TestRender_ProducesDecodablePNG(t *testing.T) {
	data, err := receipt.New().Render(sampleRecord())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 600, bounds.Dx())
	assert.Equal(t, 900, bounds.Dy())
}

func TestRender_Deterministic(t *testing.T) {
	r := receipt.New()
	rec := sampleRecord()

	first, err := r.Render(rec)
	require.NoError(t, err)
	second, err := r.Render(rec)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same record must yield the same image")
}

func TestComposeText_BoldMarkersBalance(t *testing.T) {
	// A leading ** marks the line bold. Label lines close the span after
	// the label ("**Date:** ..."), figure lines wrap the whole line; in
	// both shapes markers come in pairs so the renderer can drop them all.
	for _, line := range strings.Split(receipt.ComposeText(sampleRecord()), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "*****") {
			continue // footer bar, drawn verbatim
		}
		if !strings.HasPrefix(line, "**") {
			assert.NotContains(t, line, "**", "stray marker on a regular line %q", line)
			continue
		}
		assert.Zero(t, strings.Count(line, "**")%2, "unbalanced bold markers in %q", line)
		assert.NotEmpty(t, strings.ReplaceAll(line, "**", ""), "bold line %q has no text", line)
	}
}
