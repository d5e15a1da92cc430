/*
Package receipt renders payment records as PNG ticket images.

The renderer is a pure function of the PaymentRecord: same record, same
image. It owns the ticket's text layout (what the customer reads) and the
rasterization (fixed-width faces, bold for the figures). Rendering is not
on the durability-critical path; the engine logs the payment regardless of
whether a ticket image could be produced.
*/
package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"github.com/ticksnap/credit-engine/engine"
)

const (
	ticketWidth  = 600
	ticketHeight = 900
	marginX      = 25
	topMargin    = 40
	lineSpacing  = 30
)

const separator = "------------------------------------------"
const footerBar = "**********************************"

// Renderer draws payment tickets. The zero value is ready to use.
type Renderer struct{}

// New returns a ticket renderer.
func New() *Renderer { return &Renderer{} }

// Render produces the PNG ticket for a payment record.
func (r *Renderer) Render(rec engine.PaymentRecord) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, ticketWidth, ticketHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	regular := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: inconsolata.Regular8x16}
	bold := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: inconsolata.Bold8x16}

	y := topMargin
	for _, line := range strings.Split(ComposeText(rec), "\n") {
		text := strings.TrimSpace(line)

		d := regular
		if strings.HasPrefix(text, "**") && !strings.HasPrefix(text, "*****") {
			d = bold
			// Label lines close their bold span mid-line ("**Date:** ...");
			// drop every marker, not just the outer pair. Footer bars are
			// runs of asterisks, not markers, and are drawn verbatim.
			text = strings.ReplaceAll(text, "**", "")
		}

		if text != "" {
			d.Dot = fixed.P(marginX, y)
			d.DrawString(text)
		}

		// Tighter spacing around separators and blank lines keeps the
		// ticket inside one image.
		switch {
		case strings.HasPrefix(text, "-----") || strings.HasPrefix(text, "*****"):
			y += lineSpacing * 7 / 10
		case text == "":
			y += lineSpacing / 2
		default:
			y += lineSpacing
		}
		if y > ticketHeight-30 {
			regular.Dot = fixed.P(marginX, y)
			regular.DrawString("...")
			break
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}
	return buf.Bytes(), nil
}

// ComposeText builds the ticket's line-oriented text. Lines wrapped in
// ** are drawn with the bold face.
func ComposeText(rec engine.PaymentRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Payment Receipt**\n\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n", rec.IssuedAt.Format("02/01/2006 - 15:04:05"))
	fmt.Fprintf(&b, "**Client:** %s %s\n", rec.FirstName, rec.LastName)
	fmt.Fprintf(&b, "**Store:** %s\n", rec.Store)
	fmt.Fprintf(&b, "**Address:** %s\n", rec.Address)
	fmt.Fprintf(&b, "%s\n\n", separator)

	fmt.Fprintf(&b, "**AMOUNT PER INSTALLMENT: $%s**\n", money(rec.InstallmentAmount))
	fmt.Fprintf(&b, "**INSTALLMENTS PAID TODAY: %d**\n", rec.Installments)
	fmt.Fprintf(&b, "**ITEM: %s (code %s)**\n", rec.Item, rec.ItemCode)
	fmt.Fprintf(&b, "**INSTALLMENT No: %s**\n", rec.InstallmentRange())
	fmt.Fprintf(&b, "**TOTAL PAID TO DATE: $%s of $%s**\n", money(rec.CumulativePaid), money(rec.TotalCredit))
	if rec.ReceiptNumber != "" {
		fmt.Fprintf(&b, "**RECEIPT No: %s**\n", rec.ReceiptNumber)
	}
	fmt.Fprintf(&b, "%s\n\n", separator)

	fmt.Fprintf(&b, "**TOTAL PAID TODAY: $%s**\n", money(rec.Amount))
	fmt.Fprintf(&b, "**COLLECTOR: %s**\n\n", rec.Collector)

	fmt.Fprintf(&b, "Keep this receipt as proof of payment.\n")
	fmt.Fprintf(&b, "%s\n\n", footerBar)
	fmt.Fprintf(&b, "**ATTENTION!**\n")
	fmt.Fprintf(&b, "- Payments are taken Monday to Saturday,\n")
	fmt.Fprintf(&b, "  holidays included.\n")
	fmt.Fprintf(&b, "%s", footerBar)

	return b.String()
}

// money formats an amount with thousand separators and two decimals,
// matching the paper tickets ("12,500.00").
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]

	var out strings.Builder
	if neg {
		out.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	out.WriteString(frac)
	return out.String()
}
