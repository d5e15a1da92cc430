/*
engine.go - Request orchestration

PURPOSE:
  Wires the matching pipeline together behind two transport-facing
  operations:

    HandleQuery(requester, text)   free-text "First Last N" request
    HandleChoice(requester, index) disambiguating button press

  Both return a Presentation the transport renders, and an error for the
  caller's logging and metrics. Operator-correctable failures (empty name,
  overpayment, stale selection) still produce a usable Presentation: the
  operator always gets a short, specific message saying what to re-enter.

CONTROL FLOW:
  query -> resolve -> 0 or 1 result settles directly; many results park in
  a session until the operator picks one. Settling composes the payment
  record, renders the receipt, and appends the log row. Rendering and
  logging are independent once the record exists; the receipt is produced
  first so that a log conflict can be reported as the explicit partial
  state "ticket issued, logging failed".
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReceiptRenderer turns a payment record into image bytes. Pure function;
// the engine does not retry it because a rendering failure risks no data.
type ReceiptRenderer interface {
	Render(rec PaymentRecord) ([]byte, error)
}

// UsageMessage describes the expected input format. Transports send it as
// the greeting and whenever a message does not parse as a query.
const UsageMessage = "To register a payment, send: FirstName LastName NumberOfInstallments\n" +
	"Example: Juan Perez 3\n" +
	"The number of installments must be greater than 0."

// ErrMalformedQuery is returned by ParseQuery for text that is not a
// "name... count" request. Transports reply with UsageMessage.
var ErrMalformedQuery = errors.New("malformed query")

// ParseQuery splits a free-text request into a MatchQuery. The last
// whitespace-separated token is the installment count; everything before
// it is the client name (at least two tokens, so multi-word last names
// pass through untouched).
func ParseQuery(text string) (MatchQuery, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return MatchQuery{}, ErrMalformedQuery
	}

	count, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || count <= 0 {
		return MatchQuery{}, fmt.Errorf("%w: installment count must be a whole number greater than 0", ErrMalformedQuery)
	}

	return MatchQuery{
		RawName:      strings.Join(fields[:len(fields)-1], " "),
		Installments: count,
	}, nil
}

// Engine is the credit matching and payment logging core. All fields must
// be set; use New.
type Engine struct {
	Ledger   LedgerSource
	Appender *Appender
	Renderer ReceiptRenderer
	Sessions *SessionStore
	Composer *Composer
}

// New assembles an engine around the given collaborators. collector is the
// identity printed on receipts; sessionTTL <= 0 uses the default.
func New(ledger LedgerSource, logStore LogStore, renderer ReceiptRenderer, collector string, sessionTTL time.Duration) *Engine {
	return &Engine{
		Ledger:   ledger,
		Appender: NewAppender(logStore),
		Renderer: renderer,
		Sessions: NewSessionStore(sessionTTL),
		Composer: NewComposer(collector),
	}
}

// HandleQuery processes a free-text payment request. The returned
// Presentation is always usable; a non-nil error carries the cause for the
// transport's logging and metrics.
func (e *Engine) HandleQuery(ctx context.Context, requester, text string) (Presentation, error) {
	q, err := ParseQuery(text)
	if err != nil {
		// Not a query at all: leave any pending session alone.
		queriesTotal.WithLabelValues("malformed").Inc()
		return textPresentation(UsageMessage), err
	}

	// A new query from the same requester supersedes an unresolved one.
	e.Sessions.Cancel(requester)

	rows, err := e.Ledger.ReadRows(ctx)
	if err != nil {
		queriesTotal.WithLabelValues("ledger_error").Inc()
		return textPresentation("A data source error occurred while searching for the client. Please try again later."), err
	}

	res, err := Resolve(BuildIndex(rows), q)
	if err != nil {
		queriesTotal.WithLabelValues("empty_name").Inc()
		return textPresentation("The client name is empty. " + UsageMessage), err
	}

	switch res.Outcome {
	case NoMatch:
		queriesTotal.WithLabelValues("no_match").Inc()
		return textPresentation(fmt.Sprintf(
			"No open credits found for %q. Check the name or add the credit to the master sheet.", q.RawName)), nil

	case SingleMatch:
		queriesTotal.WithLabelValues("single_match").Inc()
		return e.settle(ctx, res.Candidates[0], q.Installments)

	default: // MultipleMatches
		queriesTotal.WithLabelValues("multiple_matches").Inc()
		e.Sessions.Begin(requester, q, res.Candidates)
		p := Presentation{
			Kind: PresentChoices,
			Text: fmt.Sprintf("Found %d item(s) for %q. Select the item to register %d installment(s):",
				len(res.Candidates), q.RawName, q.Installments),
		}
		for i, cand := range res.Candidates {
			p.Options = append(p.Options, ChoiceOption{Index: i, Label: cand.Label()})
		}
		return p, nil
	}
}

// HandleChoice processes a disambiguating selection. A choice with no
// pending session is a stale signal and resolves to a harmless message,
// never an error: the triggering session object no longer exists.
func (e *Engine) HandleChoice(ctx context.Context, requester string, index int) (Presentation, error) {
	cand, q, err := e.Sessions.Take(requester, index)
	if errors.Is(err, ErrNoSession) {
		choicesTotal.WithLabelValues("stale").Inc()
		return textPresentation("No selection is pending. Send a new request to register a payment."), nil
	}
	if err != nil {
		choicesTotal.WithLabelValues("rejected").Inc()
		return textPresentation("Selection rejected: " + err.Error() + " Send the request again."), err
	}
	choicesTotal.WithLabelValues("resolved").Inc()
	return e.settle(ctx, cand, q.Installments)
}

// settle runs a resolved candidate through compose -> render -> append.
func (e *Engine) settle(ctx context.Context, cand MatchCandidate, installments int) (Presentation, error) {
	// Best-effort frontier peek for the ticket number. The receipt prints
	// the row the record is expected to land on; under contention the
	// actual row may differ, which is acceptable for a ticket reference.
	receiptNo := ""
	if pos, err := e.Appender.Frontier(ctx); err == nil {
		receiptNo = FormatReceiptNumber(cand.Credit.ItemID, pos)
	}

	rec, err := e.Composer.Compose(cand, installments, receiptNo)
	if err != nil {
		var over *OverpaymentError
		if errors.As(err, &over) {
			return textPresentation(fmt.Sprintf(
				"Payment exceeds remaining installments for %q (code %s): %d of %d already paid, %d remaining. "+
					"Resend the request with a corrected count.",
				cand.Credit.Item, cand.Credit.ItemCode, over.Paid, over.Total, over.Total-over.Paid)), err
		}
		return textPresentation("The payment could not be composed: " + err.Error()), err
	}

	image, renderErr := e.Renderer.Render(rec)

	pos, appendErr := e.Appender.Append(ctx, rec)
	if appendErr != nil {
		if renderErr == nil {
			// The one partial-failure state that must be reported as such.
			return Presentation{
				Kind:  PresentReceipt,
				Image: image,
				Caption: fmt.Sprintf(
					"Ticket issued for %q (code %s), but the payment was NOT logged (%v). "+
						"Please retry the log entry and reconcile manually.",
					rec.Item, rec.ItemCode, appendErr),
			}, appendErr
		}
		return textPresentation("Payment not logged, please retry."), appendErr
	}

	if renderErr != nil {
		return textPresentation(fmt.Sprintf(
			"Payment of %d installment(s) for %q logged at row %d, but the receipt image failed to render (%v).",
			rec.Installments, rec.Item, pos, renderErr)), renderErr
	}

	return Presentation{
		Kind:  PresentReceipt,
		Image: image,
		Caption: fmt.Sprintf("Payment ticket for %q (code %s): %d installment(s), $%s. Logged at row %d.",
			rec.Item, rec.ItemCode, rec.Installments, rec.Amount.StringFixed(2), pos),
	}, nil
}
