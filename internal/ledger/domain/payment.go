package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a recorded payment. A completed
// payment is immutable except for the transitions to refunded or failed.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	MethodDirectDebit  PaymentMethod = "direct_debit"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
	MethodCash         PaymentMethod = "cash"
)

// Payment records money received. InvoiceID is nil for account-level
// payments that credit the customer balance without targeting an invoice.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  *uuid.UUID
	CustomerID string
	Amount     decimal.Decimal
	Date       time.Time
	Method     PaymentMethod
	Status     PaymentStatus
	Notes      []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPayment records a completed payment.
func NewPayment(customerID string, invoiceID *uuid.UUID, amount decimal.Decimal, method PaymentMethod, at time.Time) (*Payment, error) {
	if customerID == "" {
		return nil, ErrEmptyCustomerID
	}
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	return &Payment{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		CustomerID: customerID,
		Amount:     amount,
		Date:       at,
		Method:     method,
		Status:     PaymentCompleted,
		CreatedAt:  at,
		UpdatedAt:  at,
	}, nil
}

// MarkRefunded transitions a completed payment to refunded with an audit
// note. It does not reverse ledger effects; reversal is a separate explicit
// operation owned by the caller.
func (p *Payment) MarkRefunded(note string, at time.Time) error {
	if p.Status != PaymentCompleted {
		return ErrPaymentNotCompleted
	}
	p.Status = PaymentRefunded
	p.appendNote("refunded: "+note, at)
	return nil
}

// MarkFailed transitions a completed payment to failed with an audit note,
// without reversing ledger effects.
func (p *Payment) MarkFailed(note string, at time.Time) error {
	if p.Status != PaymentCompleted {
		return ErrPaymentNotCompleted
	}
	p.Status = PaymentFailed
	p.appendNote("failed: "+note, at)
	return nil
}

func (p *Payment) appendNote(note string, at time.Time) {
	p.Notes = append(p.Notes, note)
	p.UpdatedAt = at
}

// Clone returns a detached copy.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	out := *p
	if p.InvoiceID != nil {
		id := *p.InvoiceID
		out.InvoiceID = &id
	}
	out.Notes = append([]string(nil), p.Notes...)
	return &out
}
