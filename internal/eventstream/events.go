package eventstream

import (
	"context"
	"time"
)

// InvoiceIssued is emitted when an invoice is generated. Amounts travel as
// decimal strings so consumers never parse binary floats.
type InvoiceIssued struct {
	InvoiceID   string    `json:"invoice_id"`
	CustomerID  string    `json:"customer_id"`
	MeterType   string    `json:"meter_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	IssuedAt    time.Time `json:"issued_at"`
}

// PaymentRecorded is emitted when a payment is recorded against an invoice
// or a customer account.
type PaymentRecorded struct {
	PaymentID  string    `json:"payment_id"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
	CustomerID string    `json:"customer_id"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Publisher emits billing events. Publishing is best effort: a failed emit
// must never fail the billing operation that produced it.
type Publisher interface {
	PublishInvoiceIssued(ctx context.Context, event InvoiceIssued) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecorded) error
}
