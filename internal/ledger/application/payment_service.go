package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billing "meterbill/internal/billing/domain"
	"meterbill/internal/eventstream"
	ledger "meterbill/internal/ledger/domain"
	"meterbill/internal/observability/metrics"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PaymentService handles payment and account use cases. A payment carrying
// an invoice id settles that invoice; a payment without one credits the
// customer account balance.
type PaymentService struct {
	payments  ledger.PaymentRepository
	accounts  ledger.AccountRepository
	invoices  billing.Repository
	publisher eventstream.Publisher
	clock     Clock
	logger    *log.Logger
}

// NewPaymentService constructs the service.
func NewPaymentService(
	payments ledger.PaymentRepository,
	accounts ledger.AccountRepository,
	invoices billing.Repository,
	publisher eventstream.Publisher,
	clock Clock,
	logger *log.Logger,
) (*PaymentService, error) {
	if payments == nil {
		return nil, errors.New("payment service: nil payment repository")
	}
	if accounts == nil {
		return nil, errors.New("payment service: nil account repository")
	}
	if invoices == nil {
		return nil, errors.New("payment service: nil invoice repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &PaymentService{
		payments:  payments,
		accounts:  accounts,
		invoices:  invoices,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}, nil
}

// RecordPaymentInput carries the payment parameters.
type RecordPaymentInput struct {
	CustomerID string
	InvoiceID  *uuid.UUID
	Amount     decimal.Decimal
	Method     ledger.PaymentMethod
}

// RecordPayment records a completed payment and routes it to the invoice or
// the customer account.
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*ledger.Payment, error) {
	payment, err := ledger.NewPayment(input.CustomerID, input.InvoiceID, input.Amount, input.Method, s.clock.Now())
	if err != nil {
		metrics.IncPaymentRecorded(string(input.Method), metrics.ResultError)
		return nil, err
	}

	if input.InvoiceID != nil {
		if err := s.settleInvoice(ctx, *input.InvoiceID, input.CustomerID, input.Amount); err != nil {
			metrics.IncPaymentRecorded(string(input.Method), metrics.ResultError)
			return nil, err
		}
	} else {
		if err := s.creditAccount(ctx, input.CustomerID, input.Amount); err != nil {
			metrics.IncPaymentRecorded(string(input.Method), metrics.ResultError)
			return nil, err
		}
	}

	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, err
	}
	metrics.IncPaymentRecorded(string(input.Method), metrics.ResultSuccess)

	s.publishPaymentRecorded(ctx, payment)
	return payment, nil
}

func (s *PaymentService) settleInvoice(ctx context.Context, invoiceID uuid.UUID, customerID string, amount decimal.Decimal) error {
	invoice, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.CustomerID != customerID {
		return billing.ErrInvoiceNotFound
	}
	if err := invoice.ApplyPayment(amount); err != nil {
		return err
	}
	return s.invoices.Save(ctx, invoice)
}

func (s *PaymentService) creditAccount(ctx context.Context, customerID string, amount decimal.Decimal) error {
	account, err := s.accounts.Get(ctx, customerID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		account, err = ledger.NewCustomerAccount(customerID)
	}
	if err != nil {
		return err
	}
	if err := account.Credit(amount, s.clock.Now()); err != nil {
		return err
	}
	return s.accounts.Save(ctx, account)
}

func (s *PaymentService) publishPaymentRecorded(ctx context.Context, payment *ledger.Payment) {
	if s.publisher == nil {
		return
	}
	event := eventstream.PaymentRecorded{
		PaymentID:  payment.ID.String(),
		CustomerID: payment.CustomerID,
		Amount:     payment.Amount.StringFixed(2),
		Method:     string(payment.Method),
		RecordedAt: payment.Date,
	}
	if payment.InvoiceID != nil {
		event.InvoiceID = payment.InvoiceID.String()
	}
	if err := s.publisher.PublishPaymentRecorded(ctx, event); err != nil {
		metrics.IncEventPublished("payment_recorded", metrics.ResultError)
		if s.logger != nil {
			s.logger.Printf("publish payment recorded failed: %v", err)
		}
		return
	}
	metrics.IncEventPublished("payment_recorded", metrics.ResultSuccess)
}

// RefundPayment marks a payment refunded with an audit note. The ledger is
// not reversed; issuing a compensating charge is a separate operation.
func (s *PaymentService) RefundPayment(ctx context.Context, id uuid.UUID, reason string) (*ledger.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkRefunded(reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// FailPayment marks a payment failed with an audit note, typically after a
// bounced cheque or a reversed direct debit.
func (s *PaymentService) FailPayment(ctx context.Context, id uuid.UUID, reason string) (*ledger.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkFailed(reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ChargeAccount debits the customer account, typically for an issued invoice
// total. The balance may go negative.
func (s *PaymentService) ChargeAccount(ctx context.Context, customerID string, amount decimal.Decimal) (*ledger.CustomerAccount, error) {
	account, err := s.accounts.Get(ctx, customerID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		account, err = ledger.NewCustomerAccount(customerID)
	}
	if err != nil {
		return nil, err
	}
	if err := account.Debit(amount, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CustomerDebt reports whether the customer owes money and how much. A
// missing account means no debt.
func (s *PaymentService) CustomerDebt(ctx context.Context, customerID string) (bool, decimal.Decimal, error) {
	account, err := s.accounts.Get(ctx, customerID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return false, decimal.Zero, nil
	}
	if err != nil {
		return false, decimal.Zero, err
	}
	return account.HasDebt(), account.DebtAmount(), nil
}

// ListCustomerPayments returns a customer's payment history.
func (s *PaymentService) ListCustomerPayments(ctx context.Context, customerID string) ([]*ledger.Payment, error) {
	if customerID == "" {
		return nil, ledger.ErrEmptyCustomerID
	}
	return s.payments.ListByCustomer(ctx, customerID)
}
