package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var when = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func TestNewPaymentValidation(t *testing.T) {
	if _, err := NewPayment("", nil, dec(t, "10"), MethodCard, when); !errors.Is(err, ErrEmptyCustomerID) {
		t.Fatalf("expected ErrEmptyCustomerID, got %v", err)
	}
	if _, err := NewPayment("CUST-1", nil, decimal.Zero, MethodCard, when); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount for zero, got %v", err)
	}
	if _, err := NewPayment("CUST-1", nil, dec(t, "-5"), MethodCard, when); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount for negative, got %v", err)
	}
}

func TestMarkRefundedAppendsAuditNote(t *testing.T) {
	p, err := NewPayment("CUST-1", nil, dec(t, "25.00"), MethodDirectDebit, when)
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	if err := p.MarkRefunded("duplicate direct debit", when.Add(time.Hour)); err != nil {
		t.Fatalf("mark refunded: %v", err)
	}
	if p.Status != PaymentRefunded {
		t.Fatalf("expected refunded, got %s", p.Status)
	}
	if len(p.Notes) != 1 || p.Notes[0] != "refunded: duplicate direct debit" {
		t.Fatalf("expected audit note, got %v", p.Notes)
	}
	// Refunded is terminal for further marking.
	if err := p.MarkFailed("too late", when.Add(2*time.Hour)); !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
}

func TestMarkFailed(t *testing.T) {
	p, err := NewPayment("CUST-1", nil, dec(t, "25.00"), MethodCheque, when)
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	if err := p.MarkFailed("cheque bounced", when.Add(time.Hour)); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if p.Status != PaymentFailed {
		t.Fatalf("expected failed, got %s", p.Status)
	}
}

func TestAccountDebtQueries(t *testing.T) {
	acc, err := NewCustomerAccount("CUST-1")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if acc.HasDebt() {
		t.Fatal("fresh account must not be in debt")
	}
	if !acc.DebtAmount().IsZero() {
		t.Fatalf("expected zero debt, got %s", acc.DebtAmount())
	}

	if err := acc.Debit(dec(t, "65.18"), when); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !acc.HasDebt() {
		t.Fatal("expected debt after debit")
	}
	if acc.DebtAmount().StringFixed(2) != "65.18" {
		t.Fatalf("expected debt 65.18, got %s", acc.DebtAmount().StringFixed(2))
	}

	if err := acc.Credit(dec(t, "100.00"), when); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if acc.HasDebt() {
		t.Fatal("expected credit balance after overpayment")
	}
	if acc.Balance.StringFixed(2) != "34.82" {
		t.Fatalf("expected balance 34.82, got %s", acc.Balance.StringFixed(2))
	}
}

func TestAccountRejectsNonPositiveAmounts(t *testing.T) {
	acc, err := NewCustomerAccount("CUST-1")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := acc.Credit(decimal.Zero, when); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
	if err := acc.Debit(dec(t, "-1"), when); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
}
