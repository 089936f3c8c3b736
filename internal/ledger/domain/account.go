package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAccount is the running balance for one customer. A negative
// balance is debt owed by the customer; a positive balance is credit held
// against future bills.
type CustomerAccount struct {
	CustomerID string
	Balance    decimal.Decimal
	UpdatedAt  time.Time
}

// NewCustomerAccount opens an account with a zero balance.
func NewCustomerAccount(customerID string) (*CustomerAccount, error) {
	if customerID == "" {
		return nil, ErrEmptyCustomerID
	}
	return &CustomerAccount{CustomerID: customerID}, nil
}

// Credit adds funds to the account.
func (a *CustomerAccount) Credit(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = at
	return nil
}

// Debit charges the account. The balance may go negative: that is debt.
func (a *CustomerAccount) Debit(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = at
	return nil
}

// HasDebt reports whether the customer owes money.
func (a *CustomerAccount) HasDebt() bool {
	return a.Balance.IsNegative()
}

// DebtAmount returns how much the customer owes, or zero when in credit.
func (a *CustomerAccount) DebtAmount() decimal.Decimal {
	if a.Balance.IsNegative() {
		return a.Balance.Neg()
	}
	return decimal.Zero
}

// Clone returns a detached copy.
func (a *CustomerAccount) Clone() *CustomerAccount {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}
