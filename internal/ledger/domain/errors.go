package ledger

import "errors"

var (
	// ErrEmptyCustomerID is returned when a customer id is empty.
	ErrEmptyCustomerID = errors.New("ledger: empty customer id")
	// ErrNonPositiveAmount is returned when a payment or credit amount is zero
	// or negative.
	ErrNonPositiveAmount = errors.New("ledger: amount must be positive")
	// ErrPaymentNotFound is returned when a referenced payment does not exist.
	ErrPaymentNotFound = errors.New("ledger: payment not found")
	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrPaymentNotCompleted is returned when refunding or failing a payment
	// that is not in the completed state.
	ErrPaymentNotCompleted = errors.New("ledger: payment not completed")
	// ErrNilPayment is returned when saving a nil payment.
	ErrNilPayment = errors.New("ledger: nil payment")
	// ErrNilAccount is returned when saving a nil account.
	ErrNilAccount = errors.New("ledger: nil account")
)
