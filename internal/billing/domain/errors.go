package billing

import "errors"

var (
	// ErrEmptyCustomerID is returned when a customer id is empty.
	ErrEmptyCustomerID = errors.New("billing: empty customer id")
	// ErrPeriodOrder is returned when the billing period end precedes the start.
	ErrPeriodOrder = errors.New("billing: period end before start")
	// ErrNonPositiveAmount is returned when a payment amount is zero or negative.
	ErrNonPositiveAmount = errors.New("billing: amount must be positive")
	// ErrInvoiceNotFound is returned when a referenced invoice does not exist.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrInvoiceCancelled is returned when mutating a cancelled invoice.
	ErrInvoiceCancelled = errors.New("billing: invoice cancelled")
	// ErrInvoiceDisputed is returned when mutating a disputed invoice.
	ErrInvoiceDisputed = errors.New("billing: invoice disputed")
	// ErrInvoicePaid is returned when cancelling or disputing a paid invoice.
	ErrInvoicePaid = errors.New("billing: invoice already paid")
	// ErrUnknownVATMode is returned for an unrecognised VAT mode.
	ErrUnknownVATMode = errors.New("billing: unknown vat mode")
	// ErrNilInvoice is returned when saving a nil invoice.
	ErrNilInvoice = errors.New("billing: nil invoice")
	// ErrNilTariff is returned when generating an invoice without a tariff.
	ErrNilTariff = errors.New("billing: nil tariff")
	// ErrMeterTypeMismatch is returned when consumption and tariff fuels differ.
	ErrMeterTypeMismatch = errors.New("billing: consumption fuel does not match tariff")
)
