package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	metering "meterbill/internal/metering/domain"
	tariff "meterbill/internal/tariff/domain"
)

// Invoice lifecycle states. Cancelled and disputed absorb every non-paid
// state; paid absorbs pending, partial and overdue.
const (
	StatusPending   = "pending"
	StatusPartial   = "partial"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
	StatusDisputed  = "disputed"
)

// VATMode selects whether the subtotal is quoted before or including VAT.
type VATMode string

const (
	// VATExclusive adds VAT on top of the subtotal (the default).
	VATExclusive VATMode = "exclusive"
	// VATInclusive treats the subtotal as already containing VAT; the tax is
	// extracted, not added.
	VATInclusive VATMode = "inclusive"
)

var one = decimal.NewFromInt(1)

// InclusiveBillingDays counts the days in [start, end], both ends included.
func InclusiveBillingDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// Invoice is the billing aggregate for one customer and period. All money
// fields are pounds except StandingChargePence (the daily rate). Totals are
// always derived via CalculateTotals, never set directly. The aggregate is
// not internally synchronized: concurrent mutation of one invoice must be
// serialized by the caller.
type Invoice struct {
	ID         uuid.UUID
	Reference  string // human-readable invoice number, e.g. INV-1A2B3C4D
	CustomerID string
	TariffID   uuid.UUID
	MeterType  tariff.MeterType

	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	BillingDays int

	Consumption metering.ConsumptionResult
	PricingMode string
	UnitRate    decimal.Decimal // pence/kWh: flat or day rate, tier-one rate for tiered
	NightRate   decimal.Decimal // pence/kWh, day/night tariffs only

	UnitCost            decimal.Decimal
	StandingChargePence decimal.Decimal // daily rate
	StandingChargeTotal decimal.Decimal
	Subtotal            decimal.Decimal
	VATMode             VATMode
	VATRate             decimal.Decimal
	VATAmount           decimal.Decimal
	NetAmount           decimal.Decimal
	TotalAmount         decimal.Decimal

	AmountPaid decimal.Decimal
	BalanceDue decimal.Decimal
	Status     string

	CancelReason  string
	DisputeReason string

	unitCostOverridden bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInvoice assembles and prices an invoice from consumption and a tariff.
// The invoice starts pending with the full total due.
func NewInvoice(customerID string, trf *tariff.Tariff, consumption metering.ConsumptionResult, periodStart, periodEnd, dueDate time.Time, vatMode VATMode) (*Invoice, error) {
	if customerID == "" {
		return nil, ErrEmptyCustomerID
	}
	if trf == nil || trf.Pricing == nil {
		return nil, ErrNilTariff
	}
	if periodEnd.Before(periodStart) {
		return nil, ErrPeriodOrder
	}
	if consumption.Gas != (trf.MeterType == tariff.MeterTypeGas) {
		return nil, ErrMeterTypeMismatch
	}
	if vatMode == "" {
		vatMode = VATExclusive
	}
	if vatMode != VATExclusive && vatMode != VATInclusive {
		return nil, ErrUnknownVATMode
	}

	now := time.Now().UTC()
	inv := &Invoice{
		ID:                  uuid.New(),
		CustomerID:          customerID,
		TariffID:            trf.ID,
		MeterType:           trf.MeterType,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		DueDate:             dueDate,
		BillingDays:         InclusiveBillingDays(periodStart, periodEnd),
		Consumption:         consumption,
		PricingMode:         trf.Pricing.Mode(),
		StandingChargePence: trf.StandingChargePence,
		VATMode:             vatMode,
		VATRate:             trf.VATRate,
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	switch p := trf.Pricing.(type) {
	case tariff.FlatPricing:
		inv.UnitRate = p.UnitRate
	case tariff.DayNightPricing:
		inv.UnitRate = p.DayRate
		inv.NightRate = p.NightRate
	case tariff.TieredPricing:
		inv.UnitRate = p.Tier1Rate
	}

	if err := inv.CalculateTotals(trf.Pricing); err != nil {
		return nil, err
	}
	return inv, nil
}

// OverrideUnitCost pre-sets the unit cost so CalculateTotals keeps it instead
// of deriving from the tariff. This is the manual adjustment escape hatch.
func (i *Invoice) OverrideUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return ErrNonPositiveAmount
	}
	i.UnitCost = cost
	i.unitCostOverridden = true
	return nil
}

// CalculateTotals derives subtotal, VAT and total from the unit cost and
// standing charge. The standing charge converts pence to pounds once, after
// multiplying by the inclusive day count.
func (i *Invoice) CalculateTotals(pricing tariff.Pricing) error {
	if !i.unitCostOverridden {
		if pricing == nil {
			return ErrNilTariff
		}
		cost, err := pricing.CostFor(i.Consumption.Usage())
		if err != nil {
			return err
		}
		i.UnitCost = cost
	}

	days := decimal.NewFromInt(int64(i.BillingDays))
	i.StandingChargeTotal = tariff.PoundsFromPence(i.StandingChargePence.Mul(days))
	i.Subtotal = i.UnitCost.Add(i.StandingChargeTotal)

	switch i.VATMode {
	case VATInclusive:
		// The subtotal already contains VAT: extract the net, keep the total.
		i.NetAmount = i.Subtotal.Div(one.Add(i.VATRate)).Round(2)
		i.VATAmount = i.Subtotal.Sub(i.NetAmount)
		i.TotalAmount = i.Subtotal
	case VATExclusive:
		i.NetAmount = i.Subtotal
		i.VATAmount = i.Subtotal.Mul(i.VATRate).Round(2)
		i.TotalAmount = i.Subtotal.Add(i.VATAmount)
	default:
		return ErrUnknownVATMode
	}

	i.BalanceDue = i.TotalAmount.Sub(i.AmountPaid)
	if i.BalanceDue.IsNegative() {
		i.BalanceDue = decimal.Zero
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyPayment credits a payment against the invoice and advances the
// status. The balance clamps at zero once paid in full.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	switch i.Status {
	case StatusCancelled:
		return ErrInvoiceCancelled
	case StatusDisputed:
		return ErrInvoiceDisputed
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.BalanceDue = i.TotalAmount.Sub(i.AmountPaid)
	if i.BalanceDue.LessThanOrEqual(decimal.Zero) {
		i.BalanceDue = decimal.Zero
		i.Status = StatusPaid
	} else if i.AmountPaid.IsPositive() {
		i.Status = StatusPartial
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateStatus re-evaluates the status against the balance and due date.
// Cancelled and disputed are sticky; calling twice with no intervening
// payment yields the same status.
func (i *Invoice) UpdateStatus(today time.Time) {
	if i.Status == StatusCancelled || i.Status == StatusDisputed {
		return
	}
	switch {
	case i.BalanceDue.LessThanOrEqual(decimal.Zero):
		i.BalanceDue = decimal.Zero
		i.Status = StatusPaid
	case i.DueDate.Before(today):
		i.Status = StatusOverdue
	case i.AmountPaid.IsPositive():
		i.Status = StatusPartial
	default:
		i.Status = StatusPending
	}
	i.UpdatedAt = time.Now().UTC()
}

// Cancel voids the invoice. Paid invoices cannot be cancelled; cancellation
// is absorbing.
func (i *Invoice) Cancel(reason string) error {
	switch i.Status {
	case StatusPaid:
		return ErrInvoicePaid
	case StatusCancelled:
		return ErrInvoiceCancelled
	case StatusDisputed:
		return ErrInvoiceDisputed
	}
	i.Status = StatusCancelled
	i.CancelReason = reason
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Dispute marks the invoice disputed. Paid invoices cannot be disputed;
// dispute is absorbing.
func (i *Invoice) Dispute(reason string) error {
	switch i.Status {
	case StatusPaid:
		return ErrInvoicePaid
	case StatusCancelled:
		return ErrInvoiceCancelled
	case StatusDisputed:
		return ErrInvoiceDisputed
	}
	i.Status = StatusDisputed
	i.DisputeReason = reason
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a detached copy.
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	out := *i
	return &out
}
