package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	billing "meterbill/internal/billing/domain"
	metering "meterbill/internal/metering/domain"
	tariff "meterbill/internal/tariff/domain"
)

const invoiceColumns = `
	id, reference, customer_id, tariff_id, meter_type, period_start, period_end, due_date, billing_days,
	units, opening_reading, closing_reading, day_units, night_units, has_registers, reading_kind,
	gas, meter_units, cubic_meters, corrected_volume, kwh,
	pricing_mode, unit_rate, night_rate, unit_cost,
	standing_charge_pence, standing_charge_total, subtotal,
	vat_mode, vat_rate, vat_amount, net_amount, total_amount,
	amount_paid, balance_due, status, cancel_reason, dispute_reason,
	created_at, updated_at`

// InvoiceRepository persists invoices. The consumption audit trail flattens
// into columns so a stored invoice reproduces its full calculation.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get fetches an invoice by id.
func (r *InvoiceRepository) Get(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+invoiceColumns+`
FROM invoices
WHERE id = $1
LIMIT 1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

// Save upserts an invoice.
func (r *InvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return billing.ErrNilInvoice
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (
	id, reference, customer_id, tariff_id, meter_type, period_start, period_end, due_date, billing_days,
	units, opening_reading, closing_reading, day_units, night_units, has_registers, reading_kind,
	gas, meter_units, cubic_meters, corrected_volume, kwh,
	pricing_mode, unit_rate, night_rate, unit_cost,
	standing_charge_pence, standing_charge_total, subtotal,
	vat_mode, vat_rate, vat_amount, net_amount, total_amount,
	amount_paid, balance_due, status, cancel_reason, dispute_reason,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
	$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39,$40
)
ON CONFLICT (id) DO UPDATE SET
	amount_paid = EXCLUDED.amount_paid,
	balance_due = EXCLUDED.balance_due,
	status = EXCLUDED.status,
	cancel_reason = EXCLUDED.cancel_reason,
	dispute_reason = EXCLUDED.dispute_reason,
	unit_cost = EXCLUDED.unit_cost,
	subtotal = EXCLUDED.subtotal,
	vat_amount = EXCLUDED.vat_amount,
	net_amount = EXCLUDED.net_amount,
	total_amount = EXCLUDED.total_amount,
	updated_at = EXCLUDED.updated_at`,
		inv.ID, inv.Reference, inv.CustomerID, inv.TariffID, inv.MeterType, inv.PeriodStart, inv.PeriodEnd, inv.DueDate, inv.BillingDays,
		inv.Consumption.Units, inv.Consumption.Opening, inv.Consumption.Closing,
		inv.Consumption.DayUnits, inv.Consumption.NightUnits, inv.Consumption.HasRegisters, inv.Consumption.Kind,
		inv.Consumption.Gas, inv.Consumption.MeterUnits, inv.Consumption.CubicMeters,
		inv.Consumption.CorrectedVolume, inv.Consumption.KWh,
		inv.PricingMode, inv.UnitRate, inv.NightRate, inv.UnitCost,
		inv.StandingChargePence, inv.StandingChargeTotal, inv.Subtotal,
		inv.VATMode, inv.VATRate, inv.VATAmount, inv.NetAmount, inv.TotalAmount,
		inv.AmountPaid, inv.BalanceDue, inv.Status, inv.CancelReason, inv.DisputeReason,
		inv.CreatedAt, inv.UpdatedAt,
	)
	return err
}

// ListByCustomer lists a customer's invoices, newest period first.
func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID string) ([]*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	return r.list(ctx, `
SELECT`+invoiceColumns+`
FROM invoices
WHERE customer_id = $1
ORDER BY period_end DESC`, customerID)
}

// ListOutstanding lists invoices that still carry a balance.
func (r *InvoiceRepository) ListOutstanding(ctx context.Context) ([]*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	return r.list(ctx, `
SELECT`+invoiceColumns+`
FROM invoices
WHERE status IN ('pending', 'partial', 'overdue')
ORDER BY due_date ASC`)
}

func (r *InvoiceRepository) list(ctx context.Context, query string, args ...any) ([]*billing.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			result = append(result, inv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var (
		inv           billing.Invoice
		meterType     string
		readingKind   string
		vatMode       string
		cancelReason  sql.NullString
		disputeReason sql.NullString
	)
	err := row.Scan(
		&inv.ID,
		&inv.Reference,
		&inv.CustomerID,
		&inv.TariffID,
		&meterType,
		&inv.PeriodStart,
		&inv.PeriodEnd,
		&inv.DueDate,
		&inv.BillingDays,
		&inv.Consumption.Units,
		&inv.Consumption.Opening,
		&inv.Consumption.Closing,
		&inv.Consumption.DayUnits,
		&inv.Consumption.NightUnits,
		&inv.Consumption.HasRegisters,
		&readingKind,
		&inv.Consumption.Gas,
		&inv.Consumption.MeterUnits,
		&inv.Consumption.CubicMeters,
		&inv.Consumption.CorrectedVolume,
		&inv.Consumption.KWh,
		&inv.PricingMode,
		&inv.UnitRate,
		&inv.NightRate,
		&inv.UnitCost,
		&inv.StandingChargePence,
		&inv.StandingChargeTotal,
		&inv.Subtotal,
		&vatMode,
		&inv.VATRate,
		&inv.VATAmount,
		&inv.NetAmount,
		&inv.TotalAmount,
		&inv.AmountPaid,
		&inv.BalanceDue,
		&inv.Status,
		&cancelReason,
		&disputeReason,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv.MeterType = tariff.MeterType(meterType)
	inv.Consumption.Kind = metering.ReadingKind(readingKind)
	inv.VATMode = billing.VATMode(vatMode)
	if cancelReason.Valid {
		inv.CancelReason = cancelReason.String
	}
	if disputeReason.Valid {
		inv.DisputeReason = disputeReason.String
	}
	inv.PeriodStart = inv.PeriodStart.UTC()
	inv.PeriodEnd = inv.PeriodEnd.UTC()
	inv.DueDate = inv.DueDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}
