package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	metering "meterbill/internal/metering/domain"
	tariff "meterbill/internal/tariff/domain"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC) // 33 days inclusive
	dueDate     = time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func economySevenTariff(t *testing.T) *tariff.Tariff {
	t.Helper()
	trf, err := tariff.NewDayNightElectricityTariff("Economy 7",
		dec(t, "19.349"), dec(t, "19.349"), dec(t, "22.63"), dec(t, "0.05"), periodStart)
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}
	return trf
}

func economySevenConsumption(t *testing.T) metering.ConsumptionResult {
	t.Helper()
	return metering.ConsumptionResult{
		Units:        dec(t, "282.262"),
		DayUnits:     dec(t, "236.212"),
		NightUnits:   dec(t, "46.050"),
		HasRegisters: true,
		Kind:         metering.ReadingSmart,
	}
}

func TestInclusiveBillingDays(t *testing.T) {
	if got := InclusiveBillingDays(periodStart, periodEnd); got != 33 {
		t.Fatalf("expected 33 days, got %d", got)
	}
	if got := InclusiveBillingDays(periodStart, periodStart); got != 1 {
		t.Fatalf("expected 1 day for same-day period, got %d", got)
	}
}

func TestEconomySevenInvoiceTotals(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"unit cost", inv.UnitCost, "54.61"},
		{"standing charge", inv.StandingChargeTotal, "7.47"},
		{"subtotal", inv.Subtotal, "62.08"},
		{"vat", inv.VATAmount, "3.10"},
		{"total", inv.TotalAmount, "65.18"},
		{"balance due", inv.BalanceDue, "65.18"},
	}
	for _, c := range checks {
		if c.got.StringFixed(2) != c.want {
			t.Fatalf("%s: expected %s, got %s", c.name, c.want, c.got.StringFixed(2))
		}
	}
	if inv.Status != StatusPending {
		t.Fatalf("expected pending, got %s", inv.Status)
	}
	if inv.BillingDays != 33 {
		t.Fatalf("expected 33 billing days, got %d", inv.BillingDays)
	}
}

func TestVATExclusiveRoundTrip(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if !inv.TotalAmount.Sub(inv.VATAmount).Equal(inv.Subtotal) {
		t.Fatalf("total - vat must equal subtotal: %s - %s != %s", inv.TotalAmount, inv.VATAmount, inv.Subtotal)
	}
	if !inv.NetAmount.Equal(inv.Subtotal) {
		t.Fatal("net must equal subtotal in exclusive mode")
	}
}

func TestVATInclusiveRoundTrip(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATInclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if !inv.TotalAmount.Equal(inv.Subtotal) {
		t.Fatal("total must equal subtotal in inclusive mode")
	}
	if !inv.NetAmount.Add(inv.VATAmount).Equal(inv.Subtotal) {
		t.Fatalf("net + vat must equal subtotal: %s + %s != %s", inv.NetAmount, inv.VATAmount, inv.Subtotal)
	}
	// 62.08 / 1.05 = 59.1238... -> 59.12 net, 2.96 vat.
	if inv.NetAmount.StringFixed(2) != "59.12" {
		t.Fatalf("expected net 59.12, got %s", inv.NetAmount.StringFixed(2))
	}
	if inv.VATAmount.StringFixed(2) != "2.96" {
		t.Fatalf("expected vat 2.96, got %s", inv.VATAmount.StringFixed(2))
	}
}

func TestUnitCostOverrideSurvivesRecalculation(t *testing.T) {
	trf := economySevenTariff(t)
	inv, err := NewInvoice("CUST-100", trf, economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := inv.OverrideUnitCost(dec(t, "40.00")); err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := inv.CalculateTotals(trf.Pricing); err != nil {
		t.Fatalf("calculate totals: %v", err)
	}
	if inv.UnitCost.StringFixed(2) != "40.00" {
		t.Fatalf("expected overridden unit cost 40.00, got %s", inv.UnitCost.StringFixed(2))
	}
	// 40.00 + 7.47 = 47.47; vat 2.3735 -> 2.37; total 49.84.
	if inv.TotalAmount.StringFixed(2) != "49.84" {
		t.Fatalf("expected total 49.84, got %s", inv.TotalAmount.StringFixed(2))
	}
}

func TestApplyPaymentSplitAndSingleBothReachPaid(t *testing.T) {
	for _, split := range []bool{false, true} {
		inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
		if err != nil {
			t.Fatalf("new invoice: %v", err)
		}
		if split {
			if err := inv.ApplyPayment(dec(t, "30.00")); err != nil {
				t.Fatalf("apply payment: %v", err)
			}
			if inv.Status != StatusPartial {
				t.Fatalf("expected partial after first payment, got %s", inv.Status)
			}
			if err := inv.ApplyPayment(dec(t, "35.18")); err != nil {
				t.Fatalf("apply payment: %v", err)
			}
		} else {
			if err := inv.ApplyPayment(dec(t, "65.18")); err != nil {
				t.Fatalf("apply payment: %v", err)
			}
		}
		if inv.Status != StatusPaid {
			t.Fatalf("expected paid, got %s", inv.Status)
		}
		if !inv.BalanceDue.IsZero() {
			t.Fatalf("expected zero balance, got %s", inv.BalanceDue)
		}
	}
}

func TestOverpaymentClampsBalanceAtZero(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := inv.ApplyPayment(dec(t, "100.00")); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if !inv.BalanceDue.IsZero() {
		t.Fatalf("expected balance clamped at zero, got %s", inv.BalanceDue)
	}
	if inv.Status != StatusPaid {
		t.Fatalf("expected paid, got %s", inv.Status)
	}
}

func TestApplyPaymentValidation(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := inv.ApplyPayment(decimal.Zero); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
	if err := inv.Cancel("duplicate bill"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := inv.ApplyPayment(dec(t, "10.00")); !errors.Is(err, ErrInvoiceCancelled) {
		t.Fatalf("expected ErrInvoiceCancelled, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}

	beforeDue := dueDate.AddDate(0, 0, -1)
	afterDue := dueDate.AddDate(0, 0, 1)

	inv.UpdateStatus(beforeDue)
	if inv.Status != StatusPending {
		t.Fatalf("expected pending before due date, got %s", inv.Status)
	}

	inv.UpdateStatus(afterDue)
	if inv.Status != StatusOverdue {
		t.Fatalf("expected overdue after due date, got %s", inv.Status)
	}

	if err := inv.ApplyPayment(dec(t, "5.00")); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	inv.UpdateStatus(beforeDue)
	if inv.Status != StatusPartial {
		t.Fatalf("expected partial with payment before due date, got %s", inv.Status)
	}

	if err := inv.ApplyPayment(inv.BalanceDue); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	inv.UpdateStatus(afterDue)
	if inv.Status != StatusPaid {
		t.Fatalf("expected paid to survive update, got %s", inv.Status)
	}
}

func TestUpdateStatusIdempotent(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	today := dueDate.AddDate(0, 0, 3)
	inv.UpdateStatus(today)
	first := inv.Status
	inv.UpdateStatus(today)
	if inv.Status != first {
		t.Fatalf("expected stable status %s, got %s", first, inv.Status)
	}
}

func TestCancelledIsSticky(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := inv.Cancel("moved out"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	inv.UpdateStatus(dueDate.AddDate(0, 1, 0))
	if inv.Status != StatusCancelled {
		t.Fatalf("expected cancelled to stick, got %s", inv.Status)
	}
	if err := inv.Cancel("again"); !errors.Is(err, ErrInvoiceCancelled) {
		t.Fatalf("expected ErrInvoiceCancelled, got %v", err)
	}
}

func TestCannotCancelOrDisputePaidInvoice(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := inv.ApplyPayment(inv.TotalAmount); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if err := inv.Cancel("late cancel"); !errors.Is(err, ErrInvoicePaid) {
		t.Fatalf("expected ErrInvoicePaid, got %v", err)
	}
	if err := inv.Dispute("late dispute"); !errors.Is(err, ErrInvoicePaid) {
		t.Fatalf("expected ErrInvoicePaid, got %v", err)
	}
}

func TestDisputeAbsorbsFromOverdue(t *testing.T) {
	inv, err := NewInvoice("CUST-100", economySevenTariff(t), economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	inv.UpdateStatus(dueDate.AddDate(0, 0, 10))
	if inv.Status != StatusOverdue {
		t.Fatalf("expected overdue, got %s", inv.Status)
	}
	if err := inv.Dispute("unit rate contested"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	inv.UpdateStatus(dueDate.AddDate(0, 0, 20))
	if inv.Status != StatusDisputed {
		t.Fatalf("expected disputed to stick, got %s", inv.Status)
	}
}

func TestMeterTypeMismatchRejected(t *testing.T) {
	gas, err := tariff.NewGasTariff("Gas Standard", dec(t, "7.32"), dec(t, "27.47"), dec(t, "0.05"), periodStart, tariff.GasCalibration{
		CalorificValue:   tariff.DefaultCalorificValue,
		CorrectionFactor: tariff.DefaultCorrectionFactor,
	})
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}
	if _, err := NewInvoice("CUST-100", gas, economySevenConsumption(t), periodStart, periodEnd, dueDate, VATExclusive); !errors.Is(err, ErrMeterTypeMismatch) {
		t.Fatalf("expected ErrMeterTypeMismatch, got %v", err)
	}
}

func TestGasInvoiceKeepsConversionAuditTrail(t *testing.T) {
	gas, err := tariff.NewGasTariff("Gas Standard", dec(t, "7.32"), dec(t, "27.47"), dec(t, "0.05"), periodStart, tariff.GasCalibration{
		CalorificValue:   tariff.DefaultCalorificValue,
		CorrectionFactor: tariff.DefaultCorrectionFactor,
	})
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}
	consumption := metering.ConsumptionResult{
		Units:           dec(t, "1143.43"),
		Gas:             true,
		MeterUnits:      dec(t, "36.1"),
		CubicMeters:     dec(t, "102.163"),
		CorrectedVolume: dec(t, "104.47597032"),
		KWh:             dec(t, "1143.43"),
		Kind:            metering.ReadingActual,
	}
	inv, err := NewInvoice("CUST-200", gas, consumption, periodStart, periodEnd, dueDate, VATExclusive)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if !inv.Consumption.MeterUnits.Equal(dec(t, "36.1")) {
		t.Fatal("dial units must be retained on the invoice")
	}
	if inv.Consumption.CorrectedVolume.StringFixed(2) != "104.48" {
		t.Fatal("corrected volume must be retained on the invoice")
	}
	// 1143.431... kWh * 7.32p = 8369.918... pence -> 83.70.
	if inv.UnitCost.StringFixed(2) != "83.70" {
		t.Fatalf("expected gas unit cost 83.70, got %s", inv.UnitCost.StringFixed(2))
	}
}
