package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billing "meterbill/internal/billing/domain"
	"meterbill/internal/eventstream"
	metering "meterbill/internal/metering/domain"
	"meterbill/internal/observability/metrics"
	tariff "meterbill/internal/tariff/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// InvoiceService handles reading intake and invoice use cases.
type InvoiceService struct {
	invoices  billing.Repository
	tariffs   tariff.Repository
	meters    metering.MeterRepository
	readings  metering.ReadingRepository
	publisher eventstream.Publisher
	clock     Clock
	cfg       Config
	logger    *log.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(
	invoices billing.Repository,
	tariffs tariff.Repository,
	meters metering.MeterRepository,
	readings metering.ReadingRepository,
	publisher eventstream.Publisher,
	clock Clock,
	cfg Config,
	logger *log.Logger,
) (*InvoiceService, error) {
	if invoices == nil {
		return nil, errors.New("invoice service: nil invoice repository")
	}
	if tariffs == nil {
		return nil, errors.New("invoice service: nil tariff repository")
	}
	if meters == nil {
		return nil, errors.New("invoice service: nil meter repository")
	}
	if readings == nil {
		return nil, errors.New("invoice service: nil reading repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &InvoiceService{
		invoices:  invoices,
		tariffs:   tariffs,
		meters:    meters,
		readings:  readings,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// RecordReading records a single-register reading against a meter. The
// previous value comes from the meter's latest stored reading, falling back
// to the meter's current dial position for the first reading.
func (s *InvoiceService) RecordReading(ctx context.Context, meterID string, value decimal.Decimal, periodStart, periodEnd time.Time, kind metering.ReadingKind) (*metering.MeterReading, error) {
	meter, err := s.meters.Get(ctx, meterID)
	if err != nil {
		metrics.IncReadingRejected("meter_lookup")
		return nil, err
	}

	previous := meter.CurrentReading
	latest, err := s.readings.Latest(ctx, meterID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		previous = latest.Value
	}

	reading, err := metering.NewReading(meterID, value, previous, periodStart, periodEnd, kind)
	if err != nil {
		metrics.IncReadingRejected("validation")
		return nil, err
	}
	// Reject pairs the meter cannot explain before persisting anything.
	if _, err := metering.DeriveConsumption(reading, meter); err != nil {
		metrics.IncReadingRejected("derivation")
		return nil, err
	}

	if err := meter.Advance(value); err != nil {
		metrics.IncReadingRejected("ceiling")
		return nil, err
	}
	if err := s.readings.Save(ctx, reading); err != nil {
		return nil, err
	}
	if err := s.meters.Save(ctx, meter); err != nil {
		return nil, err
	}
	metrics.IncReadingRecorded(string(meter.Type), metrics.ResultSuccess)
	return reading, nil
}

// RecordDayNightReading records a two-register electricity reading. Previous
// register values come from the meter's latest stored reading, falling back
// to the register positions held on the meter for the first reading.
func (s *InvoiceService) RecordDayNightReading(ctx context.Context, meterID string, dayValue, nightValue decimal.Decimal, periodStart, periodEnd time.Time, kind metering.ReadingKind) (*metering.MeterReading, error) {
	meter, err := s.meters.Get(ctx, meterID)
	if err != nil {
		metrics.IncReadingRejected("meter_lookup")
		return nil, err
	}
	if meter.Type != tariff.MeterTypeElectricity {
		metrics.IncReadingRejected("meter_type")
		return nil, metering.ErrRegistersRequired
	}

	dayPrevious, nightPrevious := meter.DayReading, meter.NightReading
	latest, err := s.readings.Latest(ctx, meterID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.HasRegisters {
		dayPrevious = latest.DayValue
		nightPrevious = latest.NightValue
	}

	reading, err := metering.NewDayNightReading(meterID, dayValue, dayPrevious, nightValue, nightPrevious, periodStart, periodEnd, kind)
	if err != nil {
		metrics.IncReadingRejected("validation")
		return nil, err
	}

	if err := meter.AdvanceRegisters(reading.DayValue, reading.NightValue); err != nil {
		metrics.IncReadingRejected("ceiling")
		return nil, err
	}
	if err := s.readings.Save(ctx, reading); err != nil {
		return nil, err
	}
	if err := s.meters.Save(ctx, meter); err != nil {
		return nil, err
	}
	metrics.IncReadingRecorded(string(meter.Type), metrics.ResultSuccess)
	return reading, nil
}

// GenerateInvoiceInput carries the invoice generation parameters.
type GenerateInvoiceInput struct {
	CustomerID string
	TariffID   uuid.UUID
	ReadingID  uuid.UUID
	VATMode    billing.VATMode

	// UnitCostOverride bypasses tariff pricing when set.
	UnitCostOverride *decimal.Decimal
}

// GenerateInvoice prices an unbilled reading against a tariff and issues the
// invoice. The reading is marked billed in the same operation so it cannot be
// invoiced twice.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, input GenerateInvoiceInput) (*billing.Invoice, error) {
	started := s.clock.Now()

	invoice, err := s.generateInvoice(ctx, input)
	if err != nil {
		metrics.ObserveInvoiceGenerate(metrics.ResultError, s.clock.Now().Sub(started))
		return nil, err
	}
	metrics.ObserveInvoiceGenerate(metrics.ResultSuccess, s.clock.Now().Sub(started))

	s.publishInvoiceIssued(ctx, invoice)
	return invoice, nil
}

func (s *InvoiceService) generateInvoice(ctx context.Context, input GenerateInvoiceInput) (*billing.Invoice, error) {
	trf, err := s.tariffs.Get(ctx, input.TariffID)
	if err != nil {
		return nil, err
	}
	if !trf.Active {
		return nil, tariff.ErrTariffInactive
	}

	reading, err := s.readings.Get(ctx, input.ReadingID)
	if err != nil {
		return nil, err
	}
	if reading.Billed {
		return nil, metering.ErrAlreadyBilled
	}
	if !trf.IsValidAt(reading.PeriodEnd) {
		return nil, tariff.ErrTariffInactive
	}

	meter, err := s.meters.Get(ctx, reading.MeterID)
	if err != nil {
		return nil, err
	}

	consumption, err := s.derive(reading, meter, trf)
	if err != nil {
		return nil, err
	}

	dueDate := reading.PeriodEnd.AddDate(0, 0, s.cfg.DueDays)
	invoice, err := billing.NewInvoice(input.CustomerID, trf, consumption, reading.PeriodStart, reading.PeriodEnd, dueDate, input.VATMode)
	if err != nil {
		return nil, err
	}
	invoice.Reference = s.cfg.InvoicePrefix + "-" + strings.ToUpper(invoice.ID.String()[:8])
	if input.UnitCostOverride != nil {
		if err := invoice.OverrideUnitCost(*input.UnitCostOverride); err != nil {
			return nil, err
		}
		if err := invoice.CalculateTotals(trf.Pricing); err != nil {
			return nil, err
		}
	}

	if err := reading.MarkBilled(); err != nil {
		return nil, err
	}
	if err := s.readings.Save(ctx, reading); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// derive routes to the fuel-specific consumption pipeline. Gas conversion
// uses the tariff's calibration, falling back to the configured defaults
// when the tariff carries none.
func (s *InvoiceService) derive(reading *metering.MeterReading, meter *metering.Meter, trf *tariff.Tariff) (metering.ConsumptionResult, error) {
	if trf.MeterType != tariff.MeterTypeGas {
		return metering.DeriveConsumption(reading, meter)
	}
	cal := s.gasCalibration(trf)
	return metering.DeriveGasConsumption(reading, meter, cal)
}

func (s *InvoiceService) gasCalibration(trf *tariff.Tariff) tariff.GasCalibration {
	if trf.Gas != nil {
		return *trf.Gas
	}
	return tariff.GasCalibration{
		CalorificValue:   decimal.NewFromFloat(s.cfg.Gas.CalorificValue),
		CorrectionFactor: decimal.NewFromFloat(s.cfg.Gas.CorrectionFactor),
	}
}

func (s *InvoiceService) publishInvoiceIssued(ctx context.Context, invoice *billing.Invoice) {
	if s.publisher == nil {
		return
	}
	event := eventstream.InvoiceIssued{
		InvoiceID:   invoice.ID.String(),
		CustomerID:  invoice.CustomerID,
		MeterType:   string(invoice.MeterType),
		PeriodStart: invoice.PeriodStart,
		PeriodEnd:   invoice.PeriodEnd,
		TotalAmount: invoice.TotalAmount.StringFixed(2),
		Currency:    "GBP",
		IssuedAt:    s.clock.Now(),
	}
	if err := s.publisher.PublishInvoiceIssued(ctx, event); err != nil {
		metrics.IncEventPublished("invoice_issued", metrics.ResultError)
		if s.logger != nil {
			s.logger.Printf("publish invoice issued failed: %v", err)
		}
		return
	}
	metrics.IncEventPublished("invoice_issued", metrics.ResultSuccess)
}

// GetInvoice loads an invoice with its status refreshed against today.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.UpdateStatus(s.clock.Now())
	return invoice, nil
}

// ApplyPayment credits a payment amount against an invoice.
func (s *InvoiceService) ApplyPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*billing.Invoice, error) {
	invoice, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.ApplyPayment(amount); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	metrics.IncInvoiceStatusChange(invoice.Status)
	return invoice, nil
}

// CancelInvoice voids an invoice.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID, reason string) (*billing.Invoice, error) {
	invoice, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	metrics.IncInvoiceStatusChange(billing.StatusCancelled)
	return invoice, nil
}

// DisputeInvoice marks an invoice disputed.
func (s *InvoiceService) DisputeInvoice(ctx context.Context, id uuid.UUID, reason string) (*billing.Invoice, error) {
	invoice, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Dispute(reason); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	metrics.IncInvoiceStatusChange(billing.StatusDisputed)
	return invoice, nil
}

// ListCustomerInvoices returns a customer's invoices with statuses refreshed.
func (s *InvoiceService) ListCustomerInvoices(ctx context.Context, customerID string) ([]*billing.Invoice, error) {
	if customerID == "" {
		return nil, billing.ErrEmptyCustomerID
	}
	invoices, err := s.invoices.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, invoice := range invoices {
		invoice.UpdateStatus(now)
	}
	return invoices, nil
}

// SweepOverdue re-evaluates every outstanding invoice against today and
// persists status changes. It returns how many invoices moved to overdue.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	outstanding, err := s.invoices.ListOutstanding(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	moved := 0
	for _, invoice := range outstanding {
		before := invoice.Status
		invoice.UpdateStatus(now)
		if invoice.Status == before {
			continue
		}
		if err := s.invoices.Save(ctx, invoice); err != nil {
			return moved, err
		}
		metrics.IncInvoiceStatusChange(invoice.Status)
		if invoice.Status == billing.StatusOverdue {
			moved++
		}
	}
	return moved, nil
}

// RegisterMeter creates a meter with the configured dial ceiling. The
// day/night and imperial flags only stick on the fuel they apply to.
func (s *InvoiceService) RegisterMeter(ctx context.Context, id string, meterType tariff.MeterType, dayNight, imperial bool, installedAt time.Time) (*metering.Meter, error) {
	meter, err := metering.NewMeter(id, meterType, installedAt)
	if err != nil {
		return nil, err
	}
	meter.MaxReading = decimal.NewFromFloat(s.cfg.MaxReading)
	meter.DayNight = dayNight && meterType == tariff.MeterTypeElectricity
	meter.Imperial = imperial && meterType == tariff.MeterTypeGas
	if err := s.meters.Save(ctx, meter); err != nil {
		return nil, err
	}
	return meter, nil
}

// CreateTariffInput carries the tariff creation parameters. A nil VATRate
// applies the configured default; a GasCalibration makes a gas tariff.
type CreateTariffInput struct {
	Name                string
	Mode                string
	UnitRate            decimal.Decimal // flat/gas rate, day rate, or tier-one rate
	NightRate           decimal.Decimal
	Threshold           decimal.Decimal
	Tier2Rate           decimal.Decimal
	StandingChargePence decimal.Decimal
	VATRate             *decimal.Decimal
	ValidFrom           time.Time
	Gas                 *tariff.GasCalibration
}

// CreateTariff builds and stores a tariff. Day/night tariffs pick up the
// configured estimate split.
func (s *InvoiceService) CreateTariff(ctx context.Context, input CreateTariffInput) (*tariff.Tariff, error) {
	vat := decimal.NewFromFloat(s.cfg.DefaultVAT)
	if input.VATRate != nil {
		vat = *input.VATRate
	}

	var (
		trf *tariff.Tariff
		err error
	)
	switch input.Mode {
	case tariff.ModeFlat:
		if input.Gas != nil {
			trf, err = tariff.NewGasTariff(input.Name, input.UnitRate, input.StandingChargePence, vat, input.ValidFrom, *input.Gas)
		} else {
			trf, err = tariff.NewFlatElectricityTariff(input.Name, input.UnitRate, input.StandingChargePence, vat, input.ValidFrom)
		}
	case tariff.ModeDayNight:
		trf, err = tariff.NewDayNightElectricityTariff(input.Name, input.UnitRate, input.NightRate, input.StandingChargePence, vat, input.ValidFrom)
		if err == nil {
			err = trf.SetFallbackDayShare(decimal.NewFromFloat(s.cfg.DayShare), s.clock.Now())
		}
	case tariff.ModeTiered:
		trf, err = tariff.NewTieredElectricityTariff(input.Name, input.Threshold, input.UnitRate, input.Tier2Rate, input.StandingChargePence, vat, input.ValidFrom)
	default:
		return nil, errors.New("invoice service: unknown pricing mode " + input.Mode)
	}
	if err != nil {
		return nil, err
	}
	if err := s.tariffs.Save(ctx, trf); err != nil {
		return nil, err
	}
	return trf, nil
}

// ListActiveTariffs lists the active tariffs for a fuel.
func (s *InvoiceService) ListActiveTariffs(ctx context.Context, meterType tariff.MeterType) ([]*tariff.Tariff, error) {
	return s.tariffs.ListActive(ctx, meterType)
}
