package metering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReadingKind classifies how a reading was obtained.
type ReadingKind string

const (
	ReadingActual    ReadingKind = "actual"
	ReadingEstimated ReadingKind = "estimated"
	ReadingSmart     ReadingKind = "smart"
	ReadingOpening   ReadingKind = "opening"
	ReadingFinal     ReadingKind = "final"
)

// MeterReading is an immutable record of a dial observation paired with the
// previous observation for the same meter. Day/night electricity readings
// carry both registers; HasRegisters reports which shape applies.
type MeterReading struct {
	ID           uuid.UUID
	MeterID      string
	Value        decimal.Decimal
	Previous     decimal.Decimal
	DayValue     decimal.Decimal
	DayPrevious  decimal.Decimal
	NightValue   decimal.Decimal
	NightPrev    decimal.Decimal
	HasRegisters bool
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Kind         ReadingKind
	Billed       bool
	RecordedAt   time.Time
}

func validatePeriod(start, end time.Time) error {
	if end.Before(start) {
		return ErrPeriodOrder
	}
	return nil
}

// NewReading records a single-register reading pair.
func NewReading(meterID string, value, previous decimal.Decimal, periodStart, periodEnd time.Time, kind ReadingKind) (*MeterReading, error) {
	if meterID == "" {
		return nil, ErrEmptyMeterID
	}
	if value.IsNegative() || previous.IsNegative() {
		return nil, ErrNegativeReading
	}
	if err := validatePeriod(periodStart, periodEnd); err != nil {
		return nil, err
	}
	return &MeterReading{
		ID:          uuid.New(),
		MeterID:     meterID,
		Value:       value,
		Previous:    previous,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Kind:        kind,
		RecordedAt:  time.Now().UTC(),
	}, nil
}

// NewDayNightReading records a two-register electricity reading pair.
func NewDayNightReading(meterID string, dayValue, dayPrevious, nightValue, nightPrevious decimal.Decimal, periodStart, periodEnd time.Time, kind ReadingKind) (*MeterReading, error) {
	if meterID == "" {
		return nil, ErrEmptyMeterID
	}
	if dayValue.IsNegative() || dayPrevious.IsNegative() || nightValue.IsNegative() || nightPrevious.IsNegative() {
		return nil, ErrNegativeReading
	}
	if err := validatePeriod(periodStart, periodEnd); err != nil {
		return nil, err
	}
	return &MeterReading{
		ID:           uuid.New(),
		MeterID:      meterID,
		Value:        dayValue.Add(nightValue),
		Previous:     dayPrevious.Add(nightPrevious),
		DayValue:     dayValue,
		DayPrevious:  dayPrevious,
		NightValue:   nightValue,
		NightPrev:    nightPrevious,
		HasRegisters: true,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		Kind:         kind,
		RecordedAt:   time.Now().UTC(),
	}, nil
}

// MarkBilled flags the reading as consumed by an invoice run. A reading is
// billed at most once.
func (r *MeterReading) MarkBilled() error {
	if r.Billed {
		return ErrAlreadyBilled
	}
	r.Billed = true
	return nil
}

// Clone returns a detached copy.
func (r *MeterReading) Clone() *MeterReading {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
