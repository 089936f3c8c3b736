package metering

import (
	"time"

	"github.com/shopspring/decimal"

	tariff "meterbill/internal/tariff/domain"
)

// DefaultMaxReading is the rollover ceiling of a standard five-digit dial.
var DefaultMaxReading = decimal.NewFromFloat(99999.99)

// Meter is a physical supply meter. Electricity meters may carry separate
// day/night registers; gas meters may dial in imperial units (100 ft3).
type Meter struct {
	ID             string
	Type           tariff.MeterType
	CurrentReading decimal.Decimal
	DayReading     decimal.Decimal // day/night meters only
	NightReading   decimal.Decimal // day/night meters only
	MaxReading     decimal.Decimal
	RollsOver      bool
	DayNight       bool // electricity only
	Imperial       bool // gas only
	InstalledAt    time.Time
}

// NewMeter constructs a meter with the standard rollover ceiling.
func NewMeter(id string, meterType tariff.MeterType, installedAt time.Time) (*Meter, error) {
	if id == "" {
		return nil, ErrEmptyMeterID
	}
	return &Meter{
		ID:          id,
		Type:        meterType,
		MaxReading:  DefaultMaxReading,
		RollsOver:   true,
		InstalledAt: installedAt,
	}, nil
}

// Advance records the latest dial position observed on the meter.
func (m *Meter) Advance(value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrNegativeReading
	}
	if value.GreaterThan(m.MaxReading) {
		return ErrReadingAboveCeiling
	}
	m.CurrentReading = value
	return nil
}

// AdvanceRegisters records the latest day/night register positions. Each
// register is a dial of its own, so each is checked against the ceiling
// independently; their sum is not a dial position and is never compared to
// the ceiling.
func (m *Meter) AdvanceRegisters(day, night decimal.Decimal) error {
	if day.IsNegative() || night.IsNegative() {
		return ErrNegativeReading
	}
	if day.GreaterThan(m.MaxReading) || night.GreaterThan(m.MaxReading) {
		return ErrReadingAboveCeiling
	}
	m.DayReading = day
	m.NightReading = night
	return nil
}

// Clone returns a detached copy.
func (m *Meter) Clone() *Meter {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}
