package metering

import (
	"github.com/shopspring/decimal"

	tariff "meterbill/internal/tariff/domain"
)

// Gas conversion constants. One imperial dial unit is 100 cubic feet; the
// kWh divisor converts megajoules to kilowatt hours.
var (
	imperialToMetric = decimal.NewFromFloat(2.83)
	kWhDivisor       = decimal.NewFromFloat(3.6)
)

// ConsumptionResult carries the billable units derived from a reading pair.
// For gas every intermediate of the conversion pipeline is retained: the
// invoice must show the full audit trail, not just the final kWh figure.
type ConsumptionResult struct {
	Units        decimal.Decimal // billable units (kWh)
	Opening      decimal.Decimal
	Closing      decimal.Decimal
	DayUnits     decimal.Decimal
	NightUnits   decimal.Decimal
	HasRegisters bool
	Kind         ReadingKind

	// Gas pipeline audit trail.
	Gas             bool
	MeterUnits      decimal.Decimal // raw dial units
	CubicMeters     decimal.Decimal
	CorrectedVolume decimal.Decimal
	KWh             decimal.Decimal
}

func dialUnits(opening, closing decimal.Decimal, meter *Meter) (decimal.Decimal, error) {
	if closing.GreaterThanOrEqual(opening) {
		return closing.Sub(opening), nil
	}
	if !meter.RollsOver {
		return decimal.Zero, ErrClosingBelowOpening
	}
	// Dial wrapped past the ceiling and restarted from zero.
	return meter.MaxReading.Sub(opening).Add(closing), nil
}

// DeriveConsumption derives billable units from a simple or day/night
// electricity reading. Opening readings contribute zero consumption by
// definition. Day/night registers are derived independently and each clamped
// at zero; a simple register applies rollover arithmetic when the meter is
// known to roll over and rejects the pair otherwise.
func DeriveConsumption(reading *MeterReading, meter *Meter) (ConsumptionResult, error) {
	if reading == nil {
		return ConsumptionResult{}, ErrNilReading
	}
	if meter == nil {
		return ConsumptionResult{}, ErrNilMeter
	}

	result := ConsumptionResult{
		Opening: reading.Previous,
		Closing: reading.Value,
		Kind:    reading.Kind,
	}
	if reading.Kind == ReadingOpening {
		return result, nil
	}

	if reading.HasRegisters {
		day := reading.DayValue.Sub(reading.DayPrevious)
		if day.IsNegative() {
			day = decimal.Zero
		}
		night := reading.NightValue.Sub(reading.NightPrev)
		if night.IsNegative() {
			night = decimal.Zero
		}
		result.DayUnits = day
		result.NightUnits = night
		result.HasRegisters = true
		result.Units = day.Add(night)
		return result, nil
	}

	units, err := dialUnits(reading.Previous, reading.Value, meter)
	if err != nil {
		return ConsumptionResult{}, err
	}
	result.Units = units
	return result, nil
}

// DeriveGasConsumption derives billable kWh from a gas reading through the
// four-stage pipeline: dial units, cubic metres (applying the imperial
// factor for 100 ft3 dials), corrected volume, then energy. Every stage is
// kept on the result for invoice display.
func DeriveGasConsumption(reading *MeterReading, meter *Meter, cal tariff.GasCalibration) (ConsumptionResult, error) {
	if reading == nil {
		return ConsumptionResult{}, ErrNilReading
	}
	if meter == nil {
		return ConsumptionResult{}, ErrNilMeter
	}
	if meter.Type != tariff.MeterTypeGas {
		return ConsumptionResult{}, ErrNotGasMeter
	}

	result := ConsumptionResult{
		Opening: reading.Previous,
		Closing: reading.Value,
		Kind:    reading.Kind,
		Gas:     true,
	}
	if reading.Kind == ReadingOpening {
		return result, nil
	}

	meterUnits, err := dialUnits(reading.Previous, reading.Value, meter)
	if err != nil {
		return ConsumptionResult{}, err
	}

	cubicMeters := meterUnits
	if meter.Imperial {
		cubicMeters = meterUnits.Mul(imperialToMetric)
	}
	correctedVolume := cubicMeters.Mul(cal.CorrectionFactor)
	kWh := correctedVolume.Mul(cal.CalorificValue).Div(kWhDivisor)

	result.MeterUnits = meterUnits
	result.CubicMeters = cubicMeters
	result.CorrectedVolume = correctedVolume
	result.KWh = kWh
	result.Units = kWh
	return result, nil
}

// Usage converts the result into the shape tariff pricing consumes.
func (c ConsumptionResult) Usage() tariff.Usage {
	if c.HasRegisters {
		return tariff.RegisterUsage(c.DayUnits, c.NightUnits)
	}
	return tariff.TotalUsage(c.Units)
}
