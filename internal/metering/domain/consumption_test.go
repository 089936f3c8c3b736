package metering

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	tariff "meterbill/internal/tariff/domain"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func newTestMeter(t *testing.T, meterType tariff.MeterType) *Meter {
	t.Helper()
	m, err := NewMeter("MTR-001", meterType, periodStart)
	if err != nil {
		t.Fatalf("new meter: %v", err)
	}
	return m
}

func TestDeriveSimpleConsumption(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	reading, err := NewReading(meter.ID, dec(t, "10250.5"), dec(t, "10000.0"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	result, err := DeriveConsumption(reading, meter)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.Units.Equal(dec(t, "250.5")) {
		t.Fatalf("expected 250.5 units, got %s", result.Units)
	}
	if result.Units.IsNegative() {
		t.Fatal("consumption must never be negative")
	}
}

func TestDeriveRollover(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	reading, err := NewReading(meter.ID, dec(t, "50"), dec(t, "99900"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	result, err := DeriveConsumption(reading, meter)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	// (99999.99 - 99900) + 50 = 149.99
	if !result.Units.Equal(dec(t, "149.99")) {
		t.Fatalf("expected 149.99 units, got %s", result.Units)
	}
}

func TestDeriveRejectsBackwardsReadingWithoutRollover(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	meter.RollsOver = false
	reading, err := NewReading(meter.ID, dec(t, "50"), dec(t, "99900"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	if _, err := DeriveConsumption(reading, meter); !errors.Is(err, ErrClosingBelowOpening) {
		t.Fatalf("expected ErrClosingBelowOpening, got %v", err)
	}
}

func TestDeriveDayNightRegisters(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	meter.DayNight = true
	reading, err := NewDayNightReading(meter.ID,
		dec(t, "37623.210"), dec(t, "37386.998"),
		dec(t, "40516.687"), dec(t, "40470.637"),
		periodStart, periodEnd, ReadingSmart)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	result, err := DeriveConsumption(reading, meter)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.DayUnits.Equal(dec(t, "236.212")) {
		t.Fatalf("expected day 236.212, got %s", result.DayUnits)
	}
	if !result.NightUnits.Equal(dec(t, "46.050")) {
		t.Fatalf("expected night 46.050, got %s", result.NightUnits)
	}
	if !result.Units.Equal(dec(t, "282.262")) {
		t.Fatalf("expected total 282.262, got %s", result.Units)
	}
	if !result.HasRegisters {
		t.Fatal("expected register detail")
	}
}

func TestDeriveDayNightClampsNegativeRegister(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	meter.DayNight = true
	// Night register reads below its previous value: clamped to zero, not an error.
	reading, err := NewDayNightReading(meter.ID,
		dec(t, "1100"), dec(t, "1000"),
		dec(t, "490"), dec(t, "500"),
		periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	result, err := DeriveConsumption(reading, meter)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.NightUnits.IsZero() {
		t.Fatalf("expected night clamped to zero, got %s", result.NightUnits)
	}
	if !result.Units.Equal(dec(t, "100")) {
		t.Fatalf("expected total 100, got %s", result.Units)
	}
}

func TestDeriveOpeningReadingIsZero(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	reading, err := NewReading(meter.ID, dec(t, "12345"), dec(t, "0"), periodStart, periodEnd, ReadingOpening)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	result, err := DeriveConsumption(reading, meter)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.Units.IsZero() {
		t.Fatalf("expected zero consumption for opening reading, got %s", result.Units)
	}
}

func TestDeriveGasImperialPipeline(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeGas)
	meter.Imperial = true
	reading, err := NewReading(meter.ID, dec(t, "10127.6"), dec(t, "10091.5"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	cal := tariff.GasCalibration{
		CalorificValue:   dec(t, "39.4"),
		CorrectionFactor: dec(t, "1.02264"),
	}
	result, err := DeriveGasConsumption(reading, meter, cal)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.MeterUnits.Equal(dec(t, "36.1")) {
		t.Fatalf("expected 36.1 dial units, got %s", result.MeterUnits)
	}
	if !result.CubicMeters.Equal(dec(t, "102.163")) {
		t.Fatalf("expected 102.163 m3, got %s", result.CubicMeters)
	}
	if result.CorrectedVolume.StringFixed(2) != "104.48" {
		t.Fatalf("expected corrected volume 104.48, got %s", result.CorrectedVolume.StringFixed(2))
	}
	if result.KWh.StringFixed(2) != "1143.43" {
		t.Fatalf("expected 1143.43 kWh, got %s", result.KWh.StringFixed(2))
	}
	if !result.Units.Equal(result.KWh) {
		t.Fatal("billable units must equal converted kWh")
	}
	if !result.Gas {
		t.Fatal("expected gas audit trail")
	}
}

func TestDeriveGasMetricMeterSkipsImperialFactor(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeGas)
	reading, err := NewReading(meter.ID, dec(t, "1100"), dec(t, "1000"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	cal := tariff.GasCalibration{
		CalorificValue:   dec(t, "39.5"),
		CorrectionFactor: dec(t, "1.02264"),
	}
	result, err := DeriveGasConsumption(reading, meter, cal)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !result.CubicMeters.Equal(dec(t, "100")) {
		t.Fatalf("expected 100 m3 for a metric dial, got %s", result.CubicMeters)
	}
	// 100 * 1.02264 * 39.5 / 3.6
	if result.KWh.StringFixed(2) != "1122.06" {
		t.Fatalf("expected 1122.06 kWh, got %s", result.KWh.StringFixed(2))
	}
}

func TestDeriveGasRejectsElectricityMeter(t *testing.T) {
	meter := newTestMeter(t, tariff.MeterTypeElectricity)
	reading, err := NewReading(meter.ID, dec(t, "1100"), dec(t, "1000"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	cal := tariff.GasCalibration{CalorificValue: dec(t, "39.4"), CorrectionFactor: dec(t, "1.02264")}
	if _, err := DeriveGasConsumption(reading, meter, cal); !errors.Is(err, ErrNotGasMeter) {
		t.Fatalf("expected ErrNotGasMeter, got %v", err)
	}
}

func TestReadingValidation(t *testing.T) {
	if _, err := NewReading("", dec(t, "10"), dec(t, "5"), periodStart, periodEnd, ReadingActual); !errors.Is(err, ErrEmptyMeterID) {
		t.Fatalf("expected ErrEmptyMeterID, got %v", err)
	}
	if _, err := NewReading("MTR-001", dec(t, "-10"), dec(t, "5"), periodStart, periodEnd, ReadingActual); !errors.Is(err, ErrNegativeReading) {
		t.Fatalf("expected ErrNegativeReading, got %v", err)
	}
	if _, err := NewReading("MTR-001", dec(t, "10"), dec(t, "5"), periodEnd, periodStart, ReadingActual); !errors.Is(err, ErrPeriodOrder) {
		t.Fatalf("expected ErrPeriodOrder, got %v", err)
	}
}

func TestMarkBilledOnce(t *testing.T) {
	reading, err := NewReading("MTR-001", dec(t, "10"), dec(t, "5"), periodStart, periodEnd, ReadingActual)
	if err != nil {
		t.Fatalf("new reading: %v", err)
	}
	if err := reading.MarkBilled(); err != nil {
		t.Fatalf("mark billed: %v", err)
	}
	if err := reading.MarkBilled(); !errors.Is(err, ErrAlreadyBilled) {
		t.Fatalf("expected ErrAlreadyBilled, got %v", err)
	}
}
