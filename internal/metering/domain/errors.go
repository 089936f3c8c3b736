package metering

import "errors"

var (
	// ErrEmptyMeterID is returned when a meter id is empty.
	ErrEmptyMeterID = errors.New("metering: empty meter id")
	// ErrMeterNotFound is returned when a referenced meter does not exist.
	ErrMeterNotFound = errors.New("metering: meter not found")
	// ErrReadingNotFound is returned when a referenced reading does not exist.
	ErrReadingNotFound = errors.New("metering: reading not found")
	// ErrNegativeReading is returned when a dial value is negative.
	ErrNegativeReading = errors.New("metering: negative reading value")
	// ErrReadingAboveCeiling is returned when a dial value exceeds the meter's maximum.
	ErrReadingAboveCeiling = errors.New("metering: reading exceeds meter maximum")
	// ErrClosingBelowOpening is returned when closing < opening on a meter
	// that does not roll over.
	ErrClosingBelowOpening = errors.New("metering: closing must be >= opening")
	// ErrPeriodOrder is returned when the period end precedes the start.
	ErrPeriodOrder = errors.New("metering: period end before start")
	// ErrRegistersRequired is returned when a day/night derivation is asked of
	// a reading without register detail.
	ErrRegistersRequired = errors.New("metering: day/night registers required")
	// ErrNotGasMeter is returned when gas conversion is asked of a non-gas meter.
	ErrNotGasMeter = errors.New("metering: not a gas meter")
	// ErrAlreadyBilled is returned when a reading is billed twice.
	ErrAlreadyBilled = errors.New("metering: reading already billed")
	// ErrNilMeter is returned when saving a nil meter.
	ErrNilMeter = errors.New("metering: nil meter")
	// ErrNilReading is returned when saving a nil reading.
	ErrNilReading = errors.New("metering: nil reading")
)
