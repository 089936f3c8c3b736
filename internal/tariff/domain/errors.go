package tariff

import "errors"

var (
	// ErrEmptyTariffName is returned when a tariff name is empty.
	ErrEmptyTariffName = errors.New("tariff: empty name")
	// ErrNonPositiveRate is returned when a unit rate is zero or negative.
	ErrNonPositiveRate = errors.New("tariff: unit rate must be positive")
	// ErrNegativeStandingCharge is returned when the daily standing charge is negative.
	ErrNegativeStandingCharge = errors.New("tariff: negative standing charge")
	// ErrInvalidVATRate is returned when the VAT rate is outside [0,1).
	ErrInvalidVATRate = errors.New("tariff: vat rate must be in [0,1)")
	// ErrNegativeThreshold is returned when a tier threshold is negative.
	ErrNegativeThreshold = errors.New("tariff: negative tier threshold")
	// ErrInvalidDayShare is returned when a day/night fallback share is outside [0,1].
	ErrInvalidDayShare = errors.New("tariff: day share must be in [0,1]")
	// ErrNotDayNight is returned when a day/night operation is asked of another mode.
	ErrNotDayNight = errors.New("tariff: not a day/night tariff")
	// ErrInvalidCalorificValue is returned when a gas calorific value is not positive.
	ErrInvalidCalorificValue = errors.New("tariff: calorific value must be positive")
	// ErrInvalidCorrectionFactor is returned when a gas correction factor is not positive.
	ErrInvalidCorrectionFactor = errors.New("tariff: correction factor must be positive")
	// ErrInvalidValidityWindow is returned when valid-to precedes valid-from.
	ErrInvalidValidityWindow = errors.New("tariff: valid-to before valid-from")
	// ErrNegativeUnits is returned when pricing is asked to cost negative consumption.
	ErrNegativeUnits = errors.New("tariff: negative units")
	// ErrTariffNotFound is returned when a referenced tariff does not exist.
	ErrTariffNotFound = errors.New("tariff: not found")
	// ErrTariffInactive is returned when billing against a deactivated tariff.
	ErrTariffInactive = errors.New("tariff: inactive")
	// ErrNilTariff is returned when saving a nil tariff.
	ErrNilTariff = errors.New("tariff: nil tariff")
)
