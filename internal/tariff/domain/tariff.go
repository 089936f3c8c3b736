package tariff

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MeterType distinguishes the two billable fuels.
type MeterType string

const (
	MeterTypeElectricity MeterType = "electricity"
	MeterTypeGas         MeterType = "gas"
)

// UK defaults. Calorific value varies by region and supplier declaration, so
// it is per-tariff configuration, never a global constant.
var (
	DefaultCalorificValue   = decimal.NewFromFloat(39.4)    // MJ/m3
	DefaultCorrectionFactor = decimal.NewFromFloat(1.02264) // volume correction
	DefaultDayShare         = decimal.NewFromFloat(0.6)     // day/night fallback split
)

// GasCalibration holds the per-tariff constants for converting gas volume to
// energy.
type GasCalibration struct {
	CalorificValue   decimal.Decimal // MJ/m3
	CorrectionFactor decimal.Decimal
}

// NewGasCalibration validates conversion constants.
func NewGasCalibration(calorificValue, correctionFactor decimal.Decimal) (GasCalibration, error) {
	if !calorificValue.IsPositive() {
		return GasCalibration{}, ErrInvalidCalorificValue
	}
	if !correctionFactor.IsPositive() {
		return GasCalibration{}, ErrInvalidCorrectionFactor
	}
	return GasCalibration{CalorificValue: calorificValue, CorrectionFactor: correctionFactor}, nil
}

// Tariff is a priced supply contract for one fuel. Pricing is a tagged sum
// of flat, day/night and tiered modes fixed at construction; referenced
// tariffs are deactivated rather than deleted.
type Tariff struct {
	ID                  uuid.UUID
	Name                string
	MeterType           MeterType
	StandingChargePence decimal.Decimal // pence per day
	VATRate             decimal.Decimal // fraction, e.g. 0.05
	Active              bool
	ValidFrom           time.Time
	ValidTo             *time.Time
	Pricing             Pricing
	Gas                 *GasCalibration // gas tariffs only
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func newTariff(name string, meterType MeterType, standingChargePence, vatRate decimal.Decimal, validFrom time.Time, pricing Pricing) (*Tariff, error) {
	if name == "" {
		return nil, ErrEmptyTariffName
	}
	if standingChargePence.IsNegative() {
		return nil, ErrNegativeStandingCharge
	}
	if vatRate.IsNegative() || vatRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidVATRate
	}
	now := time.Now().UTC()
	return &Tariff{
		ID:                  uuid.New(),
		Name:                name,
		MeterType:           meterType,
		StandingChargePence: standingChargePence,
		VATRate:             vatRate,
		Active:              true,
		ValidFrom:           validFrom,
		Pricing:             pricing,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// NewFlatElectricityTariff constructs an electricity tariff with a single
// unit rate in pence per kWh.
func NewFlatElectricityTariff(name string, unitRate, standingChargePence, vatRate decimal.Decimal, validFrom time.Time) (*Tariff, error) {
	if !unitRate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	return newTariff(name, MeterTypeElectricity, standingChargePence, vatRate, validFrom, FlatPricing{UnitRate: unitRate})
}

// NewDayNightElectricityTariff constructs an Economy 7 style tariff with
// separate day and night rates in pence per kWh.
func NewDayNightElectricityTariff(name string, dayRate, nightRate, standingChargePence, vatRate decimal.Decimal, validFrom time.Time) (*Tariff, error) {
	if !dayRate.IsPositive() || !nightRate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	return newTariff(name, MeterTypeElectricity, standingChargePence, vatRate, validFrom, DayNightPricing{
		DayRate:          dayRate,
		NightRate:        nightRate,
		FallbackDayShare: DefaultDayShare,
	})
}

// NewTieredElectricityTariff constructs a two-tier electricity tariff.
// Consumption up to and including threshold bills at tier1Rate, the excess
// at tier2Rate.
func NewTieredElectricityTariff(name string, threshold, tier1Rate, tier2Rate, standingChargePence, vatRate decimal.Decimal, validFrom time.Time) (*Tariff, error) {
	if !tier1Rate.IsPositive() || !tier2Rate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	if threshold.IsNegative() {
		return nil, ErrNegativeThreshold
	}
	return newTariff(name, MeterTypeElectricity, standingChargePence, vatRate, validFrom, TieredPricing{
		Threshold: threshold,
		Tier1Rate: tier1Rate,
		Tier2Rate: tier2Rate,
	})
}

// NewGasTariff constructs a gas tariff. Gas pricing is always flat; the
// units presented to it are kWh already converted with the tariff's
// calibration.
func NewGasTariff(name string, unitRate, standingChargePence, vatRate decimal.Decimal, validFrom time.Time, cal GasCalibration) (*Tariff, error) {
	if !unitRate.IsPositive() {
		return nil, ErrNonPositiveRate
	}
	if !cal.CalorificValue.IsPositive() {
		return nil, ErrInvalidCalorificValue
	}
	if !cal.CorrectionFactor.IsPositive() {
		return nil, ErrInvalidCorrectionFactor
	}
	t, err := newTariff(name, MeterTypeGas, standingChargePence, vatRate, validFrom, FlatPricing{UnitRate: unitRate})
	if err != nil {
		return nil, err
	}
	t.Gas = &cal
	return t, nil
}

// UnitCost prices consumption through the tariff's pricing mode.
func (t *Tariff) UnitCost(usage Usage) (decimal.Decimal, error) {
	if t == nil || t.Pricing == nil {
		return decimal.Zero, ErrNilTariff
	}
	return t.Pricing.CostFor(usage)
}

// IsValidAt reports whether at falls inside the tariff's validity window.
func (t *Tariff) IsValidAt(at time.Time) bool {
	if at.Before(t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && at.After(*t.ValidTo) {
		return false
	}
	return true
}

// Deactivate soft-deletes the tariff. Invoices keep referencing it.
func (t *Tariff) Deactivate(at time.Time) {
	t.Active = false
	t.UpdatedAt = at
}

// SetStandingCharge updates the daily standing charge in pence.
func (t *Tariff) SetStandingCharge(pence decimal.Decimal, at time.Time) error {
	if pence.IsNegative() {
		return ErrNegativeStandingCharge
	}
	t.StandingChargePence = pence
	t.UpdatedAt = at
	return nil
}

// SetVATRate updates the VAT fraction.
func (t *Tariff) SetVATRate(rate decimal.Decimal, at time.Time) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidVATRate
	}
	t.VATRate = rate
	t.UpdatedAt = at
	return nil
}

// SetFallbackDayShare overrides the estimate split used when a day/night
// tariff prices usage without discrete registers.
func (t *Tariff) SetFallbackDayShare(share decimal.Decimal, at time.Time) error {
	p, ok := t.Pricing.(DayNightPricing)
	if !ok {
		return ErrNotDayNight
	}
	if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidDayShare
	}
	p.FallbackDayShare = share
	t.Pricing = p
	t.UpdatedAt = at
	return nil
}

// CloseValidity ends the tariff's validity window.
func (t *Tariff) CloseValidity(validTo time.Time) error {
	if validTo.Before(t.ValidFrom) {
		return ErrInvalidValidityWindow
	}
	t.ValidTo = &validTo
	t.UpdatedAt = validTo
	return nil
}

// Clone returns a detached copy.
func (t *Tariff) Clone() *Tariff {
	if t == nil {
		return nil
	}
	out := *t
	if t.ValidTo != nil {
		to := *t.ValidTo
		out.ValidTo = &to
	}
	if t.Gas != nil {
		cal := *t.Gas
		out.Gas = &cal
	}
	return &out
}
