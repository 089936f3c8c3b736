package tariff

import "github.com/shopspring/decimal"

// Pricing mode tags. Exactly one mode is attached to a tariff on construction.
const (
	ModeFlat     = "flat"
	ModeDayNight = "day_night"
	ModeTiered   = "tiered"
)

var penceInPound = decimal.NewFromInt(100)

// PoundsFromPence converts a pence amount to pounds, rounded half-up to two
// decimal places. This is the single rounding point for monetary values:
// intermediate pence amounts are never rounded.
func PoundsFromPence(pence decimal.Decimal) decimal.Decimal {
	return pence.Div(penceInPound).Round(2)
}

// Usage is the billable consumption presented to a pricing mode. Day and
// Night carry the per-register split when HasRegisters is true; Total always
// carries the combined consumption in kWh.
type Usage struct {
	Total        decimal.Decimal
	Day          decimal.Decimal
	Night        decimal.Decimal
	HasRegisters bool
}

// TotalUsage builds a Usage without register detail.
func TotalUsage(total decimal.Decimal) Usage {
	return Usage{Total: total}
}

// RegisterUsage builds a Usage from discrete day/night register consumption.
func RegisterUsage(day, night decimal.Decimal) Usage {
	return Usage{Total: day.Add(night), Day: day, Night: night, HasRegisters: true}
}

// Pricing is the capability every pricing mode implements. CostFor is pure:
// the same usage always yields the same cost, in pounds rounded half-up to
// two decimal places at the pence-to-pounds boundary.
type Pricing interface {
	CostFor(usage Usage) (decimal.Decimal, error)
	Mode() string
}

// FlatPricing bills every unit at a single rate.
type FlatPricing struct {
	UnitRate decimal.Decimal // pence per kWh
}

// Mode returns the pricing mode tag.
func (FlatPricing) Mode() string { return ModeFlat }

// CostFor prices usage at the flat rate.
func (p FlatPricing) CostFor(usage Usage) (decimal.Decimal, error) {
	if usage.Total.IsNegative() {
		return decimal.Zero, ErrNegativeUnits
	}
	return PoundsFromPence(usage.Total.Mul(p.UnitRate)), nil
}

// DayNightPricing bills day and night registers at separate rates. When
// discrete register readings are unavailable the total is split using
// FallbackDayShare (the estimate path, not the normal one).
type DayNightPricing struct {
	DayRate          decimal.Decimal // pence per kWh
	NightRate        decimal.Decimal // pence per kWh
	FallbackDayShare decimal.Decimal // fraction of total billed at the day rate
}

// Mode returns the pricing mode tag.
func (DayNightPricing) Mode() string { return ModeDayNight }

// CostFor prices each register at its own rate, summing in pence before the
// single conversion to pounds.
func (p DayNightPricing) CostFor(usage Usage) (decimal.Decimal, error) {
	if usage.Total.IsNegative() || usage.Day.IsNegative() || usage.Night.IsNegative() {
		return decimal.Zero, ErrNegativeUnits
	}
	day := usage.Day
	night := usage.Night
	if !usage.HasRegisters {
		day = usage.Total.Mul(p.FallbackDayShare)
		night = usage.Total.Sub(day)
	}
	pence := day.Mul(p.DayRate).Add(night.Mul(p.NightRate))
	return PoundsFromPence(pence), nil
}

// TieredPricing bills consumption up to and including Threshold at Tier1Rate
// and the excess at Tier2Rate.
type TieredPricing struct {
	Threshold decimal.Decimal // kWh
	Tier1Rate decimal.Decimal // pence per kWh
	Tier2Rate decimal.Decimal // pence per kWh
}

// Mode returns the pricing mode tag.
func (TieredPricing) Mode() string { return ModeTiered }

// CostFor prices the two tiers, summing in pence before the single
// conversion to pounds. The threshold is inclusive: consumption exactly at
// the threshold bills entirely at tier one.
func (p TieredPricing) CostFor(usage Usage) (decimal.Decimal, error) {
	if usage.Total.IsNegative() {
		return decimal.Zero, ErrNegativeUnits
	}
	if usage.Total.LessThanOrEqual(p.Threshold) {
		return PoundsFromPence(usage.Total.Mul(p.Tier1Rate)), nil
	}
	excess := usage.Total.Sub(p.Threshold)
	pence := p.Threshold.Mul(p.Tier1Rate).Add(excess.Mul(p.Tier2Rate))
	return PoundsFromPence(pence), nil
}
