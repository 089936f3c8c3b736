package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	tariff "meterbill/internal/tariff/domain"
)

const tariffColumns = `
	id, name, meter_type, pricing_mode, unit_rate, night_rate, day_share,
	threshold, tier2_rate, standing_charge_pence, vat_rate, active,
	valid_from, valid_to, calorific_value, correction_factor,
	created_at, updated_at`

// TariffRepository persists tariffs. The pricing sum type flattens into a
// mode tag plus rate columns and is rebuilt on scan.
type TariffRepository struct {
	db *sql.DB
}

// NewTariffRepository constructs a repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// Get fetches a tariff by id.
func (r *TariffRepository) Get(ctx context.Context, id uuid.UUID) (*tariff.Tariff, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+tariffColumns+`
FROM tariffs
WHERE id = $1
LIMIT 1`, id)
	trf, err := scanTariff(row)
	if err != nil {
		return nil, err
	}
	if trf == nil {
		return nil, tariff.ErrTariffNotFound
	}
	return trf, nil
}

// Save upserts a tariff.
func (r *TariffRepository) Save(ctx context.Context, trf *tariff.Tariff) error {
	if r == nil || r.db == nil {
		return errors.New("tariff repo: nil db")
	}
	if trf == nil {
		return tariff.ErrNilTariff
	}

	var (
		unitRate  decimal.Decimal
		nightRate decimal.NullDecimal
		dayShare  decimal.NullDecimal
		threshold decimal.NullDecimal
		tier2Rate decimal.NullDecimal
	)
	switch p := trf.Pricing.(type) {
	case tariff.FlatPricing:
		unitRate = p.UnitRate
	case tariff.DayNightPricing:
		unitRate = p.DayRate
		nightRate = decimal.NullDecimal{Decimal: p.NightRate, Valid: true}
		dayShare = decimal.NullDecimal{Decimal: p.FallbackDayShare, Valid: true}
	case tariff.TieredPricing:
		unitRate = p.Tier1Rate
		threshold = decimal.NullDecimal{Decimal: p.Threshold, Valid: true}
		tier2Rate = decimal.NullDecimal{Decimal: p.Tier2Rate, Valid: true}
	default:
		return tariff.ErrNilTariff
	}

	var validTo sql.NullTime
	if trf.ValidTo != nil {
		validTo = sql.NullTime{Time: *trf.ValidTo, Valid: true}
	}
	var calorific, correction decimal.NullDecimal
	if trf.Gas != nil {
		calorific = decimal.NullDecimal{Decimal: trf.Gas.CalorificValue, Valid: true}
		correction = decimal.NullDecimal{Decimal: trf.Gas.CorrectionFactor, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO tariffs (
	id, name, meter_type, pricing_mode, unit_rate, night_rate, day_share,
	threshold, tier2_rate, standing_charge_pence, vat_rate, active,
	valid_from, valid_to, calorific_value, correction_factor, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	standing_charge_pence = EXCLUDED.standing_charge_pence,
	vat_rate = EXCLUDED.vat_rate,
	active = EXCLUDED.active,
	valid_to = EXCLUDED.valid_to,
	updated_at = EXCLUDED.updated_at`,
		trf.ID, trf.Name, trf.MeterType, trf.Pricing.Mode(), unitRate, nightRate, dayShare,
		threshold, tier2Rate, trf.StandingChargePence, trf.VATRate, trf.Active,
		trf.ValidFrom, validTo, calorific, correction, trf.CreatedAt, trf.UpdatedAt,
	)
	return err
}

// ListActive lists active tariffs for a fuel.
func (r *TariffRepository) ListActive(ctx context.Context, meterType tariff.MeterType) ([]*tariff.Tariff, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+tariffColumns+`
FROM tariffs
WHERE active = TRUE AND meter_type = $1
ORDER BY valid_from DESC`, meterType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*tariff.Tariff
	for rows.Next() {
		trf, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		if trf != nil {
			result = append(result, trf)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTariff(row rowScanner) (*tariff.Tariff, error) {
	var (
		trf         tariff.Tariff
		pricingMode string
		unitRate    decimal.Decimal
		nightRate   decimal.NullDecimal
		dayShare    decimal.NullDecimal
		threshold   decimal.NullDecimal
		tier2Rate   decimal.NullDecimal
		validTo     sql.NullTime
		calorific   decimal.NullDecimal
		correction  decimal.NullDecimal
	)
	err := row.Scan(
		&trf.ID,
		&trf.Name,
		&trf.MeterType,
		&pricingMode,
		&unitRate,
		&nightRate,
		&dayShare,
		&threshold,
		&tier2Rate,
		&trf.StandingChargePence,
		&trf.VATRate,
		&trf.Active,
		&trf.ValidFrom,
		&validTo,
		&calorific,
		&correction,
		&trf.CreatedAt,
		&trf.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	switch pricingMode {
	case tariff.ModeFlat:
		trf.Pricing = tariff.FlatPricing{UnitRate: unitRate}
	case tariff.ModeDayNight:
		share := tariff.DefaultDayShare
		if dayShare.Valid {
			share = dayShare.Decimal
		}
		trf.Pricing = tariff.DayNightPricing{
			DayRate:          unitRate,
			NightRate:        nightRate.Decimal,
			FallbackDayShare: share,
		}
	case tariff.ModeTiered:
		trf.Pricing = tariff.TieredPricing{
			Threshold: threshold.Decimal,
			Tier1Rate: unitRate,
			Tier2Rate: tier2Rate.Decimal,
		}
	default:
		return nil, errors.New("tariff repo: unknown pricing mode " + pricingMode)
	}

	if validTo.Valid {
		to := validTo.Time.UTC()
		trf.ValidTo = &to
	}
	if calorific.Valid && correction.Valid {
		trf.Gas = &tariff.GasCalibration{
			CalorificValue:   calorific.Decimal,
			CorrectionFactor: correction.Decimal,
		}
	}
	trf.ValidFrom = trf.ValidFrom.UTC()
	trf.CreatedAt = trf.CreatedAt.UTC()
	trf.UpdatedAt = trf.UpdatedAt.UTC()
	return &trf, nil
}
