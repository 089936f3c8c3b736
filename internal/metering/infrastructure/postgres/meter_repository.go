package postgres

import (
	"context"
	"database/sql"
	"errors"

	metering "meterbill/internal/metering/domain"
	tariff "meterbill/internal/tariff/domain"
)

// MeterRepository persists meters.
type MeterRepository struct {
	db *sql.DB
}

// NewMeterRepository constructs a repository.
func NewMeterRepository(db *sql.DB) *MeterRepository {
	return &MeterRepository{db: db}
}

// Get fetches a meter by id.
func (r *MeterRepository) Get(ctx context.Context, id string) (*metering.Meter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("meter repo: nil db")
	}
	if id == "" {
		return nil, metering.ErrEmptyMeterID
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, meter_type, current_reading, day_reading, night_reading, max_reading, rolls_over, day_night, imperial, installed_at
FROM meters
WHERE id = $1
LIMIT 1`, id)

	var m metering.Meter
	var meterType string
	err := row.Scan(
		&m.ID,
		&meterType,
		&m.CurrentReading,
		&m.DayReading,
		&m.NightReading,
		&m.MaxReading,
		&m.RollsOver,
		&m.DayNight,
		&m.Imperial,
		&m.InstalledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metering.ErrMeterNotFound
		}
		return nil, err
	}
	m.Type = tariff.MeterType(meterType)
	m.InstalledAt = m.InstalledAt.UTC()
	return &m, nil
}

// Save upserts a meter.
func (r *MeterRepository) Save(ctx context.Context, m *metering.Meter) error {
	if r == nil || r.db == nil {
		return errors.New("meter repo: nil db")
	}
	if m == nil {
		return metering.ErrNilMeter
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO meters (
	id, meter_type, current_reading, day_reading, night_reading, max_reading, rolls_over, day_night, imperial, installed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	current_reading = EXCLUDED.current_reading,
	day_reading = EXCLUDED.day_reading,
	night_reading = EXCLUDED.night_reading,
	max_reading = EXCLUDED.max_reading,
	rolls_over = EXCLUDED.rolls_over,
	day_night = EXCLUDED.day_night,
	imperial = EXCLUDED.imperial`,
		m.ID, m.Type, m.CurrentReading, m.DayReading, m.NightReading, m.MaxReading, m.RollsOver, m.DayNight, m.Imperial, m.InstalledAt,
	)
	return err
}
