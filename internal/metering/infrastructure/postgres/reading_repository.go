package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	metering "meterbill/internal/metering/domain"
)

const readingColumns = `
	id, meter_id, value, previous, day_value, day_previous, night_value, night_previous,
	has_registers, period_start, period_end, kind, billed, recorded_at`

// ReadingRepository persists meter readings.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Get fetches a reading by id.
func (r *ReadingRepository) Get(ctx context.Context, id uuid.UUID) (*metering.MeterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+readingColumns+`
FROM meter_readings
WHERE id = $1
LIMIT 1`, id)
	reading, err := scanReading(row)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, metering.ErrReadingNotFound
	}
	return reading, nil
}

// Save upserts a reading. Only the billed flag mutates after insert.
func (r *ReadingRepository) Save(ctx context.Context, reading *metering.MeterReading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if reading == nil {
		return metering.ErrNilReading
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO meter_readings (
	id, meter_id, value, previous, day_value, day_previous, night_value, night_previous,
	has_registers, period_start, period_end, kind, billed, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET billed = EXCLUDED.billed`,
		reading.ID, reading.MeterID, reading.Value, reading.Previous,
		reading.DayValue, reading.DayPrevious, reading.NightValue, reading.NightPrev,
		reading.HasRegisters, reading.PeriodStart, reading.PeriodEnd,
		reading.Kind, reading.Billed, reading.RecordedAt,
	)
	return err
}

// Latest returns the most recently recorded reading for a meter, or nil.
func (r *ReadingRepository) Latest(ctx context.Context, meterID string) (*metering.MeterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+readingColumns+`
FROM meter_readings
WHERE meter_id = $1
ORDER BY recorded_at DESC
LIMIT 1`, meterID)
	return scanReading(row)
}

// ListUnbilled returns readings not yet attached to an invoice.
func (r *ReadingRepository) ListUnbilled(ctx context.Context, meterID string) ([]*metering.MeterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+readingColumns+`
FROM meter_readings
WHERE meter_id = $1 AND billed = FALSE
ORDER BY period_end ASC`, meterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*metering.MeterReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		if reading != nil {
			result = append(result, reading)
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

func scanReading(row rowScanner) (*metering.MeterReading, error) {
	var reading metering.MeterReading
	var kind string
	err := row.Scan(
		&reading.ID,
		&reading.MeterID,
		&reading.Value,
		&reading.Previous,
		&reading.DayValue,
		&reading.DayPrevious,
		&reading.NightValue,
		&reading.NightPrev,
		&reading.HasRegisters,
		&reading.PeriodStart,
		&reading.PeriodEnd,
		&kind,
		&reading.Billed,
		&reading.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	reading.Kind = metering.ReadingKind(kind)
	reading.PeriodStart = reading.PeriodStart.UTC()
	reading.PeriodEnd = reading.PeriodEnd.UTC()
	reading.RecordedAt = reading.RecordedAt.UTC()
	return &reading, nil
}
