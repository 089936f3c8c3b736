package metering

import (
	"context"

	"github.com/google/uuid"
)

// MeterRepository manages meter persistence.
type MeterRepository interface {
	Get(ctx context.Context, id string) (*Meter, error)
	Save(ctx context.Context, meter *Meter) error
}

// ReadingRepository manages meter reading persistence. Latest returns the
// most recently recorded reading for a meter, or nil when none exists.
type ReadingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*MeterReading, error)
	Save(ctx context.Context, reading *MeterReading) error
	Latest(ctx context.Context, meterID string) (*MeterReading, error)
	ListUnbilled(ctx context.Context, meterID string) ([]*MeterReading, error)
}
