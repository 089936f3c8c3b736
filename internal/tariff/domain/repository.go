package tariff

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages tariff persistence.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Tariff, error)
	Save(ctx context.Context, trf *Tariff) error
	ListActive(ctx context.Context, meterType MeterType) ([]*Tariff, error)
}
