package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	tariff "meterbill/internal/tariff/domain"
)

// TariffRepository is an in-memory repository for demo/testing.
type TariffRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*tariff.Tariff
}

// NewTariffRepository constructs a repository.
func NewTariffRepository() *TariffRepository {
	return &TariffRepository{data: make(map[uuid.UUID]*tariff.Tariff)}
}

// Get loads a tariff by id.
func (r *TariffRepository) Get(ctx context.Context, id uuid.UUID) (*tariff.Tariff, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	trf := r.data[id]
	if trf == nil {
		return nil, tariff.ErrTariffNotFound
	}
	return trf.Clone(), nil
}

// Save persists a tariff.
func (r *TariffRepository) Save(ctx context.Context, trf *tariff.Tariff) error {
	_ = ctx
	if trf == nil {
		return tariff.ErrNilTariff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[trf.ID] = trf.Clone()
	return nil
}

// ListActive returns active tariffs for a fuel.
func (r *TariffRepository) ListActive(ctx context.Context, meterType tariff.MeterType) ([]*tariff.Tariff, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*tariff.Tariff
	for _, trf := range r.data {
		if trf.Active && trf.MeterType == meterType {
			result = append(result, trf.Clone())
		}
	}
	return result, nil
}
