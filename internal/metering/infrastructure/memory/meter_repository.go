package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	metering "meterbill/internal/metering/domain"
)

// MeterRepository is an in-memory repository for demo/testing.
type MeterRepository struct {
	mu   sync.RWMutex
	data map[string]*metering.Meter
}

// NewMeterRepository constructs a repository.
func NewMeterRepository() *MeterRepository {
	return &MeterRepository{data: make(map[string]*metering.Meter)}
}

// Get loads a meter by id.
func (r *MeterRepository) Get(ctx context.Context, id string) (*metering.Meter, error) {
	_ = ctx
	if id == "" {
		return nil, metering.ErrEmptyMeterID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.data[id]
	if m == nil {
		return nil, metering.ErrMeterNotFound
	}
	return m.Clone(), nil
}

// Save persists a meter.
func (r *MeterRepository) Save(ctx context.Context, m *metering.Meter) error {
	_ = ctx
	if m == nil {
		return metering.ErrNilMeter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = m.Clone()
	return nil
}

// ReadingRepository is an in-memory reading store for demo/testing. Latest
// tracks insertion order per meter rather than timestamps.
type ReadingRepository struct {
	mu     sync.RWMutex
	data   map[uuid.UUID]*metering.MeterReading
	latest map[string]uuid.UUID
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{
		data:   make(map[uuid.UUID]*metering.MeterReading),
		latest: make(map[string]uuid.UUID),
	}
}

// Get loads a reading by id.
func (r *ReadingRepository) Get(ctx context.Context, id uuid.UUID) (*metering.MeterReading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	reading := r.data[id]
	if reading == nil {
		return nil, metering.ErrReadingNotFound
	}
	return reading.Clone(), nil
}

// Save persists a reading and remembers it as the meter's latest.
func (r *ReadingRepository) Save(ctx context.Context, reading *metering.MeterReading) error {
	_ = ctx
	if reading == nil {
		return metering.ErrNilReading
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[reading.ID]; !exists {
		r.latest[reading.MeterID] = reading.ID
	}
	r.data[reading.ID] = reading.Clone()
	return nil
}

// Latest returns the most recently saved reading for a meter, or nil.
func (r *ReadingRepository) Latest(ctx context.Context, meterID string) (*metering.MeterReading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.latest[meterID]
	if !ok {
		return nil, nil
	}
	return r.data[id].Clone(), nil
}

// ListUnbilled returns readings not yet attached to an invoice.
func (r *ReadingRepository) ListUnbilled(ctx context.Context, meterID string) ([]*metering.MeterReading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*metering.MeterReading
	for _, reading := range r.data {
		if reading.MeterID == meterID && !reading.Billed {
			result = append(result, reading.Clone())
		}
	}
	return result, nil
}
