package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages invoice persistence.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Invoice, error)
	ListOutstanding(ctx context.Context) ([]*Invoice, error)
}
