package ledger

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository manages payment persistence.
type PaymentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Payment, error)
}

// AccountRepository manages customer account persistence.
type AccountRepository interface {
	Get(ctx context.Context, customerID string) (*CustomerAccount, error)
	Save(ctx context.Context, account *CustomerAccount) error
}
