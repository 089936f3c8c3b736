package postgres

import (
	"context"
	"database/sql"
	"errors"

	ledger "meterbill/internal/ledger/domain"
)

// AccountRepository persists customer account balances.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Get fetches an account by customer id.
func (r *AccountRepository) Get(ctx context.Context, customerID string) (*ledger.CustomerAccount, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	if customerID == "" {
		return nil, ledger.ErrEmptyCustomerID
	}
	row := r.db.QueryRowContext(ctx, `
SELECT customer_id, balance, updated_at
FROM customer_accounts
WHERE customer_id = $1
LIMIT 1`, customerID)

	var a ledger.CustomerAccount
	err := row.Scan(&a.CustomerID, &a.Balance, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, err
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// Save upserts an account.
func (r *AccountRepository) Save(ctx context.Context, a *ledger.CustomerAccount) error {
	if r == nil || r.db == nil {
		return errors.New("account repo: nil db")
	}
	if a == nil {
		return ledger.ErrNilAccount
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO customer_accounts (customer_id, balance, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (customer_id) DO UPDATE SET
	balance = EXCLUDED.balance,
	updated_at = EXCLUDED.updated_at`,
		a.CustomerID, a.Balance, a.UpdatedAt,
	)
	return err
}
