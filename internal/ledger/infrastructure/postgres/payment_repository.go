package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	ledger "meterbill/internal/ledger/domain"
)

const paymentColumns = `
	id, invoice_id, customer_id, amount, paid_at, method, status, notes, created_at, updated_at`

// Notes persist as a newline-joined text column; notes never contain
// newlines themselves.
const noteSeparator = "\n"

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository constructs a repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Get fetches a payment by id.
func (r *PaymentRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+paymentColumns+`
FROM payments
WHERE id = $1
LIMIT 1`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ledger.ErrPaymentNotFound
	}
	return p, nil
}

// Save upserts a payment.
func (r *PaymentRepository) Save(ctx context.Context, p *ledger.Payment) error {
	if r == nil || r.db == nil {
		return errors.New("payment repo: nil db")
	}
	if p == nil {
		return ledger.ErrNilPayment
	}
	var invoiceID any
	if p.InvoiceID != nil {
		invoiceID = *p.InvoiceID
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments (
	id, invoice_id, customer_id, amount, paid_at, method, status, notes, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	notes = EXCLUDED.notes,
	updated_at = EXCLUDED.updated_at`,
		p.ID, invoiceID, p.CustomerID, p.Amount, p.Date, p.Method, p.Status,
		strings.Join(p.Notes, noteSeparator), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// ListByCustomer lists a customer's payments, newest first.
func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*ledger.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+paymentColumns+`
FROM payments
WHERE customer_id = $1
ORDER BY paid_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			result = append(result, p)
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

func scanPayment(row rowScanner) (*ledger.Payment, error) {
	var (
		p         ledger.Payment
		invoiceID uuid.NullUUID
		method    string
		status    string
		notes     sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&invoiceID,
		&p.CustomerID,
		&p.Amount,
		&p.Date,
		&method,
		&status,
		&notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if invoiceID.Valid {
		id := invoiceID.UUID
		p.InvoiceID = &id
	}
	p.Method = ledger.PaymentMethod(method)
	p.Status = ledger.PaymentStatus(status)
	if notes.Valid && notes.String != "" {
		p.Notes = strings.Split(notes.String, noteSeparator)
	}
	p.Date = p.Date.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
