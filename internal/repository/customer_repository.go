package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kredia/credit-engine/internal/domain"
)

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, external_id, status, score, preapproved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.ExternalID,
		customer.Status,
		customer.Score,
		customer.PreapprovedAt,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	return err
}

func (r *customerRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Customer, error) {
	query := `
		SELECT id, external_id, status, score, preapproved_at, created_at, updated_at
		FROM customers
		WHERE external_id = $1
	`

	var customer domain.Customer
	err := r.db.GetContext(ctx, &customer, query, externalID)
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	query := `
		SELECT id, external_id, status, score, preapproved_at, created_at, updated_at
		FROM customers
		ORDER BY created_at
	`

	var customers []*domain.Customer
	err := r.db.SelectContext(ctx, &customers, query)
	if err != nil {
		return nil, err
	}

	return customers, nil
}

func (r *customerRepository) Delete(ctx context.Context, externalID string) error {
	// Loans, payments and payment details go with the customer via the
	// schema's ON DELETE CASCADE constraints.
	query := `DELETE FROM customers WHERE external_id = $1`

	_, err := r.db.ExecContext(ctx, query, externalID)
	return err
}
