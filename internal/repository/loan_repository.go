package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kredia/credit-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, external_id, customer_id, amount, outstanding, contract_version, status, taken_at, maximum_payment_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.ExternalID,
		loan.CustomerID,
		loan.Amount,
		loan.Outstanding,
		loan.ContractVersion,
		loan.Status,
		loan.TakenAt,
		loan.MaximumPaymentDate,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Loan, error) {
	query := `
		SELECT id, external_id, customer_id, amount, outstanding, contract_version, status, taken_at, maximum_payment_date, created_at, updated_at
		FROM loans
		WHERE external_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, externalID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Loan, error) {
	query := `
		SELECT id, external_id, customer_id, amount, outstanding, contract_version, status, taken_at, maximum_payment_date, created_at, updated_at
		FROM loans
		WHERE customer_id = $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, customerID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Loan, error) {
	// Oldest first: the allocator settles debt in creation order.
	query := `
		SELECT id, external_id, customer_id, amount, outstanding, contract_version, status, taken_at, maximum_payment_date, created_at, updated_at
		FROM loans
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, customerID, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET outstanding = $2, status = $3, taken_at = $4, updated_at = $5
		WHERE external_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ExternalID,
		loan.Outstanding,
		loan.Status,
		loan.TakenAt,
		time.Now(),
	)

	return err
}

func (r *loanRepository) TotalOutstanding(ctx context.Context, customerID uuid.UUID, statuses ...domain.LoanStatus) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(outstanding), 0)
		FROM loans
		WHERE customer_id = $1 AND status = ANY($2)
	`

	codes := make([]int16, len(statuses))
	for i, s := range statuses {
		codes[i] = int16(s)
	}

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, customerID, pq.Array(codes))
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *loanRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT id, external_id, customer_id, amount, outstanding, contract_version, status, taken_at, maximum_payment_date, created_at, updated_at
		FROM loans
		WHERE status = $1 AND maximum_payment_date IS NOT NULL AND maximum_payment_date < $2
		ORDER BY maximum_payment_date
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, domain.LoanStatusActive, asOf)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
