package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kredia/credit-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateWithDetails commits the whole settlement as one unit. If any insert
// or loan update fails, the transaction rolls back and no loan mutation
// survives.
func (r *paymentRepository) CreateWithDetails(ctx context.Context, payment *domain.Payment, details []*domain.PaymentDetail, rejectedLoanIDs []uuid.UUID, loans []*domain.Loan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	paymentQuery := `
		INSERT INTO payments (id, external_id, customer_id, total_amount, status, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, paymentQuery,
		payment.ID,
		payment.ExternalID,
		payment.CustomerID,
		payment.TotalAmount,
		payment.Status,
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	detailQuery := `
		INSERT INTO payment_details (id, payment_id, loan_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, detail := range details {
		_, err = tx.ExecContext(ctx, detailQuery,
			detail.ID,
			detail.PaymentID,
			detail.LoanID,
			detail.Amount,
			detail.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	rejectedQuery := `
		INSERT INTO payment_rejected_loans (payment_id, loan_id)
		VALUES ($1, $2)
	`
	for _, loanID := range rejectedLoanIDs {
		_, err = tx.ExecContext(ctx, rejectedQuery, payment.ID, loanID)
		if err != nil {
			return err
		}
	}

	loanQuery := `
		UPDATE loans
		SET outstanding = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	for _, loan := range loans {
		_, err = tx.ExecContext(ctx, loanQuery,
			loan.ID,
			loan.Outstanding,
			loan.Status,
			time.Now(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `
		SELECT id, external_id, customer_id, total_amount, status, paid_at, created_at, updated_at
		FROM payments
		WHERE external_id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, externalID)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, external_id, customer_id, total_amount, status, paid_at, created_at, updated_at
		FROM payments
		WHERE customer_id = $1
		ORDER BY created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, customerID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetDetailsByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.PaymentDetail, error) {
	query := `
		SELECT id, payment_id, loan_id, amount, created_at
		FROM payment_details
		WHERE payment_id = $1
		ORDER BY created_at
	`

	var details []*domain.PaymentDetail
	err := r.db.SelectContext(ctx, &details, query, paymentID)
	if err != nil {
		return nil, err
	}

	return details, nil
}

func (r *paymentRepository) GetRejectedLoans(ctx context.Context, paymentID uuid.UUID) ([]string, error) {
	query := `
		SELECT l.external_id
		FROM payment_rejected_loans prl
		JOIN loans l ON l.id = prl.loan_id
		WHERE prl.payment_id = $1
	`

	var externalIDs []string
	err := r.db.SelectContext(ctx, &externalIDs, query, paymentID)
	if err != nil {
		return nil, err
	}

	return externalIDs, nil
}
