package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/repository"
)

func newTestPayment(customer *domain.Customer, externalID string, amount int64, status domain.PaymentStatus) *domain.Payment {
	now := time.Now()
	payment := &domain.Payment{
		ID:          uuid.New(),
		ExternalID:  externalID,
		CustomerID:  customer.ID,
		TotalAmount: decimal.NewFromInt(amount),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == domain.PaymentStatusCompleted {
		payment.PaidAt = &now
	}
	return payment
}

func TestPaymentRepository_CreateWithDetails_CompletedSettlement(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestCustomer(t, db, "CUST-001")
	base := time.Now().AddDate(0, 0, -30)
	loanA := createTestLoan(t, db, customer, "LOAN-A", 50, domain.LoanStatusActive, base)
	loanB := createTestLoan(t, db, customer, "LOAN-B", 100, domain.LoanStatusActive, base.Add(time.Hour))

	payment := newTestPayment(customer, "PAY-001", 80, domain.PaymentStatusCompleted)
	now := time.Now()
	details := []*domain.PaymentDetail{
		{ID: uuid.New(), PaymentID: payment.ID, LoanID: loanA.ID, Amount: decimal.NewFromInt(50), CreatedAt: now},
		{ID: uuid.New(), PaymentID: payment.ID, LoanID: loanB.ID, Amount: decimal.NewFromInt(30), CreatedAt: now.Add(time.Millisecond)},
	}

	loanA.Outstanding = decimal.Zero
	loanA.Status = domain.LoanStatusPaid
	loanB.Outstanding = decimal.NewFromInt(70)

	repo := repository.NewPaymentRepository(db)
	err := repo.CreateWithDetails(ctx, payment, details, nil, []*domain.Loan{loanA, loanB})
	require.NoError(t, err)

	stored, err := repo.GetByExternalID(ctx, "PAY-001")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, stored.Status)
	assert.NotNil(t, stored.PaidAt)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(80)))

	storedDetails, err := repo.GetDetailsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, storedDetails, 2)
	assert.Equal(t, loanA.ID, storedDetails[0].LoanID)
	assert.True(t, storedDetails[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, storedDetails[1].Amount.Equal(decimal.NewFromInt(30)))

	loanRepo := repository.NewLoanRepository(db)
	storedA, err := loanRepo.GetByExternalID(ctx, "LOAN-A")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPaid, storedA.Status)
	assert.True(t, storedA.Outstanding.IsZero())

	storedB, err := loanRepo.GetByExternalID(ctx, "LOAN-B")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, storedB.Status)
	assert.True(t, storedB.Outstanding.Equal(decimal.NewFromInt(70)))
}

func TestPaymentRepository_CreateWithDetails_RejectedWithSkippedLoans(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestCustomer(t, db, "CUST-001")
	skipped := createTestLoan(t, db, customer, "LOAN-SKIPPED", 50, domain.LoanStatusRejected, time.Now())

	payment := newTestPayment(customer, "PAY-002", 100, domain.PaymentStatusRejected)

	repo := repository.NewPaymentRepository(db)
	err := repo.CreateWithDetails(ctx, payment, nil, []uuid.UUID{skipped.ID}, nil)
	require.NoError(t, err)

	stored, err := repo.GetByExternalID(ctx, "PAY-002")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, stored.Status)
	assert.Nil(t, stored.PaidAt)

	details, err := repo.GetDetailsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Empty(t, details)

	rejected, err := repo.GetRejectedLoans(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"LOAN-SKIPPED"}, rejected)
}

func TestPaymentRepository_CreateWithDetails_RollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestCustomer(t, db, "CUST-001")
	loan := createTestLoan(t, db, customer, "LOAN-A", 100, domain.LoanStatusActive, time.Now())

	payment := newTestPayment(customer, "PAY-003", 60, domain.PaymentStatusCompleted)
	now := time.Now()
	details := []*domain.PaymentDetail{
		{ID: uuid.New(), PaymentID: payment.ID, LoanID: loan.ID, Amount: decimal.NewFromInt(30), CreatedAt: now},
		// Violates the loan foreign key and must sink the whole transaction.
		{ID: uuid.New(), PaymentID: payment.ID, LoanID: uuid.New(), Amount: decimal.NewFromInt(30), CreatedAt: now},
	}

	loan.Outstanding = decimal.NewFromInt(40)

	repo := repository.NewPaymentRepository(db)
	err := repo.CreateWithDetails(ctx, payment, details, nil, []*domain.Loan{loan})
	require.Error(t, err)

	_, err = repo.GetByExternalID(ctx, "PAY-003")
	assert.Error(t, err)

	loanRepo := repository.NewLoanRepository(db)
	stored, err := loanRepo.GetByExternalID(ctx, "LOAN-A")
	require.NoError(t, err)
	assert.True(t, stored.Outstanding.Equal(decimal.NewFromInt(100)))
}

func TestPaymentRepository_GetByCustomer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestCustomer(t, db, "CUST-001")
	other := createTestCustomer(t, db, "CUST-002")

	repo := repository.NewPaymentRepository(db)
	require.NoError(t, repo.CreateWithDetails(ctx, newTestPayment(customer, "PAY-004", 10, domain.PaymentStatusRejected), nil, nil, nil))
	require.NoError(t, repo.CreateWithDetails(ctx, newTestPayment(customer, "PAY-005", 20, domain.PaymentStatusRejected), nil, nil, nil))
	require.NoError(t, repo.CreateWithDetails(ctx, newTestPayment(other, "PAY-006", 30, domain.PaymentStatusRejected), nil, nil, nil))

	payments, err := repo.GetByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "PAY-004", payments[0].ExternalID)
	assert.Equal(t, "PAY-005", payments[1].ExternalID)
}
