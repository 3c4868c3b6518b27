package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredia/credit-engine/internal/domain"
)

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// Create creates a new customer
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByExternalID retrieves a customer by its external ID
	GetByExternalID(ctx context.Context, externalID string) (*domain.Customer, error)

	// List retrieves all customers ordered by creation time
	List(ctx context.Context) ([]*domain.Customer, error)

	// Delete removes a customer; loans, payments and details cascade
	Delete(ctx context.Context, externalID string) error
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByExternalID retrieves a loan by its external ID
	GetByExternalID(ctx context.Context, externalID string) (*domain.Loan, error)

	// GetByCustomer retrieves all loans for a customer
	GetByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Loan, error)

	// GetActiveByCustomer retrieves the customer's active loans ordered by
	// creation time ascending, the order the allocator settles them in
	GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Loan, error)

	// Update persists loan status and outstanding balance changes
	Update(ctx context.Context, loan *domain.Loan) error

	// TotalOutstanding sums outstanding over the customer's loans whose
	// status is in the given set; zero when none match
	TotalOutstanding(ctx context.Context, customerID uuid.UUID, statuses ...domain.LoanStatus) (decimal.Decimal, error)

	// GetOverdue retrieves active loans whose maximum payment date has passed
	GetOverdue(ctx context.Context, asOf time.Time) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// CreateWithDetails persists a finalized payment, its detail rows, its
	// rejected-loan associations and every mutated loan in one transaction
	CreateWithDetails(ctx context.Context, payment *domain.Payment, details []*domain.PaymentDetail, rejectedLoanIDs []uuid.UUID, loans []*domain.Loan) error

	// GetByExternalID retrieves a payment by its external ID
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)

	// GetByCustomer retrieves all payments for a customer
	GetByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error)

	// GetDetailsByPayment retrieves the detail rows of a payment
	GetDetailsByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.PaymentDetail, error)

	// GetRejectedLoans retrieves the external IDs of loans a payment could
	// not settle
	GetRejectedLoans(ctx context.Context, paymentID uuid.UUID) ([]string, error)
}
