package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/allocation"
	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/repository"
	customError "github.com/kredia/credit-engine/pkg/errors"
	"github.com/kredia/credit-engine/pkg/lock"
)

// PaymentService finalizes payments: it validates the request against the
// customer's outstanding debt, runs the allocation engine over a consistent
// snapshot of the customer's active loans, and persists the outcome
// atomically. The whole read-allocate-persist sequence runs under the
// customer's lock so concurrent payments cannot double-spend a balance.
type PaymentService struct {
	customerRepo repository.CustomerRepository
	loanRepo     repository.LoanRepository
	paymentRepo  repository.PaymentRepository
	locker       lock.CustomerLocker
	logger       *zap.Logger
}

func NewPaymentService(
	customerRepo repository.CustomerRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	locker lock.CustomerLocker,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		customerRepo: customerRepo,
		loanRepo:     loanRepo,
		paymentRepo:  paymentRepo,
		locker:       locker,
		logger:       logger,
	}
}

// CreatePayment creates and finalizes a payment in one step. There is no
// separate apply phase and no amendment afterward: the payment leaves here
// either completed or rejected.
func (s *PaymentService) CreatePayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	if !request.TotalAmount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(request.TotalAmount.String())
	}

	customer, err := s.customerRepo.GetByExternalID(ctx, request.CustomerExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(request.CustomerExternalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	existing, err := s.paymentRepo.GetByExternalID(ctx, request.ExternalID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, customError.WrapInvalidPaymentPlan(
			fmt.Sprintf("payment %s already exists", request.ExternalID))
	}

	release, err := s.locker.Acquire(ctx, customer.ID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, customError.WrapConcurrencyConflict(customer.ExternalID)
		}
		return nil, customError.WrapCacheError(err)
	}
	defer release()

	// Only activated debt is payable; pending loans are reserved credit,
	// not settleable balances.
	totalDebt, err := s.loanRepo.TotalOutstanding(ctx, customer.ID, domain.LoanStatusActive)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if totalDebt.IsZero() {
		return nil, customError.WrapNoActiveLoans(customer.ExternalID)
	}
	if request.TotalAmount.GreaterThan(totalDebt) {
		return nil, customError.WrapPaymentExceedsDebt(request.TotalAmount.String(), totalDebt.String())
	}

	loans, err := s.loanRepo.GetActiveByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	var plan *allocation.Plan
	if len(request.Details) > 0 {
		plan, err = planFromRequest(request, loans)
		if err != nil {
			return nil, err
		}
	} else {
		plan = allocation.Allocate(request.TotalAmount, loans)
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:          uuid.New(),
		ExternalID:  request.ExternalID,
		CustomerID:  customer.ID,
		TotalAmount: request.TotalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var details []*domain.PaymentDetail
	var mutated []*domain.Loan

	if plan.Overfunded() {
		// Settlement plans are materialized only when fully fundable. An
		// overfunded payment persists as rejected with its skipped-loan
		// associations, zero detail rows, and no loan mutated.
		payment.Status = domain.PaymentStatusRejected
	} else {
		payment.Status = domain.PaymentStatusCompleted
		payment.PaidAt = &now
		for _, entry := range plan.Entries {
			details = append(details, allocation.Apply(payment, entry, now))
			mutated = append(mutated, entry.Loan)
		}
	}

	rejectedLoanIDs := make([]uuid.UUID, 0, len(plan.Skipped))
	for _, loan := range plan.Skipped {
		payment.RejectedLoans = append(payment.RejectedLoans, loan.ExternalID)
		rejectedLoanIDs = append(rejectedLoanIDs, loan.ID)
	}

	if err := s.paymentRepo.CreateWithDetails(ctx, payment, details, rejectedLoanIDs, mutated); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	payment.Details = details

	s.logger.Info("payment finalized",
		zap.String("payment", payment.ExternalID),
		zap.String("customer", customer.ExternalID),
		zap.Stringer("status", payment.Status),
		zap.String("total_amount", payment.TotalAmount.String()),
		zap.Int("details", len(details)),
		zap.Int("rejected_loans", len(rejectedLoanIDs)),
	)

	results := make([]*domain.PaymentDetailResult, 0, len(details))
	if payment.Status == domain.PaymentStatusCompleted {
		for _, entry := range plan.Entries {
			results = append(results, &domain.PaymentDetailResult{
				LoanExternalID: entry.Loan.ExternalID,
				Amount:         entry.Amount,
				Outstanding:    entry.Loan.Outstanding,
			})
		}
	}

	return &domain.CreatePaymentResponse{Payment: payment, Details: results}, nil
}

// planFromRequest resolves a caller-specified allocation against the
// customer's active loan snapshot and validates it.
func planFromRequest(request *domain.CreatePaymentRequest, loans []*domain.Loan) (*allocation.Plan, error) {
	byExternalID := make(map[string]*domain.Loan, len(loans))
	for _, loan := range loans {
		byExternalID[loan.ExternalID] = loan
	}

	entries := make([]allocation.Entry, 0, len(request.Details))
	for _, detail := range request.Details {
		loan, ok := byExternalID[detail.LoanExternalID]
		if !ok {
			return nil, customError.WrapLoanNotFound(detail.LoanExternalID)
		}
		entries = append(entries, allocation.Entry{Loan: loan, Amount: detail.Amount})
	}

	return allocation.PlanFromEntries(request.TotalAmount, entries)
}

// ListByCustomer returns the customer's payments with their detail rows and
// rejected-loan associations attached.
func (s *PaymentService) ListByCustomer(ctx context.Context, customerExternalID string) ([]*domain.Payment, error) {
	customer, err := s.customerRepo.GetByExternalID(ctx, customerExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(customerExternalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	payments, err := s.paymentRepo.GetByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	for _, payment := range payments {
		details, err := s.paymentRepo.GetDetailsByPayment(ctx, payment.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		payment.Details = details

		rejected, err := s.paymentRepo.GetRejectedLoans(ctx, payment.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		payment.RejectedLoans = rejected
	}

	return payments, nil
}
