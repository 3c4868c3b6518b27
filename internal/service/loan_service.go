package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/repository"
	customError "github.com/kredia/credit-engine/pkg/errors"
)

// delinquentSetKey holds the customer IDs the collections sweep has flagged.
const delinquentSetKey = "collections:delinquent"

type LoanService struct {
	customerRepo repository.CustomerRepository
	loanRepo     repository.LoanRepository
	redis        *redis.Client
	logger       *zap.Logger
}

func NewLoanService(
	customerRepo repository.CustomerRepository,
	loanRepo repository.LoanRepository,
	redisClient *redis.Client,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		customerRepo: customerRepo,
		loanRepo:     loanRepo,
		redis:        redisClient,
		logger:       logger,
	}
}

// CreateLoan originates a loan in pending status with the full principal
// outstanding. Pending and active debt both count against the credit limit:
// a pending loan is reserved credit even before activation.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	customer, err := s.customerRepo.GetByExternalID(ctx, request.CustomerExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(request.CustomerExternalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	existing, err := s.loanRepo.GetByExternalID(ctx, request.ExternalID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, customError.WrapLoanAlreadyExists(request.ExternalID)
	}

	reserved, err := s.loanRepo.TotalOutstanding(ctx, customer.ID,
		domain.LoanStatusPending, domain.LoanStatusActive)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if reserved.Add(request.Amount).GreaterThan(customer.Score) {
		return nil, customError.WrapCreditLimitExceeded(customer.ExternalID)
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:                 uuid.New(),
		ExternalID:         request.ExternalID,
		CustomerID:         customer.ID,
		Amount:             request.Amount,
		Outstanding:        request.Amount,
		ContractVersion:    request.ContractVersion,
		Status:             domain.LoanStatusPending,
		MaximumPaymentDate: request.MaximumPaymentDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("loan created",
		zap.String("loan", loan.ExternalID),
		zap.String("customer", customer.ExternalID),
		zap.String("amount", loan.Amount.String()),
	)

	return &domain.CreateLoanResponse{
		Loan:               loan,
		CustomerExternalID: customer.ExternalID,
	}, nil
}

// ActivateLoan moves a pending loan to active and stamps taken_at. The stamp
// happens exactly once: activation of a non-pending loan is rejected.
func (s *LoanService) ActivateLoan(ctx context.Context, externalID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(externalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if loan.Status != domain.LoanStatusPending {
		return nil, customError.WrapLoanNotPending(externalID)
	}

	now := time.Now()
	loan.Status = domain.LoanStatusActive
	loan.TakenAt = &now
	loan.UpdatedAt = now

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("loan activated", zap.String("loan", loan.ExternalID))

	return loan, nil
}

// ListByCustomer returns all of a customer's loans, oldest first.
func (s *LoanService) ListByCustomer(ctx context.Context, customerExternalID string) ([]*domain.Loan, error) {
	customer, err := s.customerRepo.GetByExternalID(ctx, customerExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(customerExternalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	loans, err := s.loanRepo.GetByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loans, nil
}

// FlagOverdue is the collections sweep: it finds active loans past their
// maximum payment date and caches the affected customer IDs in Redis for the
// collections tooling. Returns the number of overdue loans found.
func (s *LoanService) FlagOverdue(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := s.loanRepo.GetOverdue(ctx, asOf)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	if len(overdue) == 0 {
		return 0, nil
	}

	customers := make(map[uuid.UUID]bool)
	members := make([]interface{}, 0, len(overdue))
	for _, loan := range overdue {
		if !customers[loan.CustomerID] {
			customers[loan.CustomerID] = true
			members = append(members, loan.CustomerID.String())
		}
		s.logger.Warn("loan overdue",
			zap.String("loan", loan.ExternalID),
			zap.String("customer", loan.CustomerID.String()),
			zap.String("outstanding", loan.Outstanding.String()),
			zap.Timep("maximum_payment_date", loan.MaximumPaymentDate),
		)
	}

	if err := s.redis.SAdd(ctx, delinquentSetKey, members...).Err(); err != nil {
		return 0, customError.WrapCacheError(err)
	}

	return len(overdue), nil
}
