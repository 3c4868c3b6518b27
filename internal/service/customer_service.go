package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/repository"
	customError "github.com/kredia/credit-engine/pkg/errors"
)

type CustomerService struct {
	customerRepo repository.CustomerRepository
	loanRepo     repository.LoanRepository
	logger       *zap.Logger
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	loanRepo repository.LoanRepository,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		loanRepo:     loanRepo,
		logger:       logger,
	}
}

// CreateCustomer opens a credit line and stamps the preapproval time.
func (s *CustomerService) CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error) {
	existing, err := s.customerRepo.GetByExternalID(ctx, request.ExternalID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, customError.WrapCustomerAlreadyExists(request.ExternalID)
	}

	now := time.Now()
	customer := &domain.Customer{
		ID:            uuid.New(),
		ExternalID:    request.ExternalID,
		Status:        domain.CustomerStatusActive,
		Score:         request.Score,
		PreapprovedAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("customer created",
		zap.String("customer", customer.ExternalID),
		zap.String("score", customer.Score.String()),
	)

	return customer, nil
}

// GetCustomer retrieves a customer by external ID.
func (s *CustomerService) GetCustomer(ctx context.Context, externalID string) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(externalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return customer, nil
}

// ListCustomers returns all customers ordered by creation time.
func (s *CustomerService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return customers, nil
}

// GetBalance reports how much of a customer's credit line is in use. Debt
// reserved by pending loans counts: the available amount is what new loans
// can still draw.
func (s *CustomerService) GetBalance(ctx context.Context, externalID string) (*domain.CustomerBalance, error) {
	customer, err := s.customerRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(externalID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return s.balanceFor(ctx, customer)
}

// ListBalances reports the balance of every customer.
func (s *CustomerService) ListBalances(ctx context.Context) ([]*domain.CustomerBalance, error) {
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	balances := make([]*domain.CustomerBalance, 0, len(customers))
	for _, customer := range customers {
		balance, err := s.balanceFor(ctx, customer)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}

	return balances, nil
}

func (s *CustomerService) balanceFor(ctx context.Context, customer *domain.Customer) (*domain.CustomerBalance, error) {
	totalDebt, err := s.loanRepo.TotalOutstanding(ctx, customer.ID,
		domain.LoanStatusPending, domain.LoanStatusActive)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.CustomerBalance{
		ExternalID:      customer.ExternalID,
		Score:           customer.Score,
		TotalDebt:       totalDebt,
		AvailableAmount: customer.Score.Sub(totalDebt),
	}, nil
}

// DeleteCustomer removes a customer together with their loans, payments and
// payment details.
func (s *CustomerService) DeleteCustomer(ctx context.Context, externalID string) error {
	if _, err := s.GetCustomer(ctx, externalID); err != nil {
		return err
	}

	if err := s.customerRepo.Delete(ctx, externalID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.Info("customer deleted", zap.String("customer", externalID))

	return nil
}
