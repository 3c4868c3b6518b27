package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/pkg/response"
)

// CustomerService is the slice of the service layer the customer handler
// depends on.
type CustomerService interface {
	CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error)
	GetCustomer(ctx context.Context, externalID string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	GetBalance(ctx context.Context, externalID string) (*domain.CustomerBalance, error)
	ListBalances(ctx context.Context) ([]*domain.CustomerBalance, error)
	DeleteCustomer(ctx context.Context, externalID string) error
}

type CustomerHandler struct {
	service   CustomerService
	validator *validator.Validate
}

func NewCustomerHandler(service CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, customer)
}

func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	customer, err := h.service.GetCustomer(r.Context(), externalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, customer)
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, customers)
}

func (h *CustomerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	balance, err := h.service.GetBalance(r.Context(), externalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, balance)
}

func (h *CustomerHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.ListBalances(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, balances)
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	if err := h.service.DeleteCustomer(r.Context(), externalID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"deleted": externalID})
}
