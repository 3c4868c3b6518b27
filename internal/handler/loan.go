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

type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	ActivateLoan(ctx context.Context, externalID string) (*domain.Loan, error)
	ListByCustomer(ctx context.Context, customerExternalID string) ([]*domain.Loan, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	result, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}

func (h *LoanHandler) ActivateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.ActivateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.ActivateLoan(r.Context(), request.ExternalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	loans, err := h.service.ListByCustomer(r.Context(), externalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loans)
}
