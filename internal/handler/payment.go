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

type PaymentService interface {
	CreatePayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)
	ListByCustomer(ctx context.Context, customerExternalID string) ([]*domain.Payment, error)
}

type PaymentHandler struct {
	service   PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreatePayment finalizes a payment synchronously: the response already
// carries the completed-or-rejected status and the detail rows applied.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	result, err := h.service.CreatePayment(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}

func (h *PaymentHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	payments, err := h.service.ListByCustomer(r.Context(), externalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payments)
}
