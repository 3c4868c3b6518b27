package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/handler"
	customError "github.com/kredia/credit-engine/pkg/errors"
	"github.com/kredia/credit-engine/tests/mocks"
)

func newPaymentRouter(service *mocks.MockPaymentService) *mux.Router {
	h := handler.NewPaymentHandler(service)
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/payments", h.CreatePayment).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/customers/{externalId}/payments", h.ListByCustomer).Methods(http.MethodGet)
	return router
}

func TestPaymentHandler_CreatePayment(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockPaymentService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful payment",
			requestBody: domain.CreatePaymentRequest{
				ExternalID:         "PAY-001",
				CustomerExternalID: "CUST-001",
				TotalAmount:        decimal.NewFromInt(80),
			},
			setupMock: func(service *mocks.MockPaymentService) {
				now := time.Now()
				payment := &domain.Payment{
					ID:          uuid.New(),
					ExternalID:  "PAY-001",
					CustomerID:  uuid.New(),
					TotalAmount: decimal.NewFromInt(80),
					Status:      domain.PaymentStatusCompleted,
					PaidAt:      &now,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				service.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req *domain.CreatePaymentRequest) bool {
					return req.ExternalID == "PAY-001" &&
						req.TotalAmount.Equal(decimal.NewFromInt(80))
				})).Return(&domain.CreatePaymentResponse{
					Payment: payment,
					Details: []*domain.PaymentDetailResult{
						{LoanExternalID: "LOAN-A", Amount: decimal.NewFromInt(80), Outstanding: decimal.NewFromInt(20)},
					},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "customer not found maps to 404",
			requestBody: domain.CreatePaymentRequest{
				ExternalID:         "PAY-002",
				CustomerExternalID: "CUST-MISSING",
				TotalAmount:        decimal.NewFromInt(10),
			},
			setupMock: func(service *mocks.MockPaymentService) {
				service.On("CreatePayment", mock.Anything, mock.Anything).
					Return(nil, customError.WrapCustomerNotFound("CUST-MISSING")).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeCustomerNotFound,
		},
		{
			name: "payment exceeding debt maps to 400",
			requestBody: domain.CreatePaymentRequest{
				ExternalID:         "PAY-003",
				CustomerExternalID: "CUST-001",
				TotalAmount:        decimal.NewFromInt(500),
			},
			setupMock: func(service *mocks.MockPaymentService) {
				service.On("CreatePayment", mock.Anything, mock.Anything).
					Return(nil, customError.WrapPaymentExceedsDebt("500", "120")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodePaymentExceedsDebt,
		},
		{
			name: "lock contention maps to 409",
			requestBody: domain.CreatePaymentRequest{
				ExternalID:         "PAY-004",
				CustomerExternalID: "CUST-001",
				TotalAmount:        decimal.NewFromInt(10),
			},
			setupMock: func(service *mocks.MockPaymentService) {
				service.On("CreatePayment", mock.Anything, mock.Anything).
					Return(nil, customError.WrapConcurrencyConflict("CUST-001")).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   customError.ErrCodeConcurrencyConflict,
		},
		{
			name: "non-positive amount fails validation",
			requestBody: domain.CreatePaymentRequest{
				ExternalID:         "PAY-005",
				CustomerExternalID: "CUST-001",
				TotalAmount:        decimal.Zero,
			},
			setupMock:      func(service *mocks.MockPaymentService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			requestBody:    "{not json",
			setupMock:      func(service *mocks.MockPaymentService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mocks.MockPaymentService{}
			tt.setupMock(service)
			router := newPaymentRouter(service)

			var body []byte
			if raw, ok := tt.requestBody.(string); ok {
				body = []byte(raw)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var envelope struct {
				Success bool            `json:"success"`
				Data    json.RawMessage `json:"data"`
				Code    string          `json:"code"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, tt.expectedStatus < 300, envelope.Success)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, envelope.Code)
			}

			service.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_ListByCustomer(t *testing.T) {
	service := &mocks.MockPaymentService{}
	payments := []*domain.Payment{
		{
			ID:          uuid.New(),
			ExternalID:  "PAY-001",
			TotalAmount: decimal.NewFromInt(80),
			Status:      domain.PaymentStatusCompleted,
		},
	}
	service.On("ListByCustomer", mock.Anything, "CUST-001").Return(payments, nil).Once()

	router := newPaymentRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/CUST-001/payments", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool             `json:"success"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "PAY-001", envelope.Data[0]["external_id"])

	service.AssertExpectations(t)
}
