package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/config"
	"github.com/kredia/credit-engine/internal/domain"
	"github.com/kredia/credit-engine/internal/handler"
	"github.com/kredia/credit-engine/internal/repository"
	"github.com/kredia/credit-engine/internal/service"
	"github.com/kredia/credit-engine/pkg/lock"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	cfg.Database.Name = "postgres"
	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to postgres database: %v", err))
	}
	defer adminDB.Close()

	testDBName := "credit_engine_e2e"
	adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", testDBName))
	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", testDBName))
	if err != nil {
		panic(fmt.Sprintf("Failed to create test database: %v", err))
	}

	cfg.Database.Name = testDBName
	testDB, err = sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	if err := executeInitSQL(testDB); err != nil {
		panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
	}
}

func teardown() {
	if testDB != nil {
		testDB.Close()
	}

	cfg, _ := config.Load()
	cfg.Database.Name = "postgres"

	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return
	}
	defer adminDB.Close()

	adminDB.Exec("DROP DATABASE IF EXISTS credit_engine_e2e")
}

func executeInitSQL(db *sqlx.DB) error {
	sqlBytes, err := os.ReadFile("../../scripts/init.sql")
	if err != nil {
		return fmt.Errorf("failed to read init.sql: %w", err)
	}

	_, err = db.Exec(string(sqlBytes))
	if err != nil {
		return fmt.Errorf("failed to execute init.sql: %w", err)
	}

	return nil
}

func setupTestEnvironment(t *testing.T) (*httptest.Server, func()) {
	cleanupTestData(testDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	require.NoError(t, testDB.Ping(), "Failed to ping test database")
	require.NoError(t, redisClient.Ping(context.Background()).Err(), "Failed to connect to test Redis")

	zapLogger := zap.NewNop()

	customerRepo := repository.NewCustomerRepository(testDB)
	loanRepo := repository.NewLoanRepository(testDB)
	paymentRepo := repository.NewPaymentRepository(testDB)

	locker := lock.NewRedisLocker(redisClient, 30*time.Second)
	customerService := service.NewCustomerService(customerRepo, loanRepo, zapLogger)
	loanService := service.NewLoanService(customerRepo, loanRepo, redisClient, zapLogger)
	paymentService := service.NewPaymentService(customerRepo, loanRepo, paymentRepo, locker, zapLogger)

	customerHandler := handler.NewCustomerHandler(customerService)
	loanHandler := handler.NewLoanHandler(loanService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	router := setupTestRoutes(customerHandler, loanHandler, paymentHandler)
	server := httptest.NewServer(router)

	cleanup := func() {
		cleanupTestData(testDB)
		redisClient.Close()
	}

	return server, cleanup
}

func setupTestRoutes(
	customerHandler *handler.CustomerHandler,
	loanHandler *handler.LoanHandler,
	paymentHandler *handler.PaymentHandler,
) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/customers", customerHandler.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers/{externalId}", customerHandler.DeleteCustomer).Methods("DELETE")
	api.HandleFunc("/customers/{externalId}/balance", customerHandler.GetBalance).Methods("GET")
	api.HandleFunc("/customers/{externalId}/loans", loanHandler.ListByCustomer).Methods("GET")
	api.HandleFunc("/customers/{externalId}/payments", paymentHandler.ListByCustomer).Methods("GET")
	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/activate", loanHandler.ActivateLoan).Methods("PUT")
	api.HandleFunc("/payments", paymentHandler.CreatePayment).Methods("POST")

	return router
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM payment_details")
	db.Exec("DELETE FROM payment_rejected_loans")
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM loans")
	db.Exec("DELETE FROM customers")
}

func TestCreditEngineEndToEnd(t *testing.T) {
	server, cleanup := setupTestEnvironment(t)
	defer cleanup()
	defer server.Close()

	customerID := "CUST-E2E-001"

	t.Run("Complete Credit Line Workflow", func(t *testing.T) {
		// Step 1: Open a credit line
		t.Log("Step 1: Creating customer")
		createCustomer(t, server.URL, customerID, decimal.NewFromInt(1000))

		balance := getBalance(t, server.URL, customerID)
		assert.True(t, balance.TotalDebt.IsZero())
		assert.True(t, balance.AvailableAmount.Equal(decimal.NewFromInt(1000)))

		// Step 2: Originate two loans
		t.Log("Step 2: Creating loans")
		createLoan(t, server.URL, "LOAN-E2E-A", customerID, decimal.NewFromInt(50))
		createLoan(t, server.URL, "LOAN-E2E-B", customerID, decimal.NewFromInt(100))

		// Pending loans already reserve credit.
		balance = getBalance(t, server.URL, customerID)
		assert.True(t, balance.TotalDebt.Equal(decimal.NewFromInt(150)))
		assert.True(t, balance.AvailableAmount.Equal(decimal.NewFromInt(850)))

		// Step 3: A loan beyond the remaining limit is refused
		t.Log("Step 3: Exceeding the credit limit")
		resp := postLoan(t, server.URL, "LOAN-E2E-C", customerID, decimal.NewFromInt(900))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// Step 4: A payment before activation finds no payable debt
		t.Log("Step 4: Paying with no active loans")
		resp = postPayment(t, server.URL, "PAY-E2E-0", customerID, decimal.NewFromInt(10))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// Step 5: Activate both loans
		t.Log("Step 5: Activating loans")
		activateLoan(t, server.URL, "LOAN-E2E-A")
		activateLoan(t, server.URL, "LOAN-E2E-B")

		// Step 6: Pay 80; the older loan settles first
		t.Log("Step 6: Making a payment")
		payment := makePayment(t, server.URL, "PAY-E2E-1", customerID, decimal.NewFromInt(80))
		assert.Equal(t, domain.PaymentStatusCompleted, payment.Payment.Status)
		require.Len(t, payment.Details, 2)
		assert.Equal(t, "LOAN-E2E-A", payment.Details[0].LoanExternalID)
		assert.True(t, payment.Details[0].Amount.Equal(decimal.NewFromInt(50)))
		assert.True(t, payment.Details[1].Amount.Equal(decimal.NewFromInt(30)))

		loans := listLoans(t, server.URL, customerID)
		require.Len(t, loans, 2)
		assert.Equal(t, domain.LoanStatusPaid, loans[0].Status)
		assert.True(t, loans[1].Outstanding.Equal(decimal.NewFromInt(70)))

		balance = getBalance(t, server.URL, customerID)
		assert.True(t, balance.TotalDebt.Equal(decimal.NewFromInt(70)))

		// Step 7: Overpaying the remaining debt is refused
		t.Log("Step 7: Paying more than the remaining debt")
		resp = postPayment(t, server.URL, "PAY-E2E-2", customerID, decimal.NewFromInt(500))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// Step 8: Settle the remainder
		t.Log("Step 8: Settling the remainder")
		payment = makePayment(t, server.URL, "PAY-E2E-3", customerID, decimal.NewFromInt(70))
		assert.Equal(t, domain.PaymentStatusCompleted, payment.Payment.Status)

		balance = getBalance(t, server.URL, customerID)
		assert.True(t, balance.TotalDebt.IsZero())
		assert.True(t, balance.AvailableAmount.Equal(decimal.NewFromInt(1000)))

		// Step 9: Payment history survives settlement
		t.Log("Step 9: Listing payments")
		payments := listPayments(t, server.URL, customerID)
		require.Len(t, payments, 2)
		assert.Equal(t, "PAY-E2E-1", payments[0].ExternalID)

		// Step 10: Deleting the customer removes everything
		t.Log("Step 10: Deleting customer")
		req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/customers/"+customerID, nil)
		require.NoError(t, err)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var loanCount int
		require.NoError(t, testDB.Get(&loanCount, "SELECT COUNT(*) FROM loans"))
		assert.Zero(t, loanCount)
	})
}

func createCustomer(t *testing.T, serverURL, externalID string, score decimal.Decimal) {
	body, _ := json.Marshal(domain.CreateCustomerRequest{ExternalID: externalID, Score: score})
	resp, err := http.Post(serverURL+"/api/v1/customers", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func getBalance(t *testing.T, serverURL, externalID string) *domain.CustomerBalance {
	resp, err := http.Get(serverURL + "/api/v1/customers/" + externalID + "/balance")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Data domain.CustomerBalance `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))

	return &response.Data
}

func postLoan(t *testing.T, serverURL, externalID, customerID string, amount decimal.Decimal) *http.Response {
	body, _ := json.Marshal(domain.CreateLoanRequest{
		ExternalID:         externalID,
		CustomerExternalID: customerID,
		Amount:             amount,
		ContractVersion:    "v3",
	})
	resp, err := http.Post(serverURL+"/api/v1/loans", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)

	return resp
}

func createLoan(t *testing.T, serverURL, externalID, customerID string, amount decimal.Decimal) {
	resp := postLoan(t, serverURL, externalID, customerID, amount)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func activateLoan(t *testing.T, serverURL, externalID string) {
	body, _ := json.Marshal(domain.ActivateLoanRequest{ExternalID: externalID})
	req, err := http.NewRequest(http.MethodPut, serverURL+"/api/v1/loans/activate", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func listLoans(t *testing.T, serverURL, customerID string) []*domain.Loan {
	resp, err := http.Get(serverURL + "/api/v1/customers/" + customerID + "/loans")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Data []*domain.Loan `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))

	return response.Data
}

func listPayments(t *testing.T, serverURL, customerID string) []*domain.Payment {
	resp, err := http.Get(serverURL + "/api/v1/customers/" + customerID + "/payments")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Data []*domain.Payment `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))

	return response.Data
}

func postPayment(t *testing.T, serverURL, externalID, customerID string, amount decimal.Decimal) *http.Response {
	body, _ := json.Marshal(domain.CreatePaymentRequest{
		ExternalID:         externalID,
		CustomerExternalID: customerID,
		TotalAmount:        amount,
	})
	resp, err := http.Post(serverURL+"/api/v1/payments", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)

	return resp
}

func makePayment(t *testing.T, serverURL, externalID, customerID string, amount decimal.Decimal) *domain.CreatePaymentResponse {
	resp := postPayment(t, serverURL, externalID, customerID, amount)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var response struct {
		Data domain.CreatePaymentResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))

	return &response.Data
}
