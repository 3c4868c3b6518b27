package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/config"
	"github.com/kredia/credit-engine/internal/handler"
	"github.com/kredia/credit-engine/internal/repository"
	"github.com/kredia/credit-engine/internal/service"
	"github.com/kredia/credit-engine/pkg/lock"
	"github.com/kredia/credit-engine/pkg/logger"
	"github.com/kredia/credit-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Initialize services
	locker := lock.NewRedisLocker(redisClient, cfg.Lock.TTL)
	customerService := service.NewCustomerService(customerRepo, loanRepo, zapLogger)
	loanService := service.NewLoanService(customerRepo, loanRepo, redisClient, zapLogger)
	paymentService := service.NewPaymentService(customerRepo, loanRepo, paymentRepo, locker, zapLogger)

	customerHandler := handler.NewCustomerHandler(customerService)
	loanHandler := handler.NewLoanHandler(loanService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(customerHandler, loanHandler, paymentHandler, healthHandler)
	router.Use(response.LoggingMiddleware(zapLogger))

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	customerHandler *handler.CustomerHandler,
	loanHandler *handler.LoanHandler,
	paymentHandler *handler.PaymentHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/customers", customerHandler.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers", customerHandler.ListCustomers).Methods("GET")
	api.HandleFunc("/customers/balances", customerHandler.ListBalances).Methods("GET")
	api.HandleFunc("/customers/{externalId}", customerHandler.GetCustomer).Methods("GET")
	api.HandleFunc("/customers/{externalId}", customerHandler.DeleteCustomer).Methods("DELETE")
	api.HandleFunc("/customers/{externalId}/balance", customerHandler.GetBalance).Methods("GET")
	api.HandleFunc("/customers/{externalId}/loans", loanHandler.ListByCustomer).Methods("GET")
	api.HandleFunc("/customers/{externalId}/payments", paymentHandler.ListByCustomer).Methods("GET")

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/activate", loanHandler.ActivateLoan).Methods("PUT")

	api.HandleFunc("/payments", paymentHandler.CreatePayment).Methods("POST")

	return router
}
