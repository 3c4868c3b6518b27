package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kredia/credit-engine/internal/config"
	"github.com/kredia/credit-engine/internal/repository"
	"github.com/kredia/credit-engine/internal/service"
	"github.com/kredia/credit-engine/pkg/logger"
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

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	customerRepo := repository.NewCustomerRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	loanService := service.NewLoanService(customerRepo, loanRepo, redisClient, zapLogger)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zapLogger.Fatal("Invalid scheduler timezone", zap.Error(err))
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily collections sweep: flag active loans past their maximum
	// payment date and cache the affected customers for collections.
	_, err = c.AddFunc(cfg.Scheduler.CollectionsCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := loanService.FlagOverdue(ctx, time.Now())
		if err != nil {
			zapLogger.Error("Collections sweep failed", zap.Error(err))
			return
		}
		zapLogger.Info("Collections sweep finished", zap.Int("overdue_loans", count))
	})
	if err != nil {
		zapLogger.Fatal("Failed to schedule collections sweep", zap.Error(err))
	}

	c.Start()
	zapLogger.Info("Scheduler started", zap.String("collections_cron", cfg.Scheduler.CollectionsCron))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	zapLogger.Info("Scheduler stopped")
}
