package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"cryptonary/referral-service/internal/config"
	"cryptonary/referral-service/internal/handler"
	"cryptonary/referral-service/internal/mailer"
	"cryptonary/referral-service/internal/middleware"
	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/internal/treasury"
	"cryptonary/referral-service/pkg/db"
	"cryptonary/referral-service/pkg/helpers"
	"cryptonary/referral-service/pkg/logger"
	"cryptonary/referral-service/pkg/metrics"
)

func main() {
	log := logger.NewLogger("referral-service")

	if err := godotenv.Load(); err != nil {
		log.Warnf(".env file not found: %v", err)
	}

	cfg := config.LoadConfig()
	m := metrics.NewMetrics("referral")

	conn, err := db.NewConnection(db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()
	log.Info("Successfully connected to database")

	guard := db.NewSchemaGuard(conn.DB)
	if err := guard.ValidateTables(expectedTables()); err != nil {
		log.Fatalf("Schema validation failed: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Repositories
	programRepo := repository.NewProgramRepository(conn.DB)
	promoterRepo := repository.NewPromoterRepository(conn.DB)
	referralRepo := repository.NewReferralRepository(conn.DB)
	commissionRepo := repository.NewCommissionRepository(conn.DB)
	payoutRepo := repository.NewPayoutRepository(conn.DB)
	lockRepo := repository.NewLockRepository(redisClient)

	// Services
	programService := service.NewProgramService(programRepo, log)
	engine := service.NewCommissionEngine(commissionRepo, log, m)
	balances := service.NewBalanceAggregator(commissionRepo, payoutRepo)
	promoterService := service.NewPromoterService(
		promoterRepo, commissionRepo, payoutRepo, programService,
		cfg.Referral.BaseReferralLink, log)
	referralService := service.NewReferralService(
		conn.DB, referralRepo, promoterRepo, commissionRepo, engine, programService, log)

	treasuryClient := treasury.NewClient(cfg.Treasury.BaseURL, cfg.Treasury.APIKey)
	executors := map[string]service.PayoutExecutor{
		models.PayoutMethodWise:   service.NewWiseExecutor(log),
		models.PayoutMethodCrypto: service.NewCryptoExecutor(treasuryClient, log),
	}
	payoutService := service.NewPayoutService(
		conn.DB, promoterRepo, commissionRepo, payoutRepo, balances, executors, log, m)

	var emailSender service.EmailSender
	if cfg.Mail.Host != "" {
		emailSender = mailer.NewSMTPMailer(
			cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From, log)
	} else {
		log.Warn("SMTP not configured, payout reports will only be logged")
		emailSender = mailer.NewLogMailer(log)
	}
	reporter := service.NewPayoutReporter(emailSender, cfg.Referral.PayoutReportRecipient, log)

	// Handlers
	validator := helpers.NewCustomValidator()
	referralHandler := handler.NewReferralHandler(referralService, promoterService, balances, validator)
	webhookHandler := handler.NewWebhookHandler(referralService, validator)
	payoutHandler := handler.NewPayoutHandler(payoutService, reporter, lockRepo, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/referrals", referralHandler.Referrals)
	mux.HandleFunc("/api/referrals/increment-link-clicked", referralHandler.IncrementLinkClicked)
	mux.HandleFunc("/api/referrals/link", referralHandler.ReferralLink)
	mux.HandleFunc("/api/referrals/promoter", referralHandler.Promoter)
	mux.HandleFunc("/api/referrals/payout-method", referralHandler.PayoutMethod)
	mux.HandleFunc("/api/referrals/min-withdrawal-balance", referralHandler.MinWithdrawalBalance)
	mux.HandleFunc("/api/referrals/recent-earnings", referralHandler.RecentEarnings)
	mux.HandleFunc("/api/referrals/payouts", referralHandler.Payouts)
	mux.HandleFunc("/api/webhooks/purchase", webhookHandler.Purchase)
	mux.HandleFunc("/api/webhooks/refund", webhookHandler.Refund)
	mux.HandleFunc("/api/payouts/run", payoutHandler.Run)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var root http.Handler = mux
	root = middleware.MetricsMiddleware(m)(root)
	root = middleware.LoggingMiddleware(log)(root)
	root = middleware.RequestIDMiddleware(root)
	root = middleware.CORSMiddleware(root)

	server := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Periodically export connection pool stats.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := conn.DB.Stats()
			m.RecordDBPoolStats(stats.OpenConnections, stats.InUse, stats.Idle,
				stats.WaitCount, stats.WaitDuration)
		}
	}()

	go func() {
		log.Infof("Referral service listening on port %s", cfg.Server.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}
	log.Info("Server stopped")
}

// expectedTables pins the columns the SQL in the repositories depends on.
func expectedTables() []db.TableSchema {
	return []db.TableSchema{
		{
			Name: "referral_programs",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "name", DataType: "varchar"},
				{Name: "commission_rate", DataType: "decimal"},
				{Name: "is_active", DataType: "tinyint"},
				{Name: "min_withdrawal_balance", DataType: "bigint"},
			},
		},
		{
			Name: "promoters",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "user_id", DataType: "bigint"},
				{Name: "referral_token", DataType: "varchar"},
				{Name: "referral_link", DataType: "varchar"},
				{Name: "active_payout_method_id", DataType: "bigint", Nullable: true},
				{Name: "link_clicked", DataType: "bigint"},
				{Name: "min_withdrawal_balance", DataType: "bigint"},
			},
		},
		{
			Name: "payout_methods",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "method", DataType: "varchar"},
				{Name: "payment_address", DataType: "varchar"},
			},
		},
		{
			Name: "referrals",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "user_id", DataType: "bigint"},
				{Name: "promoter_id", DataType: "bigint"},
				{Name: "invitation_method", DataType: "varchar"},
				{Name: "status", DataType: "varchar"},
				{Name: "commission_rate", DataType: "decimal"},
			},
		},
		{
			Name: "promoter_commissions",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "promoter_id", DataType: "bigint"},
				{Name: "referral_id", DataType: "bigint"},
				{Name: "amount", DataType: "bigint"},
				{Name: "status", DataType: "varchar"},
				{Name: "failure_reason", DataType: "varchar", Nullable: true},
				{Name: "invoice_external_id", DataType: "varchar", Nullable: true},
			},
		},
		{
			Name: "promoter_payouts",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "promoter_id", DataType: "bigint"},
				{Name: "amount", DataType: "bigint"},
				{Name: "payout_method", DataType: "varchar"},
				{Name: "tx_signature", DataType: "varchar", Nullable: true},
			},
		},
	}
}
