package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/agents"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/auth"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/billing"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/httpapi"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/realtime"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/schema"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/usage"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/vapi"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environments inject config directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := schema.Ensure(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	profileStore := profiles.NewStore(db)
	agentStore := agents.NewStore(db)
	aggregator := usage.NewAggregator(db)
	callStore := calllog.NewStore(db, aggregator)

	// Provider boundaries
	vapiClient := vapi.NewClient(cfg.Vapi)
	provisioner := agents.NewProvisioner(vapiClient, agentStore, profileStore)

	billingSvc := billing.NewService(cfg.Stripe, profileStore)
	stripeProcessor := billing.NewWebhookProcessor(billingSvc.Catalog(), profileStore, billingSvc, cfg.Stripe.WebhookSecret)

	// Ingestion pipeline
	guard := realtime.NewDeliveryGuard(rdb)
	publisher := realtime.NewPublisher(rdb)
	ingestor := vapi.NewIngestor(agentStore, callStore, guard, publisher)

	handlers := httpapi.Handlers{
		Auth:        authManager,
		Profiles:    profileStore,
		CallLogs:    callStore,
		Usage:       aggregator,
		Agents:      agentStore,
		Provisioner: provisioner,
		Billing:     billingSvc,
		Redis:       rdb,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:          authManager,
		handlers:      handlers,
		vapiWebhook:   vapi.NewWebhookHandler(ingestor, cfg.Vapi.WebhookSecret),
		stripeWebhook: billing.NewWebhookHandler(stripeProcessor),
		db:            db,
		redis:         rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
