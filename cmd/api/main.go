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
	"github.com/redis/go-redis/v9"

	"assistant-console/internal/assistants"
	"assistant-console/internal/audit"
	"assistant-console/internal/auth"
	"assistant-console/internal/calcom"
	"assistant-console/internal/config"
	"assistant-console/internal/httpapi"
	"assistant-console/internal/metrics"
	"assistant-console/internal/numbers"
	"assistant-console/internal/pricing"
	"assistant-console/internal/secrets"
	"assistant-console/internal/speech"
	"assistant-console/internal/storage"
	"assistant-console/internal/telephony"
	"assistant-console/pkg/logger"
	"assistant-console/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := storage.Migrate(rootCtx, db); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	// Redis backs the purchase lock and the shared preview cache. Both degrade without it.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Warn("redis unavailable, continuing without lock and shared cache", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	m := metrics.Global()

	var sealer *secrets.Sealer
	if len(cfg.Secrets.Key) > 0 {
		sealer, err = secrets.NewSealer(cfg.Secrets.KeyID, map[string][]byte{cfg.Secrets.KeyID: cfg.Secrets.Key})
		if err != nil {
			log.Error("secrets init failed", "err", err)
			os.Exit(1)
		}
	}

	twilio, err := telephony.NewTwilioProvider(telephony.TwilioOptions{
		BaseURL:    cfg.Twilio.BaseURL,
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		Metrics:    m,
	})
	if err != nil {
		log.Error("twilio init failed", "err", err)
		os.Exit(1)
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	prices := pricing.NewService(pricing.NewMemoryRepo(cfg.Pricing.NumberMonthly))
	numberRepo := numbers.NewPostgresRepo(db)

	// assistants and numbers reference each other through interfaces; build the inventory first.
	var assistantSvc *assistants.Service
	owners := ownerLookup(func(ctx context.Context, id string) (string, error) { return assistantSvc.OwnerOf(ctx, id) })
	inventory := numbers.NewInventory(numberRepo, twilio, owners, auditSvc, log)
	assistantSvc = assistants.NewService(assistants.NewPostgresRepo(db), assistants.Deps{
		Provisioner: twilio,
		Sealer:      sealer,
		Numbers:     inventory,
		Audit:       auditSvc,
		Logger:      log,
	})

	coordinator := numbers.NewCoordinator(numbers.CoordinatorConfig{
		MaxRetries: cfg.Purchase.MaxRetries,
		BaseDelay:  cfg.Purchase.BaseDelay,
		LockTTL:    cfg.Purchase.LockTTL,
	}, numbers.CoordinatorDeps{
		Repo:     numberRepo,
		Provider: twilio,
		Pricing:  prices,
		Owners:   assistantSvc,
		Audit:    auditSvc,
		Redis:    rdb,
		Metrics:  m,
		Logger:   log,
	})

	calcomClients := calcom.NewFactory(calcom.ClientOptions{BaseURL: cfg.Calcom.BaseURL, Metrics: m})

	var previews *speech.Previewer
	if tts, err := speech.NewClient(speech.ClientOptions{
		BaseURL: cfg.ElevenLabs.BaseURL,
		APIKey:  cfg.ElevenLabs.APIKey,
		Model:   cfg.ElevenLabs.Model,
		Metrics: m,
	}); err != nil {
		log.Warn("voice previews disabled", "err", err)
	} else {
		cache, err := speech.NewCache(speech.CacheOptions{
			Size:     cfg.Preview.CacheSize,
			Redis:    rdb,
			RedisTTL: cfg.Preview.RedisTTL,
			Metrics:  m,
			Logger:   log,
		})
		if err != nil {
			log.Error("preview cache init failed", "err", err)
			os.Exit(1)
		}
		previews = speech.NewPreviewer(tts, cache)
	}

	h := httpapi.Handlers{
		Auth:       authManager,
		Assistants: assistantSvc,
		Purchases:  coordinator,
		Search:     numbers.NewSearcher(twilio, prices),
		Inventory:  inventory,
		Calcom:     calcom.NewTester(calcomClients, log),
		Scheduler:  calcom.NewScheduler(assistantSvc, calcomClients, log),
		Previews:   previews,
	}
	webhook := telephony.TwilioWebhookHandler{
		Router:        telephony.InboundRouter{Lookup: inventory, SIPURI: cfg.Twilio.SIPURI},
		AuthToken:     cfg.Twilio.AuthToken,
		PublicBaseURL: cfg.Twilio.WebhookBaseURL,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz", "/metrics"))
	r.Use(corsMiddleware(cfg))

	registerRoutes(r, routeDeps{
		cfg:      cfg,
		handlers: h,
		webhook:  webhook,
		authMW:   auth.RequireAccessToken(authManager),
		health: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
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

type ownerLookup func(ctx context.Context, assistantID string) (string, error)

func (f ownerLookup) OwnerOf(ctx context.Context, assistantID string) (string, error) {
	return f(ctx, assistantID)
}
