package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aihandler "cortex/internal/ai/handler"
	"cortex/internal/ai/provider"
	"cortex/internal/ai/router"
	routermetrics "cortex/internal/ai/router/metrics"
	"cortex/internal/module/cache"
	modulehandler "cortex/internal/module/handler"
	modulemetrics "cortex/internal/module/metrics"
	moduleservice "cortex/internal/module/service"
	modulestore "cortex/internal/module/store"
	"cortex/internal/platform/config"
	"cortex/internal/platform/database"
	"cortex/internal/platform/health"
	"cortex/internal/platform/kafka/producer"
	"cortex/internal/platform/logger"
	"cortex/internal/platform/middleware"
	"cortex/internal/platform/redis"
	"cortex/internal/seeder"
	"cortex/internal/session"
	sessionstore "cortex/internal/session/store"
	usagehandler "cortex/internal/usage/handler"
	usagemetrics "cortex/internal/usage/metrics"
	"cortex/internal/usage/publisher"
	usageservice "cortex/internal/usage/service"
	usagestore "cortex/internal/usage/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing cortex", "addr", cfg.Addr)

	healthHandler := health.New(os.Getenv("CORTEX_ENV"))

	// Persistence. Without DATABASE_URL everything runs in memory, which is
	// enough for local development and tests.
	var (
		installStore    moduleservice.InstallationStore
		eventStore      usageservice.Store
		membershipStore session.MembershipStore
	)
	db, err := database.New(database.Config{URL: cfg.DatabaseURL, MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute})
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		installStore = modulestore.NewPostgres(db.DB())
		eventStore = usagestore.NewPostgres(db.DB())
		membershipStore = sessionstore.NewPostgres(db.DB())
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Health(ctx)
		})
		defer db.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memInstalls := modulestore.NewInMemory()
		memMembers := sessionstore.NewInMemory()
		installStore = memInstalls
		eventStore = usagestore.NewInMemory()
		membershipStore = memMembers

		if err := seeder.New(memMembers, memInstalls, log).SeedAll(context.Background()); err != nil {
			log.Error("demo data seeding failed", "error", err)
			os.Exit(1)
		}
	}

	// Entitlement cache: shared Redis when configured, else process-local.
	var entitlements cache.EntitlementCache
	redisClient, err := redisFromConfig(cfg)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		entitlements = cache.NewRedis(redisClient.Client, log)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		defer redisClient.Close()
	} else {
		entitlements = cache.NewMemory()
	}

	resolver := session.NewResolver(membershipStore, session.WithLogger(log))

	// Usage ledger with optional Kafka fan-out.
	usageOpts := []usageservice.Option{
		usageservice.WithLogger(log),
		usageservice.WithMetrics(usagemetrics.New()),
	}
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		usageOpts = append(usageOpts, usageservice.WithPublisher(publisher.NewKafka(kafkaProducer, cfg.UsageTopic)))
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaProducer.Healthy(ctx) {
				return context.DeadlineExceeded
			}
			return nil
		})
		defer kafkaProducer.Close()
	}
	usageSvc := usageservice.New(eventStore, usageOpts...)

	moduleSvc := moduleservice.New(installStore, entitlements, resolver,
		moduleservice.WithLogger(log),
		moduleservice.WithMetrics(modulemetrics.New()),
	)

	generators := buildGenerators(cfg, log)
	if len(generators) == 0 {
		log.Warn("no provider API keys configured, task execution will fail")
	}

	catalog := router.NewCatalog()
	registerDefaultTasks(log, catalog)

	routerSvc := router.New(catalog, moduleSvc, usageSvc, generators,
		router.WithLogger(log),
		router.WithMetrics(routermetrics.New()),
		router.WithMaxPromptBytes(cfg.MaxPromptBytes),
	)

	// HTTP surface.
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(session.Middleware([]byte(cfg.JWTSigningKey), log))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		aihandler.New(routerSvc, resolver, log).Register(api)
		modulehandler.New(moduleSvc, resolver, log).Register(api)
		usagehandler.New(usageSvc, resolver, log).Register(api)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func redisFromConfig(cfg config.Server) (*redis.Client, error) {
	rcfg := redis.DefaultConfig()
	rcfg.URL = cfg.RedisURL
	return redis.New(rcfg)
}

// buildGenerators creates one provider client per configured API key.
func buildGenerators(cfg config.Server, log *slog.Logger) []router.Generator {
	var generators []router.Generator

	if cfg.AnthropicAPIKey != "" {
		client, err := provider.NewAnthropic(cfg.AnthropicAPIKey, provider.WithLogger(log))
		if err != nil {
			log.Error("anthropic client init failed", "error", err)
		} else {
			generators = append(generators, client)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		client, err := provider.NewOpenAI(cfg.OpenAIAPIKey, provider.WithLogger(log))
		if err != nil {
			log.Error("openai client init failed", "error", err)
		} else {
			generators = append(generators, client)
		}
	}
	if cfg.DeepSeekAPIKey != "" {
		client, err := provider.NewDeepSeek(cfg.DeepSeekAPIKey, provider.WithLogger(log))
		if err != nil {
			log.Error("deepseek client init failed", "error", err)
		} else {
			generators = append(generators, client)
		}
	}
	return generators
}

// registerDefaultTasks seeds the task catalog. Module teams extend this list
// as new AI capabilities ship.
func registerDefaultTasks(log *slog.Logger, catalog *router.Catalog) {
	specs := []router.TaskSpec{
		{
			Type:      "agency.scope",
			Provider:  provider.KindAnthropic,
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 2048,
			Action:    "agency:project:scope",
			UnitCost:  50,
		},
		{
			Type:      "agency.brief",
			Provider:  provider.KindAnthropic,
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 4096,
			Action:    "agency:project:brief",
			UnitCost:  30,
		},
		{
			Type:      "crm.summarize",
			Provider:  provider.KindOpenAI,
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
			Action:    "crm:contact:summarize",
			UnitCost:  10,
		},
		{
			Type:      "crm.draft_email",
			Provider:  provider.KindDeepSeek,
			MaxTokens: 1024,
			Action:    "crm:contact:draft",
			UnitCost:  10,
		},
	}
	for _, spec := range specs {
		if err := catalog.Register(spec); err != nil {
			log.Error("task registration failed", "task", spec.Type, "error", err)
			os.Exit(1)
		}
	}
}
