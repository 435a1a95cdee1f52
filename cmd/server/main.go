package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/authcore/internal/application/service"
	"github.com/turtacn/authcore/internal/config"
	domainservice "github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/audit"
	"github.com/turtacn/authcore/internal/infrastructure/consumers"
	"github.com/turtacn/authcore/internal/infrastructure/crypto"
	"github.com/turtacn/authcore/internal/infrastructure/keysource"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/authcore/internal/infrastructure/redis"
	"github.com/turtacn/authcore/internal/infrastructure/revocation"
	"github.com/turtacn/authcore/internal/infrastructure/userstore"
	"github.com/turtacn/authcore/internal/infrastructure/watcher"
	httpapi "github.com/turtacn/authcore/internal/interfaces/http"
	"github.com/turtacn/authcore/internal/interfaces/http/handlers"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer", err)
	}
	defer func() { _ = tracing.Shutdown(context.Background()) }()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	// Initialize database
	if !cfg.Database.Enabled {
		appLogger.Fatal(ctx, "A user store is required", errors.ErrConfiguration.WithMessage("database.enabled is false"))
	}
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to connect to database", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, &audit.EventRecord{}); err != nil {
		appLogger.Fatal(ctx, "Failed to migrate database", err)
	}

	// Initialize audit sinks
	sinks := []domainservice.AuditService{
		audit.NewLogAuditService(appLogger),
		audit.NewGormAuditService(db.DB(), cfg.Kafka.SigningSecret),
	}
	if cfg.Kafka.Enabled {
		producer, err := audit.NewKafkaProducer(cfg.Kafka, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to create Kafka producer", err)
		}
		defer producer.Close()
		sinks = append(sinks, producer)
	}
	auditSvc := audit.NewFanoutAuditService(sinks...)

	// Load signing keys
	source, err := newConfigSource(cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to create key source", err)
	}
	store, err := crypto.NewKeyLoader(source, crypto.KeyLoaderOptions{
		MinLength:     cfg.Keys.MinLength,
		GenerateBytes: cfg.Keys.GenerateBytes,
		MaxRetired:    cfg.Keys.MaxRetired,
	}, auditSvc, appLogger).Load(ctx)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to load signing keys", err)
	}
	codec, err := crypto.NewTokenCodec(constants.JWTAlgorithm(cfg.Tokens.Algorithm))
	if err != nil {
		appLogger.Fatal(ctx, "Failed to create token codec", err)
	}
	verifier := crypto.NewTokenVerifier(store, codec, cfg.Tokens.Leeway, appLogger)

	// Initialize revocation ledger
	checks := map[string]handlers.HealthCheckFunc{"database": db.Ping}
	fallback := revocation.NewMemoryStore()
	var sharedStore domainservice.RevocationStore
	if cfg.Redis.Enabled {
		redisConn := redis.NewConnection(redis.ConfigFromSettings(cfg.Redis), appLogger)
		err := redisConn.Connect(ctx)
		if err != nil && !errors.Is(err, redis.ErrUnreachable) {
			appLogger.Warn(ctx, "Redis misconfigured, revocations stay local to this process", logger.Error(err))
		} else {
			if err != nil {
				appLogger.Warn(ctx, "Redis unreachable at startup, revocations fall back per call until it recovers", logger.Error(err))
			}
			defer redisConn.Close()
			sharedStore = redis.NewRevocationStore(redisConn.GetClient(), cfg.Tokens.CacheTimeout)
			checks["redis"] = func(ctx context.Context) error {
				_, err := redisConn.HealthCheck(ctx)
				return err
			}
		}
	}
	ledger := revocation.NewLedger(sharedStore, fallback, verifier, metrics, appLogger, revocation.WithDefaultTTL(cfg.Tokens.TTL))

	// Initialize application services
	users := userstore.NewCachedStore(postgres.NewUserStore(db.DB(), appLogger), cfg.Users.CacheTTL, metrics, appLogger)
	resolver := appservice.PassthroughSubjectResolver
	if cfg.Users.NumericSubjects {
		resolver = appservice.NumericSubjectResolver
	}
	authSvc := appservice.NewAuthenticationService(verifier, ledger, users, resolver, auditSvc, metrics, tracing.Tracer(), appLogger)
	rotation := appservice.NewKeyRotationService(store, appservice.KeyRotationConfig{
		MinLength:     cfg.Keys.MinLength,
		GenerateBytes: cfg.Keys.GenerateBytes,
		GraceDays:     cfg.Keys.GraceDays,
	}, auditSvc, metrics, appLogger)
	issuer := appservice.NewTokenIssuer(store, codec, cfg.Tokens.Issuer, cfg.Tokens.TTL, auditSvc, metrics, appLogger)

	// Initialize HTTP handlers and router
	router := httpapi.NewRouter(cfg, appLogger,
		handlers.NewHealthHandler(checks, appLogger),
		handlers.NewAuthHandler(authSvc),
		handlers.NewAdminHandler(rotation, issuer, authSvc, appLogger),
		authSvc,
		httpapi.Observability{Tracer: tracing.Tracer(), Metrics: metrics, Gatherer: registry},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return router.Start(gctx) })

	if fileSource, ok := source.(*keysource.EnvSource); ok && cfg.Keys.WatchFile && fileSource.SigningKeyFile() != "" {
		keyWatcher := watcher.NewKeyFileWatcher(fileSource.SigningKeyFile(), rotation, cfg.Keys.MinLength, appLogger)
		g.Go(func() error { return keyWatcher.Run(gctx) })
	}

	if cfg.Kafka.Enabled && cfg.Kafka.ConsumeRevocations {
		var target domainservice.RevocationStore = fallback
		if sharedStore != nil {
			target = sharedStore
		}
		consumer := consumers.NewRevocationConsumer(cfg.Kafka, target, appLogger)
		g.Go(func() error {
			defer func() { _ = consumer.Stop() }()
			return consumer.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), "Server exited with error", err)
		return
	}
	appLogger.Info(context.Background(), "Server stopped")
}

// newConfigSource selects where signing keys are read from.
func newConfigSource(cfg *config.Config, log logger.Logger) (domainservice.ConfigSource, error) {
	if cfg.Keys.Source == "vault" {
		client, err := keysource.NewVaultClient(cfg.Vault)
		if err != nil {
			return nil, errors.ErrConfiguration.WithError(err)
		}
		return keysource.NewVaultSource(client, cfg.Vault, cfg.Keys.Debug, log), nil
	}
	return keysource.NewEnvSource(cfg.Keys), nil
}
