package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luxecraft/atelier/internal/auth"
	"github.com/luxecraft/atelier/internal/cache"
	"github.com/luxecraft/atelier/internal/catalog"
	"github.com/luxecraft/atelier/internal/config"
	"github.com/luxecraft/atelier/internal/crypto"
	"github.com/luxecraft/atelier/internal/db"
	"github.com/luxecraft/atelier/internal/handlers"
	"github.com/luxecraft/atelier/internal/logging"
	"github.com/luxecraft/atelier/internal/notify"
	"github.com/luxecraft/atelier/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers

	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.1,
			EnableLogs:       true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
		sentryEnabled = true
	}

	logger := newLogger(cfg, sentryEnabled)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	orderStore, err := db.NewOrderStore(database, encryptor)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize order store: %w", err)
	}
	productStore := db.NewProductStore(database)

	rateSheet, err := catalog.NewParser().ParseFile(cfg.RatesFile)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to load rate sheet: %w", err)
	}
	if err := catalog.NewValidator().Validate(rateSheet); err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("invalid rate sheet %s: %w", cfg.RatesFile, err)
	}
	pricer := catalog.NewPricer(rateSheet)

	verifier, err := auth.NewVerifier(cfg.AdminJWTSecret)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	var notifyProviders []notify.Provider
	if cfg.ResendAPIKey != "" {
		notifyProviders = append(notifyProviders, notify.NewEmailProvider(cfg.ResendAPIKey, cfg.EmailFrom))
	}
	if cfg.WhatsAppGatewayURL != "" {
		notifyProviders = append(notifyProviders, notify.NewWhatsAppProvider(cfg.WhatsAppGatewayURL, cfg.WhatsAppToken))
	}
	dispatcher := notify.NewDispatcher(notifyProviders, cacheProvider, logger.With("component", "notify"))

	orderService := services.NewOrderService(
		orderStore,
		productStore,
		pricer,
		dispatcher,
		logger.With("component", "order_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:        cfg,
		DB:            database,
		Orders:        orderService,
		CacheProvider: cacheProvider,
		Verifier:      verifier,
		Logger:        logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
		sentryEnabled: sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

func newLogger(cfg *config.Config, sentryEnabled bool) *slog.Logger {
	var stdout slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		stdout = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		stdout = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if !sentryEnabled {
		return slog.New(stdout)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())
	return slog.New(logging.MultiHandler(stdout, sentryHandler))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
