package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"order-gateway/internal/auditlog"
	"order-gateway/internal/broker"
	"order-gateway/internal/broker/registry"
	"order-gateway/internal/cache/redis"
	"order-gateway/internal/credentials"
	"order-gateway/internal/events"
	"order-gateway/internal/gateway"
	"order-gateway/internal/instruments"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
	"order-gateway/internal/reconcile"
	"order-gateway/internal/store"
)

// app holds every long-lived component of one gateway process.
type app struct {
	cfg      *store.Config
	resolver *instruments.Mapper
	adapter  interfaces.BrokerAdapter
	creds    interfaces.CredentialStore
	redis    *redis.Client
	audit    *auditlog.Recorder
	events   *events.Dispatcher
	gateway  *gateway.Service
}

// initializeSystem loads .env and sets up logging and tracing. Logs go to
// stderr; stdout carries command results.
func initializeSystem() error {
	_ = godotenv.Load()

	cfg := logger.LoadConfigFromEnv()
	cfg.Output = os.Stderr
	if err := logger.InitWithConfig(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info(context.Background(), "Logger initialized",
		"level", cfg.Level, "detailed", logger.IsDebugEnabled(), "tracing", logger.IsTracingEnabled())
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeResolver loads the instrument master. Without one every order
// fails to resolve, so a missing file is fatal.
func initializeResolver(ctx context.Context, cfg *store.Config) (*instruments.Mapper, error) {
	if cfg.Instruments.CSV == "" {
		logger.Warn(ctx, "No instrument master configured; orders cannot be resolved")
		return instruments.NewMapper(), nil
	}
	m, err := instruments.LoadFile(ctx, cfg.Instruments.CSV)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Instrument master loaded", "path", cfg.Instruments.CSV, "count", m.Len())
	return m, nil
}

// initializeAdapter resolves the configured broker once at startup.
func initializeAdapter(ctx context.Context, cfg *store.Config, res *instruments.Mapper) (interfaces.BrokerAdapter, error) {
	a, err := registry.Open(cfg.Broker.Name, broker.Params{
		BaseURL:  cfg.Broker.BaseURL,
		Timeout:  cfg.Timeout(),
		Resolver: res,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Broker adapter ready", "broker", a.Name())
	return a, nil
}

func initializeRedis(ctx context.Context, cfg *store.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	c, err := redis.New(ctx, redis.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Connected to Redis", "addr", cfg.Redis.Addr)
	return c, nil
}

func initializeCredentials(cfg *store.Config, rc *redis.Client) interfaces.CredentialStore {
	if cfg.Credentials.Source == "redis" {
		return redis.NewCredentials(rc)
	}
	return credentials.NewStatic(cfg.Credentials.Users)
}

func initializeLocker(cfg *store.Config, rc *redis.Client) interfaces.Locker {
	if cfg.Reconcile.Lock == "redis" {
		return redis.NewLocker(rc, cfg.LockTTL(), cfg.LockWait())
	}
	return reconcile.NewKeyedMutex()
}

// initializeAudit opens the configured audit store behind an async
// recorder. A nil recorder means auditing is off.
func initializeAudit(ctx context.Context, cfg *store.Config) (*auditlog.Recorder, error) {
	var st interfaces.AuditStore
	switch cfg.Audit.Sink {
	case "none":
		return nil, nil
	case "postgres":
		pg, err := auditlog.OpenPostgres(ctx, cfg.Audit.DSN)
		if err != nil {
			return nil, err
		}
		st = pg
	default:
		fs, err := auditlog.NewFileStore(cfg.Audit.Dir)
		if err != nil {
			return nil, err
		}
		if err := fs.CompressOlder(cfg.Audit.RetentionDays); err != nil {
			logger.Warn(ctx, "Failed to compress old audit logs", "error", err)
		}
		st = fs
	}
	logger.Info(ctx, "Audit log ready", "sink", cfg.Audit.Sink)
	return auditlog.NewRecorder(st, cfg.Audit.QueueSize), nil
}

func initializeEvents(cfg *store.Config, rc *redis.Client) *events.Dispatcher {
	var sinks []interfaces.EventSink
	for _, name := range cfg.Events.Sinks {
		switch name {
		case "redis":
			sinks = append(sinks, redis.NewPublisher(rc, cfg.Events.ChannelPrefix))
		default:
			sinks = append(sinks, events.LogSink{})
		}
	}
	return events.NewDispatcher(cfg.Events.QueueSize, sinks...)
}

// newApp wires the gateway from configuration.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if a.resolver, err = initializeResolver(ctx, cfg); err != nil {
		return nil, err
	}
	if a.adapter, err = initializeAdapter(ctx, cfg, a.resolver); err != nil {
		return nil, err
	}
	if a.redis, err = initializeRedis(ctx, cfg); err != nil {
		return nil, err
	}
	a.creds = initializeCredentials(cfg, a.redis)
	if a.audit, err = initializeAudit(ctx, cfg); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.events = initializeEvents(cfg, a.redis)

	deps := gateway.Deps{
		Adapter:         a.adapter,
		Credentials:     a.creds,
		Locker:          initializeLocker(cfg, a.redis),
		Events:          a.events,
		StrictSquareOff: cfg.SquareOff.Strict,
	}
	if a.audit != nil {
		deps.Auditor = a.audit
	}
	if a.gateway, err = gateway.New(deps); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Close flushes queued audit entries and events, then releases connections.
func (a *app) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.events != nil {
		if err := a.events.Close(ctx); err != nil {
			logger.Warn(ctx, "Events not flushed", "error", err)
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(ctx); err != nil {
			logger.Warn(ctx, "Audit log not flushed", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = logger.Shutdown(ctx)
}
