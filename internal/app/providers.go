package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	// Domains
	"github.com/uniedit/enhancer/internal/domain/enhance"
	"github.com/uniedit/enhancer/internal/domain/quota"
	"github.com/uniedit/enhancer/internal/model"

	// Inbound adapters
	enhancehttp "github.com/uniedit/enhancer/internal/adapter/inbound/gin"

	// Ports
	"github.com/uniedit/enhancer/internal/port/inbound"
	"github.com/uniedit/enhancer/internal/port/outbound"

	// Outbound adapters
	"github.com/uniedit/enhancer/internal/adapter/outbound/catalog"
	"github.com/uniedit/enhancer/internal/adapter/outbound/enhanceprovider"
	"github.com/uniedit/enhancer/internal/adapter/outbound/memory"
	"github.com/uniedit/enhancer/internal/adapter/outbound/postgres"
	redisadapter "github.com/uniedit/enhancer/internal/adapter/outbound/redis"
	s3adapter "github.com/uniedit/enhancer/internal/adapter/outbound/s3"

	// Infrastructure
	"github.com/uniedit/enhancer/internal/infra/httpclient"
	"github.com/uniedit/enhancer/internal/shared/cache"
	"github.com/uniedit/enhancer/internal/shared/config"
	"github.com/uniedit/enhancer/internal/shared/database"
	"github.com/uniedit/enhancer/internal/shared/logger"

	// Utils
	"github.com/uniedit/enhancer/internal/utils/metrics"
)

const redisKeyPrefix = "enhancer:"

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideKVStore,
	ProvideObjectStore,
)

// ProvideLogger creates a zap logger instance.
func ProvideLogger(cfg *config.Config) *zap.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a metrics instance. Disabled metrics yield nil,
// which every recorder accepts.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewWithRegistry(cfg.Metrics.Namespace, reg)
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideKVStore creates the quota and credit store for the configured backend.
func ProvideKVStore(cfg *config.Config, zapLog *zap.Logger) (outbound.KVStorePort, func(), error) {
	switch cfg.Quota.Backend {
	case "redis":
		client, err := cache.NewRedisClient(context.Background(), &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis: %w", err)
		}
		cleanup := func() {
			if err := cache.Close(client); err != nil {
				zapLog.Warn("Failed to close redis", zap.Error(err))
			}
		}
		return redisadapter.NewKVStore(client, redisKeyPrefix), cleanup, nil

	case "postgres":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		if err := postgres.AutoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("migrate kv_entries: %w", err)
		}
		cleanup := func() {
			if err := database.Close(db); err != nil {
				zapLog.Warn("Failed to close database", zap.Error(err))
			}
		}
		return postgres.NewKVStore(db), cleanup, nil

	default:
		zapLog.Warn("Using in-memory quota store; usage is lost on restart")
		return memory.NewKVStore(), func() {}, nil
	}
}

// ProvideObjectStore creates the object store for the configured backend.
func ProvideObjectStore(cfg *config.Config, zapLog *zap.Logger) (outbound.ObjectStorePort, error) {
	if cfg.Storage.Backend != "s3" {
		zapLog.Warn("Using in-memory object store; files are lost on restart")
		return memory.NewObjectStore(), nil
	}
	client, err := s3adapter.NewClient(context.Background(), &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	return s3adapter.NewObjectStore(client, cfg.Storage.Bucket), nil
}

// ===== Provider Adapter Providers =====

// ProviderSet provides the model catalog and provider adapters.
var ProviderSet = wire.NewSet(
	ProvideCatalog,
	wire.Bind(new(outbound.ModelCatalogPort), new(*catalog.Catalog)),
	enhanceprovider.NewNormalizer,
	ProvideProviderRegistry,
)

// ProvideCatalog loads the model catalog.
func ProvideCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(cfg.Providers.CatalogPath)
}

// ProvideProviderRegistry creates both provider adapters, each behind a
// circuit breaker.
func ProvideProviderRegistry(
	cfg *config.Config,
	client *http.Client,
	normalizer *enhanceprovider.Normalizer,
	zapLog *zap.Logger,
) outbound.ProviderRegistryPort {
	breaker := enhanceprovider.BreakerConfig{
		FailureThreshold: cfg.Providers.Breaker.FailureThreshold,
		Interval:         cfg.Providers.Breaker.Interval,
		Timeout:          cfg.Providers.Breaker.CircuitTimeout,
	}

	var binding outbound.InferenceBindingPort
	if ip := cfg.Providers.InProcess; ip.BaseURL != "" {
		binding = enhanceprovider.NewHTTPBinding(client, enhanceprovider.HTTPBindingConfig{
			BaseURL: ip.BaseURL,
			Token:   ip.Token,
		}, zapLog)
	}
	inProcess := enhanceprovider.NewInProcessAdapter(binding, normalizer, zapLog)

	rj := cfg.Providers.RemoteJob
	remoteJob := enhanceprovider.NewRemoteJobAdapter(client, enhanceprovider.RemoteJobConfig{
		BaseURL:                 rj.BaseURL,
		Token:                   rj.Token,
		PollInterval:            rj.PollInterval,
		PollTimeout:             rj.PollTimeout,
		SyncUnsupportedPrefixes: rj.SyncUnsupportedPrefixes,
		MaxOutputBytes:          rj.MaxOutputBytes,
	}, normalizer, zapLog)

	return enhanceprovider.NewRegistry(
		enhanceprovider.NewBreakerAdapter(inProcess, breaker, zapLog),
		enhanceprovider.NewBreakerAdapter(remoteJob, breaker, zapLog),
	)
}

// ===== Quota Providers =====

// QuotaSet provides the quota ledger and credit balances.
var QuotaSet = wire.NewSet(
	ProvideLedger,
	ProvideCredits,
)

// ProvideLedger creates the quota ledger for the configured schema.
func ProvideLedger(cfg *config.Config, kv outbound.KVStorePort, zapLog *zap.Logger) (outbound.QuotaLedgerPort, error) {
	return quota.NewLedger(quota.Schema(cfg.Quota.Schema), kv, zapLog)
}

// ProvideCredits creates the credits balance store.
func ProvideCredits(kv outbound.KVStorePort, zapLog *zap.Logger) outbound.CreditsPort {
	return quota.NewCredits(kv, zapLog)
}

// ===== Enhance Domain Providers =====

// EnhanceSet provides the enhancement domain and its HTTP handlers.
var EnhanceSet = wire.NewSet(
	ProvideEnhanceConfig,
	enhance.NewDomain,
	wire.Bind(new(inbound.EnhanceDomain), new(*enhance.Domain)),
	ProvideEnhanceHandler,
	enhancehttp.NewFilesHandler,
)

// ProvideEnhanceConfig maps application configuration to the domain config.
func ProvideEnhanceConfig(cfg *config.Config) *enhance.Config {
	e := cfg.Enhance
	return &enhance.Config{
		MinOutputBytes:      e.MinOutputBytes,
		MaxUploadBytes:      e.MaxUploadBytes,
		AllowedContentTypes: e.AllowedContentTypes,
		GuestDailyLimit:     e.GuestDailyLimit,
		UserDailyLimit:      e.UserDailyLimit,
		GuestMonthlyLimit:   e.GuestMonthlyLimit,
		UserMonthlyLimit:    e.UserMonthlyLimit,
		MaxUpscale:          e.MaxUpscale,
		AllowFaceEnhance:    e.AllowFaceEnhance,
		MaxPromptLength:     e.MaxPromptLength,
		EnabledProviders: map[model.ProviderKind]bool{
			model.ProviderKindInProcess: cfg.Providers.InProcess.Enabled,
			model.ProviderKindRemoteJob: cfg.Providers.RemoteJob.Enabled,
		},
		PublicURLTemplate: cfg.Storage.PublicURLTemplate,
		DispatchTimeout:   e.DispatchTimeout,
	}
}

// ProvideEnhanceHandler creates the enhancement HTTP handler.
func ProvideEnhanceHandler(
	domain inbound.EnhanceDomain,
	models outbound.ModelCatalogPort,
	cfg *config.Config,
) *enhancehttp.EnhanceHandler {
	return enhancehttp.NewEnhanceHandler(domain, models, cfg.Enhance.MaxUploadBytes)
}

// ===== Combined Sets =====

// AppSet combines all provider sets.
var AppSet = wire.NewSet(
	InfraSet,
	ProviderSet,
	QuotaSet,
	EnhanceSet,
)
