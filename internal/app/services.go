package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/cache"
	"github.com/BnB-Initivatives/stox-prod-test/internal/rbac"
	"github.com/BnB-Initivatives/stox-prod-test/internal/shared"
)

// lowStockNamespace prefixes the versioned low-stock cache keys in Redis.
const lowStockNamespace = "stox:inventory"

// Services bundles the domain services shared by the API and worker binaries.
type Services struct {
	Catalog     *catalog.Service
	Inventory   *inventory.Service
	RBAC        *rbac.Service
	StockCache  *inventory.StockCache
	// Idempotency is shared with the worker's cleanup task.
	Idempotency *shared.IdempotencyStore
}

// ServiceParams lists what BuildServices wires together. Notifier and
// Metrics may be nil.
type ServiceParams struct {
	Config   *Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Notifier inventory.Notifier
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// BuildServices constructs the catalog, inventory and RBAC services on top of
// the shared pool and Redis client.
func BuildServices(p ServiceParams) *Services {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := p.Config
	if cfg == nil {
		cfg = &Config{}
	}

	var stockCache *inventory.StockCache
	if p.Redis != nil {
		stockCache = inventory.NewStockCache(cache.NewVersioned(p.Redis, lowStockNamespace, cfg.LowStockCacheTTL))
	}

	var invalidator catalog.Invalidator
	if stockCache != nil {
		invalidator = stockCache
	}
	catalogService := catalog.NewService(catalog.NewRepository(p.Pool), invalidator, logger)

	idempotency := shared.NewIdempotencyStore(p.Pool)
	deps := inventory.Dependencies{
		Catalog:     catalogService,
		Audit:       shared.NewAuditLogger(p.Pool),
		Idempotency: idempotency,
		Cache:       stockCache,
		Logger:      logger,
	}
	if p.Notifier != nil {
		deps.Notifier = p.Notifier
	}
	if p.Metrics != nil {
		deps.Metrics = p.Metrics
	}
	inventoryService := inventory.NewService(inventory.NewRepository(p.Pool), inventory.ServiceConfig{
		SplitPhases:         cfg.InventorySplitPhases,
		IdempotencyClaimTTL: cfg.IdempotencyClaimTTL,
	}, deps)

	return &Services{
		Catalog:     catalogService,
		Inventory:   inventoryService,
		RBAC:        rbac.NewService(rbac.NewRepository(p.Pool), catalogService, cfg.BcryptCost, logger),
		StockCache:  stockCache,
		Idempotency: idempotency,
	}
}
