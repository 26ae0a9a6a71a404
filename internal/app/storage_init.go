package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/catalog"
	"github.com/vladislavdragonenkov/cart/internal/domain"
	"github.com/vladislavdragonenkov/cart/internal/health"
	"github.com/vladislavdragonenkov/cart/internal/storage/memory"
	"github.com/vladislavdragonenkov/cart/internal/storage/postgres"
	"github.com/vladislavdragonenkov/cart/internal/storage/redis"
)

// dependencies собирает закрываемые ресурсы и health-проверки,
// накопленные при инициализации.
type dependencies struct {
	closers []func() error
	checks  map[string]health.CheckFunc
}

func newDependencies() *dependencies {
	return &dependencies{checks: make(map[string]health.CheckFunc)}
}

func (d *dependencies) addCloser(fn func() error) {
	d.closers = append(d.closers, fn)
}

func (d *dependencies) addCheck(name string, fn health.CheckFunc) {
	d.checks[name] = fn
}

// close закрывает ресурсы в обратном порядке инициализации.
func (d *dependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close dependency")
		}
	}
}

// newSnapshotStore выбирает durable-хранилище снапшота корзины:
// Redis, если настроен; иначе PostgreSQL; иначе in-memory.
// In-memory хранилище не переживает рестарт и не видно другим процессам,
// поэтому его выбор логируется как предупреждение.
func newSnapshotStore(ctx context.Context, cfg Config, deps *dependencies, logger *log.Entry) (domain.SnapshotStore, error) {
	if cfg.RedisAddr != "" {
		store, err := redis.Open(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open redis snapshot store: %w", err)
		}
		deps.addCloser(store.Close)
		deps.addCheck("redis", store.Ping)
		logger.WithField("addr", cfg.RedisAddr).Info("снапшоты корзины хранятся в Redis")
		return store, nil
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres snapshot store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		deps.addCloser(store.Close)
		deps.addCheck("postgres", store.Ping)
		logger.Info("снапшоты корзины хранятся в PostgreSQL")
		return postgres.NewSnapshotStore(store,
			postgres.WithLogger(logger.WithField("component", "postgres-store")),
		), nil
	}

	logger.Warn("durable-хранилище не настроено, снапшоты корзины живут только в памяти процесса")
	return memory.NewSnapshotStore(), nil
}

// newCatalog выбирает источник каталога: база продуктов, если настроена,
// иначе встроенное меню.
func newCatalog(ctx context.Context, cfg Config, deps *dependencies, logger *log.Entry) (domain.Catalog, error) {
	if cfg.CatalogDSN == "" {
		logger.Info("каталог продуктов: встроенное меню")
		return catalog.NewMemoryCatalog(), nil
	}

	pg, err := catalog.OpenPGCatalog(ctx, cfg.CatalogDSN)
	if err != nil {
		return nil, fmt.Errorf("open product catalog: %w", err)
	}
	deps.addCloser(pg.Close)
	logger.Info("каталог продуктов: PostgreSQL")
	return pg, nil
}
