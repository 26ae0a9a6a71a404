package app

import (
	"os"
	"strings"
)

// Config описывает настройки запуска сервиса корзины.
type Config struct {
	// HTTPAddr — адрес JSON API корзины.
	HTTPAddr string
	// MetricsAddr — адрес HTTP-сервера метрик и health checks.
	MetricsAddr string
	// StorageKey — ключ durable-хранилища, под которым лежит снапшот корзины.
	// Контексты, разделяющие ключ, видят одну корзину.
	StorageKey string
	// RedisAddr включает Redis-хранилище (предпочтительный durable-слой).
	RedisAddr string
	// PostgresDSN включает PostgreSQL-хранилище, если Redis не настроен.
	PostgresDSN string
	// CatalogDSN включает каталог из базы; иначе используется встроенное меню.
	CatalogDSN string
	// KafkaBrokers включает фид событий корзины (опционально).
	KafkaBrokers []string
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		StorageKey:  "bigsmash_cart",
	}
}

// ConfigFromEnv формирует конфигурацию, позволяя переопределить
// настройки через переменные окружения.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CART_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CART_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("CART_STORAGE_KEY"); v != "" {
		cfg.StorageKey = v
	}
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("CART_REDIS_ADDR"))
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("CART_POSTGRES_DSN"))
	cfg.CatalogDSN = strings.TrimSpace(os.Getenv("CART_CATALOG_DSN"))
	if v := strings.TrimSpace(os.Getenv("CART_KAFKA_BROKERS")); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	return cfg
}
