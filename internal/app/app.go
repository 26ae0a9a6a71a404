package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/engine"
	healthcheck "github.com/vladislavdragonenkov/cart/internal/health"
	"github.com/vladislavdragonenkov/cart/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cart/internal/metrics"
	"github.com/vladislavdragonenkov/cart/internal/service/httpapi"
	"github.com/vladislavdragonenkov/cart/internal/version"
)

// Run собирает зависимости и запускает сервис корзины: JSON API на
// HTTPAddr и метрики с health checks на MetricsAddr. Блокируется до
// отмены ctx или падения API-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps := newDependencies()
	defer deps.close(logger)

	store, err := newSnapshotStore(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	productCatalog, err := newCatalog(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger.WithField("component", "cart-engine")),
		engine.WithMetrics(metrics.NewCartMetrics()),
	}

	// Инициализация Kafka producer (опционально)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			deps.addCloser(producer.Close)
			engineOpts = append(engineOpts, engine.WithPublisher(producer))
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	cartEngine := engine.New(ctx, store, cfg.StorageKey, engineOpts...)

	// Наблюдатель чужих записей: контексты, разделяющие ключ хранилища,
	// видят изменения друг друга.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := cartEngine.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("cart watch loop stopped")
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	for name, check := range deps.checks {
		healthHandler.Register(name, check)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	handler := httpapi.NewHandler(cartEngine, productCatalog, logger.WithField("component", "httpapi"))
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler.Routes()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API корзины слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис корзины")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
