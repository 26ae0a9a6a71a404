package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики движка корзины.
type CartMetrics struct {
	// Счётчики операций по типам (add, increase, decrease, remove, clear)
	mutations *prometheus.CounterVec

	// Сбои персистентности: корзина в памяти остаётся рабочей,
	// но durable-слой деградировал.
	persistFailures prometheus.Counter

	// Перезагрузки снапшота по событию из другого контекста.
	externalReloads prometheus.Counter

	// Гистограмма времени записи снапшота
	persistDuration prometheus.Histogram

	// Текущее состояние корзины
	items      prometheus.Gauge
	totalPrice prometheus.Gauge
}

// NewCartMetrics создаёт метрики корзины в default-реестре.
func NewCartMetrics() *CartMetrics {
	return newCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Total number of cart mutations grouped by operation",
		}, []string{"op"}),
		persistFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_persist_failures_total",
			Help: "Total number of failed cart snapshot writes",
		}),
		externalReloads: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cart_external_reloads_total",
			Help: "Total number of snapshot reloads triggered by other contexts",
		}),
		persistDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cart_persist_duration_seconds",
			Help:    "Duration of cart snapshot writes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		items: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_items",
			Help: "Current total item count in the cart",
		}),
		totalPrice: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cart_total_price",
			Help: "Current total price of the cart",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordMutation увеличивает счётчик операций указанного типа.
func (m *CartMetrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// RecordPersistFailure увеличивает счётчик сбоев записи снапшота.
func (m *CartMetrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// RecordExternalReload увеличивает счётчик перезагрузок из других контекстов.
func (m *CartMetrics) RecordExternalReload() {
	if m == nil {
		return
	}
	m.externalReloads.Inc()
}

// RecordPersistDuration записывает длительность записи снапшота.
func (m *CartMetrics) RecordPersistDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(duration.Seconds())
}

// SetCartState обновляет gauge-метрики текущего состояния корзины.
func (m *CartMetrics) SetCartState(itemCount int, totalPrice float64) {
	if m == nil {
		return
	}
	m.items.Set(float64(itemCount))
	m.totalPrice.Set(totalPrice)
}
