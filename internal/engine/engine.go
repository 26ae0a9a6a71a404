package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/domain"
	"github.com/vladislavdragonenkov/cart/internal/metrics"
)

// Имена операций для метрик и логов.
const (
	opAdd      = "add"
	opIncrease = "increase"
	opDecrease = "decrease"
	opRemove   = "remove"
	opClear    = "clear"
)

// Options задаёт параметры движка корзины.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.CartMetrics
	Publisher domain.EventPublisher
	Now       func() time.Time
}

// Option настраивает Engine.
type Option func(*Options)

// WithLogger задаёт logger движка.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики движка (nil допустим).
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithPublisher задаёт внешний фид событий корзины (nil допустим).
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithClock задаёт источник времени (для детерминированных тестов tie-break).
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Engine владеет корзиной в памяти и является единственной точкой её мутации.
// Экземпляр создаётся композиционным корнем приложения и передаётся
// коллабораторам по ссылке; ambient-глобального экземпляра нет.
//
// Несколько движков в разных контекстах могут делить один ключ хранилища:
// каждая запись снапшота оповещает остальные контексты, и они замещают свою
// корзину снапшотом целиком (last-writer-wins, без слияния правок).
type Engine struct {
	store     domain.SnapshotStore
	key       string
	origin    string
	logger    *log.Entry
	metrics   *metrics.CartMetrics
	publisher domain.EventPublisher
	now       func() time.Time

	mu          sync.Mutex
	cart        *domain.Cart
	subscribers map[uint64]func()
	nextSub     uint64
}

// New создаёт движок и восстанавливает корзину из хранилища. Нечитаемый или
// повреждённый снапшот — не фатальная ошибка: движок стартует с пустой
// корзиной и пишет Warn в лог.
func New(ctx context.Context, store domain.SnapshotStore, key string, options ...Option) *Engine {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-engine")
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	e := &Engine{
		store:       store,
		key:         key,
		origin:      uuid.NewString(),
		logger:      logger.WithField("cart_key", key),
		metrics:     opts.Metrics,
		publisher:   opts.Publisher,
		now:         now,
		cart:        domain.NewCart(),
		subscribers: make(map[uint64]func()),
	}

	lines, err := store.Load(ctx, key)
	switch {
	case err == nil:
		e.cart.Replace(lines)
	case domain.IsSnapshotMissing(err):
		// Новая сессия: корзина создаётся пустой.
	default:
		e.logger.WithError(err).Warn("cart snapshot unreadable, starting with an empty cart")
	}

	totals := e.cart.Totals()
	e.metrics.SetCartState(totals.ItemCount, totals.TotalPrice)
	return e
}

// Origin возвращает идентификатор контекста движка.
func (e *Engine) Origin() string {
	return e.origin
}

// AddLine добавляет комбинацию (продукт, selection) в корзину. Базовая цена
// резолвится как override > размер из selection > цена продукта > 0 и
// замораживается в позиции. Если структурно равная комбинация уже есть,
// увеличивается её количество, а замороженная цена существующей позиции
// побеждает. Некорректное количество зажимается до 1.
func (e *Engine) AddLine(ctx context.Context, product *domain.Product, quantity int, selection domain.Selection, basePriceOverride *float64) {
	if quantity < 1 {
		quantity = 1
	}

	var p domain.Product
	if product != nil {
		p = *product
	}

	line := domain.Line{
		ProductID:     p.ID,
		Slug:          p.Slug,
		Name:          p.Name,
		UnitBasePrice: domain.ResolveBasePrice(product, selection, basePriceOverride),
		Quantity:      quantity,
		Selection:     selection,
		AddedAt:       e.now(),
	}

	e.mu.Lock()
	merged := e.cart.Add(line)
	e.persistLocked(ctx, opAdd)
	e.mu.Unlock()

	e.logger.WithFields(log.Fields{
		"slug":     p.Slug,
		"quantity": quantity,
		"merged":   merged,
	}).Debug("line added")

	e.notify()
	e.publish(domain.CartEventLineAdded, p.Slug)
}

// IncreaseQuantity увеличивает на единицу количество самой свежей позиции
// slug (максимальный AddedAt). Отсутствие позиции — no-op без ошибки.
func (e *Engine) IncreaseQuantity(ctx context.Context, slug string) {
	e.mu.Lock()
	changed := e.cart.Increase(slug)
	if changed {
		e.persistLocked(ctx, opIncrease)
	}
	e.mu.Unlock()

	if changed {
		e.notify()
		e.publish(domain.CartEventLineAdded, slug)
	}
}

// DecreaseQuantity уменьшает на единицу количество самой свежей позиции slug;
// позиция с количеством 1 удаляется целиком. Отсутствие позиции — no-op.
func (e *Engine) DecreaseQuantity(ctx context.Context, slug string) {
	e.mu.Lock()
	changed, removed := e.cart.Decrease(slug)
	if changed {
		e.persistLocked(ctx, opDecrease)
	}
	e.mu.Unlock()

	if changed {
		e.notify()
		if removed {
			e.publish(domain.CartEventLineRemoved, slug)
		}
	}
}

// RemoveLine удаляет все позиции slug, а не только один вариант.
func (e *Engine) RemoveLine(ctx context.Context, slug string) {
	e.mu.Lock()
	removed := e.cart.RemoveBySlug(slug)
	if removed > 0 {
		e.persistLocked(ctx, opRemove)
	}
	e.mu.Unlock()

	if removed > 0 {
		e.notify()
		e.publish(domain.CartEventLineRemoved, slug)
	}
}

// Clear опустошает корзину.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.cart.Clear()
	e.persistLocked(ctx, opClear)
	e.mu.Unlock()

	e.notify()
	e.publish(domain.CartEventCleared, "")
}

// Totals пересчитывает агрегаты из замороженных входов каждой позиции.
// Кэш totalPrice на позиции не используется.
func (e *Engine) Totals() domain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Totals()
}

// QuantityForSlug возвращает суммарное количество по всем позициям slug.
func (e *Engine) QuantityForSlug(slug string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.QuantityForSlug(slug)
}

// Lines возвращает глубокую копию позиций для отображения.
func (e *Engine) Lines() []domain.Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Snapshot()
}

// Subscribe регистрирует callback, вызываемый после каждой успешной мутации
// (локальной или из другого контекста). Payload не передаётся: подписчики
// перечитывают актуальные строки/агрегаты сами. Возвращает функцию отписки.
func (e *Engine) Subscribe(fn func()) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// Run слушает события перезаписи ключа хранилища до отмены ctx. Событие из
// чужого контекста замещает корзину в памяти снапшотом из хранилища целиком
// и пере-оповещает локальных подписчиков.
func (e *Engine) Run(ctx context.Context) error {
	events, err := e.store.Watch(ctx, e.key)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Origin == e.origin {
				continue
			}
			e.reload(ctx)
		}
	}
}

// reload перечитывает снапшот после внешней записи.
func (e *Engine) reload(ctx context.Context) {
	lines, err := e.store.Load(ctx, e.key)
	if err != nil && !domain.IsSnapshotMissing(err) {
		e.logger.WithError(err).Warn("reload after external change failed, keeping in-memory cart")
		return
	}

	e.mu.Lock()
	e.cart.Replace(lines)
	totals := e.cart.Totals()
	e.mu.Unlock()

	e.metrics.RecordExternalReload()
	e.metrics.SetCartState(totals.ItemCount, totals.TotalPrice)
	e.logger.WithField("lines", len(lines)).Debug("cart replaced by external snapshot")

	e.notify()
}

// persistLocked пишет снапшот в хранилище. Вызывается под e.mu.
// Сбой записи не откатывает корзину в памяти и не всплывает к вызывающему:
// движок предпочитает консистентность сессии durable-гарантиям.
func (e *Engine) persistLocked(ctx context.Context, op string) {
	e.metrics.RecordMutation(op)

	lines := e.cart.Snapshot()
	start := time.Now()
	err := e.store.Save(ctx, e.key, lines, e.origin)
	e.metrics.RecordPersistDuration(time.Since(start))

	if err != nil {
		e.metrics.RecordPersistFailure()
		e.logger.WithError(err).WithField("op", op).Warn("cart snapshot write failed, in-memory cart stays authoritative")
	}

	totals := e.cart.Totals()
	e.metrics.SetCartState(totals.ItemCount, totals.TotalPrice)
}

// notify вызывает подписчиков вне блокировки: callback может сам
// обращаться к движку.
func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// publish отправляет событие во внешний фид, если он настроен.
func (e *Engine) publish(eventType domain.CartEventType, slug string) {
	if e.publisher == nil {
		return
	}

	totals := e.Totals()
	event := domain.CartEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		CartKey:    e.key,
		Slug:       slug,
		ItemCount:  totals.ItemCount,
		TotalPrice: totals.TotalPrice,
		OccurredAt: e.now(),
	}
	if err := e.publisher.Publish(event); err != nil {
		e.logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish cart event")
	}
}
