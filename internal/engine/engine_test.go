package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cart/internal/domain"
	"github.com/vladislavdragonenkov/cart/internal/engine"
	"github.com/vladislavdragonenkov/cart/internal/storage/memory"
)

const testKey = "bigsmash_cart"

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// tickingClock выдаёт строго возрастающие метки времени для tie-break.
func tickingClock() func() time.Time {
	var tick int64
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Second)
	}
}

func newTestEngine(t *testing.T, store domain.SnapshotStore) *engine.Engine {
	t.Helper()
	return engine.New(context.Background(), store, testKey,
		engine.WithLogger(loggerForTests()),
		engine.WithClock(tickingClock()),
	)
}

func floatPtr(v float64) *float64 { return &v }

func ketchupSelection() domain.Selection {
	return domain.Selection{
		"sauces": {Choices: map[string]domain.ChoicePick{
			"Ketchup": {Price: 0, Quantity: 1},
		}},
	}
}

func TestAddLineMergesEqualCombination(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Name: "Classique", Price: floatPtr(6.0)}

	e.AddLine(ctx, product, 1, ketchupSelection(), nil)
	e.AddLine(ctx, product, 1, ketchupSelection(), nil)

	lines := e.Lines()
	require.Len(t, lines, 1, "two adds of the same combination must merge")
	require.Equal(t, 2, lines[0].Quantity)

	totals := e.Totals()
	require.Equal(t, 2, totals.ItemCount)
	require.InDelta(t, 12.0, totals.TotalPrice, 1e-9)
}

func TestAddLineKeepsDistinctSelections(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	s2 := domain.Selection{
		"sauces": {Choices: map[string]domain.ChoicePick{
			"Ketchup": {Price: 0, Quantity: 2},
		}},
	}

	e.AddLine(ctx, product, 1, ketchupSelection(), nil)
	e.AddLine(ctx, product, 1, s2, nil)

	require.Len(t, e.Lines(), 2, "selections differing by one pick quantity must stay distinct")
}

func TestAddLineFreezesBasePrice(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 9, Slug: "tacos", Name: "Tacos"}

	e.AddLine(ctx, product, 1, nil, floatPtr(7.0))
	// Та же комбинация с другим override: замороженная цена побеждает.
	e.AddLine(ctx, product, 1, nil, floatPtr(10.0))

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.InDelta(t, 7.0, lines[0].UnitBasePrice, 1e-9)
	require.InDelta(t, 14.0, e.Totals().TotalPrice, 1e-9)
}

func TestAddLineClampsInvalidQuantity(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	e.AddLine(ctx, product, 0, nil, nil)

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, 1, lines[0].Quantity, "non-positive quantity must be clamped to 1")
}

func TestAddLineSizeVariantOverride(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	// Продукт без собственной цены: стоимость определяется выбором размера.
	product := &domain.Product{ID: 20, Slug: "frites", Name: "Frites"}

	e.AddLine(ctx, product, 1, nil, floatPtr(3.0))

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.InDelta(t, 3.0, lines[0].UnitBasePrice, 1e-9)
	require.InDelta(t, 3.0, e.Totals().TotalPrice, 1e-9)
}

func TestAddLineSizePriceFromSelection(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 20, Slug: "tacos", Name: "Tacos"}

	// База приходит из выбора размера, без override; размер при этом
	// не считается наценкой повторно.
	sel := domain.Selection{
		"size":   {Choice: &domain.ChoicePick{Name: "1 viande", Price: 7.0}},
		"sauces": {Choice: &domain.ChoicePick{Name: "Ketchup", Price: 0}},
	}
	e.AddLine(ctx, product, 1, sel, nil)

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.InDelta(t, 7.0, lines[0].UnitBasePrice, 1e-9)
	require.InDelta(t, 7.0, e.Totals().TotalPrice, 1e-9)
}

func TestAddLineUnknownPriceResolvesToZero(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()

	e.AddLine(ctx, &domain.Product{ID: 42, Slug: "mystery"}, 2, nil, nil)

	totals := e.Totals()
	require.Equal(t, 2, totals.ItemCount)
	require.Zero(t, totals.TotalPrice)
}

func TestDecreaseMonotoneRemoval(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	e.AddLine(ctx, product, 3, nil, nil)

	for i := 0; i < 3; i++ {
		e.DecreaseQuantity(ctx, "smash-classique")
	}
	require.Empty(t, e.Lines(), "line must disappear once quantity reaches zero")

	// Лишний вызов — no-op: ни ошибки, ни воскресшей позиции.
	e.DecreaseQuantity(ctx, "smash-classique")
	require.Empty(t, e.Lines())
	require.Zero(t, e.Totals().ItemCount)
}

func TestQuantityControlsTargetNewestVariant(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	older := domain.Selection{"sauces": {Choice: &domain.ChoicePick{Name: "Ketchup", Price: 0}}}
	newer := domain.Selection{"sauces": {Choice: &domain.ChoicePick{Name: "Smoky", Price: 0.5}}}

	e.AddLine(ctx, product, 1, older, nil)
	e.AddLine(ctx, product, 1, newer, nil)

	e.IncreaseQuantity(ctx, "smash-classique")

	lines := e.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, 1, lines[0].Quantity, "older variant must stay untouched")
	require.Equal(t, 2, lines[1].Quantity, "newest variant takes the increment")

	e.DecreaseQuantity(ctx, "smash-classique")
	lines = e.Lines()
	require.Equal(t, 1, lines[0].Quantity)
	require.Equal(t, 1, lines[1].Quantity)
}

func TestRemoveLineDropsAllVariants(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	burger := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}
	tacos := &domain.Product{ID: 2, Slug: "tacos", Price: floatPtr(7.0)}

	e.AddLine(ctx, burger, 1, ketchupSelection(), nil)
	e.AddLine(ctx, burger, 1, nil, nil)
	e.AddLine(ctx, tacos, 1, nil, nil)

	e.RemoveLine(ctx, "smash-classique")

	lines := e.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, "tacos", lines[0].Slug)
}

func TestTotalsIdempotent(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()

	e.AddLine(ctx, &domain.Product{ID: 9, Slug: "smash-bacon", Price: floatPtr(8.50)}, 2, domain.Selection{
		"supplements": {Choices: map[string]domain.ChoicePick{
			"Bacon": {Price: 2.0, Quantity: 1},
		}},
		"drink": {Choice: &domain.ChoicePick{Name: "Cola", Price: 0}},
	}, nil)

	first := e.Totals()
	second := e.Totals()
	require.Equal(t, first, second)
	require.Equal(t, 2, first.ItemCount)
	require.InDelta(t, 21.0, first.TotalPrice, 1e-9)
}

func TestQuantityForSlugSumsVariants(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	e.AddLine(ctx, product, 2, ketchupSelection(), nil)
	e.AddLine(ctx, product, 3, nil, nil)

	require.Equal(t, 5, e.QuantityForSlug("smash-classique"))
	require.Zero(t, e.QuantityForSlug("unknown"))
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	e := newTestEngine(t, memory.NewSnapshotStore())
	ctx := context.Background()
	product := &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}

	var calls int32
	unsubscribe := e.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	e.AddLine(ctx, product, 1, nil, nil)
	e.IncreaseQuantity(ctx, "smash-classique")
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// No-op мутации подписчиков не дёргают.
	e.IncreaseQuantity(ctx, "unknown")
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	unsubscribe()
	e.Clear(ctx)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRoundTripThroughStore(t *testing.T) {
	store := memory.NewSnapshotStore()
	ctx := context.Background()

	first := newTestEngine(t, store)
	product := &domain.Product{ID: 1, Slug: "smash-classique", Name: "Classique", Price: floatPtr(6.0)}
	first.AddLine(ctx, product, 2, ketchupSelection(), nil)
	first.AddLine(ctx, &domain.Product{ID: 20, Slug: "frites", Name: "Frites"}, 1, nil, floatPtr(3.0))

	// Свежий контекст, читающий тот же ключ, воспроизводит позиции.
	second := newTestEngine(t, store)

	want := first.Lines()
	got := second.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ProductID, got[i].ProductID)
		require.Equal(t, want[i].Slug, got[i].Slug)
		require.Equal(t, want[i].Quantity, got[i].Quantity)
		require.InDelta(t, want[i].UnitBasePrice, got[i].UnitBasePrice, 1e-9)
		require.True(t, want[i].Selection.Equal(got[i].Selection))
	}
	require.Equal(t, first.Totals(), second.Totals())
}

func TestCrossContextReload(t *testing.T) {
	store := memory.NewSnapshotStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA := newTestEngine(t, store)
	tabB := newTestEngine(t, store)

	notified := make(chan struct{}, 8)
	tabA.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	go func() {
		_ = tabA.Run(ctx)
	}()
	// Даём watch-каналу зарегистрироваться до первой записи.
	time.Sleep(20 * time.Millisecond)

	tabB.AddLine(ctx, &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}, 2, nil, nil)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("tab A was not notified about the external write")
	}

	totals := tabA.Totals()
	require.Equal(t, 2, totals.ItemCount)
	require.InDelta(t, 12.0, totals.TotalPrice, 1e-9)
}

// failingStore отказывает в записи, но остаётся читаемым.
type failingStore struct {
	domain.SnapshotStore
	failSave bool
}

func (f *failingStore) Save(ctx context.Context, key string, lines []domain.Line, origin string) error {
	if f.failSave {
		return domain.ErrStoreUnavailable
	}
	return f.SnapshotStore.Save(ctx, key, lines, origin)
}

func TestWriteFailureKeepsInMemoryCart(t *testing.T) {
	store := &failingStore{SnapshotStore: memory.NewSnapshotStore(), failSave: true}
	e := newTestEngine(t, store)
	ctx := context.Background()

	var calls int32
	e.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	e.AddLine(ctx, &domain.Product{ID: 1, Slug: "smash-classique", Price: floatPtr(6.0)}, 1, nil, nil)

	// Мутация в памяти не откатывается, подписчики оповещаются.
	require.Len(t, e.Lines(), 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.InDelta(t, 6.0, e.Totals().TotalPrice, 1e-9)
}

// corruptStore отдаёт нечитаемый снапшот при старте.
type corruptStore struct {
	domain.SnapshotStore
}

func (c *corruptStore) Load(context.Context, string) ([]domain.Line, error) {
	return nil, domain.ErrSnapshotCorrupt
}

func TestCorruptSnapshotFallsBackToEmptyCart(t *testing.T) {
	store := &corruptStore{SnapshotStore: memory.NewSnapshotStore()}
	e := newTestEngine(t, store)

	require.Empty(t, e.Lines())
	require.Zero(t, e.Totals().ItemCount)
}
