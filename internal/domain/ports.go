package domain

import (
	"context"
	"time"
)

// ChangeEvent сигнализирует, что снапшот корзины в хранилище перезаписан.
// Origin — идентификатор контекста, выполнившего запись: контекст,
// получивший событие со своим же Origin, обязан его игнорировать.
type ChangeEvent struct {
	Key    string
	Origin string
}

// SnapshotStore — durable key-value хранилище снапшота корзины.
// Снапшот всегда пишется целиком: частичных записей не бывает.
type SnapshotStore interface {
	// Load возвращает снапшот или ErrSnapshotNotFound.
	Load(ctx context.Context, key string) ([]Line, error)
	// Save перезаписывает снапшот и оповещает наблюдателей других контекстов.
	Save(ctx context.Context, key string, lines []Line, origin string) error
	// Watch отдаёт события перезаписи ключа, включая записи самого origin
	// (фильтрация — на стороне движка). Канал закрывается при отмене ctx.
	Watch(ctx context.Context, key string) (<-chan ChangeEvent, error)
}

// Catalog — read-only доступ к каталогу продуктов.
type Catalog interface {
	LookupBySlug(ctx context.Context, slug string) (Product, error)
	LookupByID(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context) ([]Product, error)
}

// CartEventType определяет тип события жизненного цикла корзины.
type CartEventType string

const (
	CartEventLineAdded   CartEventType = "cart.line_added"
	CartEventLineRemoved CartEventType = "cart.line_removed"
	CartEventCleared     CartEventType = "cart.cleared"
)

// CartEvent — событие для внешнего фида (аналитика, нотификации).
type CartEvent struct {
	ID         string        `json:"id"`
	Type       CartEventType `json:"type"`
	CartKey    string        `json:"cart_key"`
	Slug       string        `json:"slug,omitempty"`
	ItemCount  int           `json:"item_count"`
	TotalPrice float64       `json:"total_price"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// EventPublisher публикует события корзины наружу. Ошибки публикации
// логируются движком и никогда не прерывают операцию.
type EventPublisher interface {
	Publish(event CartEvent) error
}
