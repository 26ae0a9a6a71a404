package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/domain"
)

const (
	defaultConnTimeout = 5 * time.Second
	watchBuffer        = 16
)

// Store — реализация SnapshotStore поверх Redis: снапшот корзины лежит
// целиком под одним ключом, а перезаписи анонсируются через pub/sub канал
// ключа. Это durable-аналог localStorage со storage-событиями: контексты,
// подписанные на канал, узнают о чужих записях и перечитывают снапшот.
type Store struct {
	client *redis.Client
	logger *log.Entry
}

// Open подключается к Redis и проверяет доступность.
func Open(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{
		client: client,
		logger: log.WithField("component", "redis-store"),
	}, nil
}

// changeChannel возвращает имя pub/sub канала для ключа снапшота.
func changeChannel(key string) string {
	return key + ":changes"
}

// Load читает снапшот. Отсутствующий ключ — ErrSnapshotNotFound,
// непарсящийся payload — ErrSnapshotCorrupt.
func (s *Store) Load(ctx context.Context, key string) ([]domain.Line, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get cart snapshot: %w", err)
	}

	var lines []domain.Line
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	return lines, nil
}

// Save перезаписывает снапшот целиком и публикует origin записи в канал
// изменений. Публикация best-effort: durable-запись уже выполнена, и другие
// контексты в худшем случае прочитают свежий снапшот при следующем событии.
func (s *Store) Save(ctx context.Context, key string, lines []domain.Line, origin string) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set cart snapshot: %w", err)
	}

	if err := s.client.Publish(ctx, changeChannel(key), origin).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to publish cart change event")
	}
	return nil
}

// Watch подписывается на канал изменений ключа. Канал событий закрывается
// при отмене ctx.
func (s *Store) Watch(ctx context.Context, key string) (<-chan domain.ChangeEvent, error) {
	pubsub := s.client.Subscribe(ctx, changeChannel(key))
	// Дожидаемся подтверждения подписки, чтобы не потерять первую запись.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to cart changes: %w", err)
	}

	events := make(chan domain.ChangeEvent, watchBuffer)
	go func() {
		defer close(events)
		defer func() { _ = pubsub.Close() }()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				event := domain.ChangeEvent{Key: key, Origin: msg.Payload}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Ping проверяет доступность Redis (для health checks).
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

// Close закрывает подключение к Redis.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ domain.SnapshotStore = (*Store)(nil)
