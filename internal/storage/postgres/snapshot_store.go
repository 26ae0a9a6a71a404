package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/domain"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	watchBuffer         = 16
)

// SnapshotStoreOptions задаёт параметры снапшот-хранилища.
type SnapshotStoreOptions struct {
	Logger       *log.Entry
	PollInterval time.Duration
}

// SnapshotStoreOption настраивает SnapshotStore.
type SnapshotStoreOption func(*SnapshotStoreOptions)

// WithLogger задаёт logger хранилища.
func WithLogger(logger *log.Entry) SnapshotStoreOption {
	return func(opts *SnapshotStoreOptions) {
		opts.Logger = logger
	}
}

// WithPollInterval задаёт частоту опроса updated_at наблюдателем.
func WithPollInterval(interval time.Duration) SnapshotStoreOption {
	return func(opts *SnapshotStoreOptions) {
		opts.PollInterval = interval
	}
}

// SnapshotStore хранит снапшот корзины одной строкой на ключ в PostgreSQL.
// У PostgreSQL нет push-событий на уровне database/sql, поэтому чужие записи
// обнаруживаются polling'ом updated_at — это тот же last-writer-wins контракт,
// что и у Redis-хранилища, только с задержкой в интервал опроса.
type SnapshotStore struct {
	store        *Store
	logger       *log.Entry
	pollInterval time.Duration
}

// NewSnapshotStore создаёт снапшот-хранилище поверх открытого Store.
func NewSnapshotStore(store *Store, options ...SnapshotStoreOption) *SnapshotStore {
	opts := SnapshotStoreOptions{
		PollInterval: defaultPollInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "postgres-store")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	return &SnapshotStore{
		store:        store,
		logger:       logger,
		pollInterval: opts.PollInterval,
	}
}

// Load читает снапшот. Отсутствие строки — ErrSnapshotNotFound,
// непарсящийся payload — ErrSnapshotCorrupt.
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]domain.Line, error) {
	var payload []byte
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT payload FROM cart_snapshots WHERE key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("select cart snapshot: %w", err)
	}

	var lines []domain.Line
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	return lines, nil
}

// Save перезаписывает снапшот целиком (upsert одной строки).
func (s *SnapshotStore) Save(ctx context.Context, key string, lines []domain.Line, origin string) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	_, err = s.store.DB().ExecContext(ctx, `
		INSERT INTO cart_snapshots (key, payload, origin, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, origin = EXCLUDED.origin, updated_at = now()
	`, key, payload, origin)
	if err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

// Watch опрашивает updated_at ключа и отдаёт событие на каждую обнаруженную
// перезапись. Канал закрывается при отмене ctx.
func (s *SnapshotStore) Watch(ctx context.Context, key string) (<-chan domain.ChangeEvent, error) {
	// Стартовая отметка: уже существующий снапшот событием не считается.
	lastSeen, _, err := s.stamp(ctx, key)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.ChangeEvent, watchBuffer)
	go func() {
		defer close(events)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stamp, origin, err := s.stamp(ctx, key)
				if err != nil {
					if ctx.Err() == nil {
						s.logger.WithError(err).Warn("cart snapshot poll failed")
					}
					continue
				}
				if !stamp.After(lastSeen) {
					continue
				}
				lastSeen = stamp

				event := domain.ChangeEvent{Key: key, Origin: origin}
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

// stamp возвращает updated_at и origin строки ключа (нулевые значения,
// если снапшота ещё нет).
func (s *SnapshotStore) stamp(ctx context.Context, key string) (time.Time, string, error) {
	var (
		updatedAt time.Time
		origin    string
	)
	err := s.store.DB().QueryRowContext(ctx,
		`SELECT updated_at, origin FROM cart_snapshots WHERE key = $1`, key,
	).Scan(&updatedAt, &origin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, "", nil
		}
		return time.Time{}, "", fmt.Errorf("poll cart snapshot: %w", err)
	}
	return updatedAt, origin, nil
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)
