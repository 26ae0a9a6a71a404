package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/cart/internal/domain"
)

// watchBuffer ограничивает очередь событий на одного наблюдателя.
const watchBuffer = 16

// snapshotStoreInMemory — in-memory реализация SnapshotStore для локальной
// разработки и тестов. Несколько движков могут делить один экземпляр:
// каждая запись рассылается всем наблюдателям ключа, что воспроизводит
// поведение durable-хранилища с событиями изменения.
type snapshotStoreInMemory struct {
	mu        sync.RWMutex
	snapshots map[string][]domain.Line
	watchers  map[string]map[int]chan domain.ChangeEvent
	nextWatch int
}

// NewSnapshotStore возвращает in-memory хранилище снапшотов корзины.
func NewSnapshotStore() domain.SnapshotStore {
	return &snapshotStoreInMemory{
		snapshots: make(map[string][]domain.Line),
		watchers:  make(map[string]map[int]chan domain.ChangeEvent),
	}
}

// Load возвращает копию снапшота или ErrSnapshotNotFound.
func (s *snapshotStoreInMemory) Load(_ context.Context, key string) ([]domain.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.snapshots[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return copyLines(lines), nil
}

// Save перезаписывает снапшот целиком и оповещает всех наблюдателей ключа.
// Наблюдатели получают Origin записи и сами решают, игнорировать ли событие.
func (s *snapshotStoreInMemory) Save(_ context.Context, key string, lines []domain.Line, origin string) error {
	s.mu.Lock()
	s.snapshots[key] = copyLines(lines)
	event := domain.ChangeEvent{Key: key, Origin: origin}

	targets := make([]chan domain.ChangeEvent, 0, len(s.watchers[key]))
	for _, ch := range s.watchers[key] {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	for _, ch := range targets {
		// Медленный наблюдатель теряет событие, а не блокирует запись.
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Watch регистрирует наблюдателя ключа. Канал закрывается при отмене ctx.
func (s *snapshotStoreInMemory) Watch(ctx context.Context, key string) (<-chan domain.ChangeEvent, error) {
	ch := make(chan domain.ChangeEvent, watchBuffer)

	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]chan domain.ChangeEvent)
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[key][id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[key], id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// copyLines делает глубокую копию, чтобы хранилище не делило состояние
// с вызывающей стороной.
func copyLines(lines []domain.Line) []domain.Line {
	out := make([]domain.Line, len(lines))
	for i, line := range lines {
		line.Selection = line.Selection.Clone()
		out[i] = line
	}
	return out
}

var _ domain.SnapshotStore = (*snapshotStoreInMemory)(nil)
