package domain

import "errors"

var (
	// ErrProductNotFound возвращается каталогом, если slug/id неизвестен.
	ErrProductNotFound = errors.New("product not found")
	// ErrSlugRequired — пустой slug в операции над позицией.
	ErrSlugRequired = errors.New("slug is required")
	// ErrSnapshotNotFound — в хранилище нет снапшота под ключом корзины.
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	// ErrSnapshotCorrupt — снапшот под ключом корзины не парсится.
	// Движок восстанавливается локально пустой корзиной, наружу не всплывает.
	ErrSnapshotCorrupt = errors.New("cart snapshot is corrupt")
	// ErrStoreUnavailable — хранилище недоступно (чтение или запись).
	ErrStoreUnavailable = errors.New("cart store unavailable")
)

// IsSnapshotMissing проверяет, означает ли ошибка отсутствие снапшота
// (легитимный старт с пустой корзиной, а не сбой).
func IsSnapshotMissing(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
