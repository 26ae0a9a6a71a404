package catalog

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/cart/internal/domain"
)

// memoryCatalog — in-memory реализация Catalog для локальной разработки
// и тестов. Каталог read-only: после создания содержимое не меняется.
type memoryCatalog struct {
	mu      sync.RWMutex
	bySlug  map[string]domain.Product
	byID    map[int64]domain.Product
	ordered []string
}

// NewMemoryCatalog возвращает каталог, наполненный меню по умолчанию.
func NewMemoryCatalog() domain.Catalog {
	return NewMemoryCatalogWithProducts(DefaultProducts())
}

// NewMemoryCatalogWithProducts возвращает каталог с заданным набором продуктов.
func NewMemoryCatalogWithProducts(products []domain.Product) domain.Catalog {
	c := &memoryCatalog{
		bySlug: make(map[string]domain.Product, len(products)),
		byID:   make(map[int64]domain.Product, len(products)),
	}
	for _, p := range products {
		c.bySlug[p.Slug] = p
		c.byID[p.ID] = p
		c.ordered = append(c.ordered, p.Slug)
	}
	return c
}

// LookupBySlug возвращает продукт или ErrProductNotFound.
func (c *memoryCatalog) LookupBySlug(_ context.Context, slug string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.bySlug[slug]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// LookupByID возвращает продукт или ErrProductNotFound.
func (c *memoryCatalog) LookupByID(_ context.Context, id int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает продукты в порядке объявления меню.
func (c *memoryCatalog) List(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.ordered))
	for _, slug := range c.ordered {
		out = append(out, c.bySlug[slug])
	}
	return out, nil
}

var _ domain.Catalog = (*memoryCatalog)(nil)
