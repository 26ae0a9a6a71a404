package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/cart/internal/domain"
)

// PGCatalog — read-only каталог поверх PostgreSQL для деплойментов,
// где меню ведётся в базе, а не в коде.
type PGCatalog struct {
	db *sqlx.DB
}

// OpenPGCatalog подключается к базе каталога и проверяет её доступность.
func OpenPGCatalog(ctx context.Context, dsn string) (*PGCatalog, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	return &PGCatalog{db: db}, nil
}

// NewPGCatalog оборачивает уже открытое подключение.
func NewPGCatalog(db *sqlx.DB) *PGCatalog {
	return &PGCatalog{db: db}
}

// EnsureSchema создаёт таблицы каталога, если их ещё нет.
func (c *PGCatalog) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id    BIGSERIAL PRIMARY KEY,
			slug  TEXT NOT NULL UNIQUE,
			name  TEXT NOT NULL,
			price DOUBLE PRECISION
		);
		CREATE TABLE IF NOT EXISTS option_groups (
			id          BIGSERIAL PRIMARY KEY,
			product_id  BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			mode        TEXT NOT NULL,
			max_choices INT NOT NULL DEFAULT 0,
			position    INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS option_choices (
			id       BIGSERIAL PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES option_groups(id) ON DELETE CASCADE,
			name     TEXT NOT NULL,
			price    DOUBLE PRECISION NOT NULL DEFAULT 0,
			position INT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

// Seed загружает продукты в каталог. Продукт апсертится по slug, его группы
// опций перезаписываются целиком: сидирование идемпотентно.
func (c *PGCatalog) Seed(ctx context.Context, products []domain.Product) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, product := range products {
		var productID int64
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO products (slug, name, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price
			RETURNING id
		`, product.Slug, product.Name, product.Price).Scan(&productID)
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", product.Slug, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM option_groups WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("reset option groups for %q: %w", product.Slug, err)
		}

		for pos, group := range product.OptionGroups {
			var groupID int64
			err := tx.QueryRowxContext(ctx, `
				INSERT INTO option_groups (product_id, name, mode, max_choices, position)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, productID, group.Name, group.Mode, group.MaxChoices, pos).Scan(&groupID)
			if err != nil {
				return fmt.Errorf("insert option group %q: %w", group.Name, err)
			}

			for cpos, choice := range group.Choices {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO option_choices (group_id, name, price, position)
					VALUES ($1, $2, $3, $4)
				`, groupID, choice.Name, choice.Price, cpos); err != nil {
					return fmt.Errorf("insert option choice %q: %w", choice.Name, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog seed: %w", err)
	}
	return nil
}

type groupRow struct {
	ID         int64            `db:"id"`
	Name       string           `db:"name"`
	Mode       domain.GroupMode `db:"mode"`
	MaxChoices int              `db:"max_choices"`
}

// LookupBySlug возвращает продукт с его группами опций или ErrProductNotFound.
func (c *PGCatalog) LookupBySlug(ctx context.Context, slug string) (domain.Product, error) {
	var product domain.Product
	err := c.db.GetContext(ctx, &product,
		`SELECT id, slug, name, price FROM products WHERE slug = $1 LIMIT 1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product by slug: %w", err)
	}

	if err := c.attachOptionGroups(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// LookupByID возвращает продукт с его группами опций или ErrProductNotFound.
func (c *PGCatalog) LookupByID(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := c.db.GetContext(ctx, &product,
		`SELECT id, slug, name, price FROM products WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product by id: %w", err)
	}

	if err := c.attachOptionGroups(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// List возвращает все продукты меню (без групп опций: списку страницы
// продуктов они не нужны, детальная карточка делает точечный lookup).
func (c *PGCatalog) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.db.SelectContext(ctx, &products,
		`SELECT id, slug, name, price FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return products, nil
}

func (c *PGCatalog) attachOptionGroups(ctx context.Context, product *domain.Product) error {
	var groups []groupRow
	err := c.db.SelectContext(ctx, &groups, `
		SELECT id, name, mode, max_choices
		FROM option_groups
		WHERE product_id = $1
		ORDER BY position, id
	`, product.ID)
	if err != nil {
		return fmt.Errorf("select option groups: %w", err)
	}

	for _, group := range groups {
		var choices []domain.Choice
		err := c.db.SelectContext(ctx, &choices, `
			SELECT name, price
			FROM option_choices
			WHERE group_id = $1
			ORDER BY position, id
		`, group.ID)
		if err != nil {
			return fmt.Errorf("select option choices: %w", err)
		}

		product.OptionGroups = append(product.OptionGroups, domain.OptionGroup{
			Name:       group.Name,
			Mode:       group.Mode,
			MaxChoices: group.MaxChoices,
			Choices:    choices,
		})
	}
	return nil
}

// Close закрывает подключение к базе каталога.
func (c *PGCatalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

var _ domain.Catalog = (*PGCatalog)(nil)
