package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/cart/internal/catalog"
	"github.com/vladislavdragonenkov/cart/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		dsn        string
		catalogDSN string
		seed       bool
	)

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN для снапшотов корзины (fallback: CART_POSTGRES_DSN)")
	flag.StringVar(&catalogDSN, "catalog-dsn", "", "PostgreSQL DSN каталога (fallback: CART_CATALOG_DSN, затем -dsn)")
	flag.BoolVar(&seed, "seed", false, "загрузить встроенное меню в каталог")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("CART_POSTGRES_DSN"))
	}
	if strings.TrimSpace(catalogDSN) == "" {
		catalogDSN = strings.TrimSpace(os.Getenv("CART_CATALOG_DSN"))
	}
	if catalogDSN == "" {
		catalogDSN = dsn
	}
	if dsn == "" && catalogDSN == "" {
		fail("CART_POSTGRES_DSN or CART_CATALOG_DSN (or -dsn/-catalog-dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if dsn != "" {
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			fail("open postgres store: %v", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			fail("ensure snapshot schema: %v", err)
		}
		_ = store.Close()
		fmt.Println("cart snapshot schema ok")
	}

	if catalogDSN != "" {
		pg, err := catalog.OpenPGCatalog(ctx, catalogDSN)
		if err != nil {
			fail("open catalog: %v", err)
		}
		defer pg.Close()

		if err := pg.EnsureSchema(ctx); err != nil {
			fail("ensure catalog schema: %v", err)
		}
		fmt.Println("catalog schema ok")

		if seed {
			products := catalog.DefaultProducts()
			if err := pg.Seed(ctx, products); err != nil {
				fail("seed catalog: %v", err)
			}
			fmt.Printf("catalog seeded: %d products\n", len(products))
		}
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
