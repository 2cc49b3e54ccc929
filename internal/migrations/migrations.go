// Package migrations applies the schema with goose. The SQL files are
// embedded so a binary migrates without a checkout. Only cmd/api runs Up;
// workers assume the schema is current.
package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedded embed.FS

// Up applies every pending migration through a database/sql handle borrowed
// from the pool. Closing the handle returns its connections; the pool stays
// open.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
