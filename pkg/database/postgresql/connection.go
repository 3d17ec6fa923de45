// Файл: pkg/database/postgresql/connection.go
package postgresql

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB opens a pool against dsn. A modest per-replica pool (5 + 5
// overflow) is enough: the database is the only shared resource and every
// request runs its repository calls one after another against the pool,
// with no enclosing transaction, so it holds at most one connection at a time.
func ConnectDB(dsn string) *pgxpool.Pool {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("Ошибка разбора DSN: %v", err)
	}
	cfg.MinConns = 5
	cfg.MaxConns = 10

	dbpool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Ошибка создания пула соединений к БД: %v", err)
	}

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Не удалось пинговать БД: %v", err)
	}

	log.Println("✅ Подключено к PostgreSQL")
	return dbpool
}
