package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"campus-cart/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// schema mantiene solo las columnas que lee el núcleo de mensajería.
// users y products se escriben desde otros servicios (registro, catálogo).
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	seller_id  TEXT NOT NULL REFERENCES users(id),
	name       TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id               TEXT PRIMARY KEY,
	product_id       TEXT NOT NULL,
	participant_low  TEXT NOT NULL,
	participant_high TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	last_updated     TIMESTAMPTZ NOT NULL,
	CHECK (participant_low < participant_high),
	UNIQUE (product_id, participant_low, participant_high)
);

CREATE INDEX IF NOT EXISTS conversations_low_idx ON conversations (participant_low, last_updated DESC);
CREATE INDEX IF NOT EXISTS conversations_high_idx ON conversations (participant_high, last_updated DESC);

CREATE TABLE IF NOT EXISTS conversation_messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq             BIGINT NOT NULL,
	sender_id       TEXT NOT NULL,
	body            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (conversation_id, seq)
);
`

// EnsureSchema crea las tablas si todavía no existen.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
