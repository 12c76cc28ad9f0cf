// Package kvstore — postgres.go хранит документы в таблице kv_documents
// (key TEXT PRIMARY KEY, value JSONB). Upsert через ON CONFLICT.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres — реализация Store поверх pgxpool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres создаёт хранилище документов поверх пула соединений.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Get читает документ по ключу и десериализует его в dest.
func (s *Postgres) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM kv_documents WHERE key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения документа %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("ошибка десериализации документа %q: %w", key, err)
	}
	return true, nil
}

// Set записывает документ целиком, заменяя прежнее значение.
func (s *Postgres) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа %q: %w", key, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO kv_documents (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("ошибка записи документа %q: %w", key, err)
	}
	return nil
}
