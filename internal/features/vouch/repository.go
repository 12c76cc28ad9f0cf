// Package vouch — repository.go читает и пишет документ реестра.
// Весь реестр лежит в одном JSON-документе под ключом "vouchedImages":
// отпечаток → запись первого появления. Документ обновляется целиком.
package vouch

import (
	"context"
	"fmt"

	"serotonyl.ru/points-bot/internal/db/kvstore"
)

// vouchedKey — ключ документа реестра в хранилище.
const vouchedKey = "vouchedImages"

// Repository предоставляет доступ к документу реестра дубликатов.
type Repository struct {
	store kvstore.Store
}

// NewRepository создаёт репозиторий поверх хранилища документов.
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// Load возвращает весь реестр. Отсутствующий документ — пустой реестр.
func (r *Repository) Load(ctx context.Context) (map[string]Record, error) {
	registry := make(map[string]Record)
	found, err := r.store.Get(ctx, vouchedKey, &registry)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки реестра дубликатов: %w", err)
	}
	if !found {
		return make(map[string]Record), nil
	}
	return registry, nil
}

// Save записывает весь реестр целиком.
func (r *Repository) Save(ctx context.Context, registry map[string]Record) error {
	if err := r.store.Set(ctx, vouchedKey, registry); err != nil {
		return fmt.Errorf("ошибка сохранения реестра дубликатов: %w", err)
	}
	return nil
}
