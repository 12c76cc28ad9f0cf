// Package points — repository.go читает и пишет документ балансов.
// Все балансы лежат в одном JSON-документе под ключом "points":
// userId → целое число. Документ обновляется целиком.
package points

import (
	"context"
	"fmt"

	"serotonyl.ru/points-bot/internal/db/kvstore"
)

// pointsKey — ключ документа балансов в хранилище.
const pointsKey = "points"

// Repository предоставляет доступ к документу балансов.
type Repository struct {
	store kvstore.Store
}

// NewRepository создаёт репозиторий поверх хранилища документов.
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// Load возвращает всю таблицу балансов.
// Отсутствующий документ трактуется как пустая таблица.
func (r *Repository) Load(ctx context.Context) (map[string]int64, error) {
	balances := make(map[string]int64)
	found, err := r.store.Get(ctx, pointsKey, &balances)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки балансов: %w", err)
	}
	if !found {
		return make(map[string]int64), nil
	}
	return balances, nil
}

// Save записывает всю таблицу балансов целиком.
func (r *Repository) Save(ctx context.Context, balances map[string]int64) error {
	if err := r.store.Set(ctx, pointsKey, balances); err != nil {
		return fmt.Errorf("ошибка сохранения балансов: %w", err)
	}
	return nil
}
