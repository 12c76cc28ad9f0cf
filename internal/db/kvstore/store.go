// Package kvstore реализует документное key-value хранилище поверх PostgreSQL.
// Каждое значение читается и записывается целиком как JSON-документ —
// построчных обновлений нет, сериализацию конкурентных изменений
// обеспечивают вызывающие модули.
package kvstore

import "context"

// Store — интерфейс документного хранилища.
//
// Get десериализует значение по ключу в dest и возвращает found=false
// (без ошибки), если ключ отсутствует. Отсутствующий документ — это
// нормальное состояние, а не сбой.
//
// Set сериализует value и записывает документ целиком, заменяя прежний.
// Последовательность Get→Set НЕ атомарна на уровне хранилища.
type Store interface {
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
}
