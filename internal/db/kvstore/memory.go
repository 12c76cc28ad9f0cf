// Package kvstore — memory.go реализует Store в памяти.
// Используется в тестах вместо PostgreSQL. Документы хранятся
// как сырой JSON, чтобы поведение сериализации совпадало с боевым.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory — потокобезопасное хранилище документов в памяти.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (s *Memory) Get(ctx context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.docs[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("ошибка десериализации документа %q: %w", key, err)
	}
	return true, nil
}

func (s *Memory) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа %q: %w", key, err)
	}

	s.mu.Lock()
	s.docs[key] = raw
	s.mu.Unlock()
	return nil
}
