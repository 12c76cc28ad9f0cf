// Package vouch — service.go содержит логику реестра дубликатов.
// Реестр не разделён по пользователям, поэтому сериализуется одним
// мьютексом: регистрация и начисление происходят в рамках одной задачи
// обработки сообщения, этого достаточно для однопроцессного бота.
package vouch

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/common"
)

// Service управляет реестром дубликатов.
type Service struct {
	mu   sync.Mutex
	repo *Repository
}

// NewService создаёт сервис реестра.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Lookup возвращает запись по отпечатку, found=false если её нет.
func (s *Service) Lookup(ctx context.Context, fingerprint string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, err := s.repo.Load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := registry[fingerprint]
	return rec, ok, nil
}

// Record регистрирует появление отпечатка.
// Нет записи — создаёт её с repostCount=1 (created=true).
// Есть запись — увеличивает repostCount, автор-первооткрыватель не меняется.
// Вызывается ДО начисления балла; при сбое начисления вызывающий
// обязан откатить только что созданную запись через Rollback.
func (s *Service) Record(ctx context.Context, fingerprint, userID, messageID, sourceURL string, seenAt time.Time) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, err := s.repo.Load(ctx)
	if err != nil {
		return Record{}, false, err
	}

	rec, exists := registry[fingerprint]
	created := false
	if exists {
		rec.RepostCount++
	} else {
		rec = Record{
			OriginalUserID:    userID,
			OriginalMessageID: messageID,
			FirstSeen:         seenAt,
			RepostCount:       1,
			SourceURL:         sourceURL,
		}
		created = true
	}
	registry[fingerprint] = rec

	if err := s.repo.Save(ctx, registry); err != nil {
		return Record{}, false, err
	}
	return rec, created, nil
}

// Rollback удаляет запись отпечатка — компенсация несостоявшегося
// начисления, чтобы повторная публикация всё ещё могла принести балл.
func (s *Service) Rollback(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := registry[fingerprint]; !ok {
		return common.ErrRecordNotFound
	}

	delete(registry, fingerprint)
	if err := s.repo.Save(ctx, registry); err != nil {
		return err
	}

	log.WithField("fingerprint", fingerprint).Warn("Запись реестра откатана после сбоя начисления")
	return nil
}

// ReplaceAll заменяет весь реестр результатом пересканирования истории.
func (s *Service) ReplaceAll(ctx context.Context, registry map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if registry == nil {
		registry = make(map[string]Record)
	}
	return s.repo.Save(ctx, registry)
}

// Reset очищает реестр (административный сброс).
func (s *Service) Reset(ctx context.Context) error {
	if err := s.ReplaceAll(ctx, nil); err != nil {
		return err
	}
	log.Info("Реестр дубликатов сброшен")
	return nil
}

// GetStats собирает сводку по реестру для команды статистики.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, err := s.repo.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{UniqueImages: len(registry)}
	entries := make([]RepostEntry, 0, len(registry))
	for fp, rec := range registry {
		// repostCount=1 — это первое появление, повторы начинаются со 2
		stats.TotalReposts += rec.RepostCount - 1
		if rec.RepostCount > 1 {
			entries = append(entries, RepostEntry{
				Fingerprint:    fp,
				RepostCount:    rec.RepostCount,
				OriginalUserID: rec.OriginalUserID,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RepostCount > entries[j].RepostCount
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}
	stats.TopReposted = entries

	return stats, nil
}
