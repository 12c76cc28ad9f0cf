// Package scanner обходит историю канала постранично, от новых к старым.
// Два режима:
//   - Backfill (начисление): новые изображения регистрируются и приносят
//     автору по одному баллу, повторы считаются, но не оплачиваются;
//   - Rebuild (пересканирование): строит реестр отпечатков по всей
//     истории, НЕ трогая балансы, и заменяет реестр целиком.
package scanner

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/features/points"
	"serotonyl.ru/points-bot/internal/features/vouch"
)

// Message — одно сообщение истории в платформонезависимом виде.
type Message struct {
	ID          string
	AuthorID    string
	Bot         bool // Сообщения ботов пропускаются
	Timestamp   time.Time
	Attachments []vouch.Attachment
}

// History — источник истории канала.
// MessagesBefore возвращает страницу сообщений старше beforeID
// (при пустом beforeID — самые свежие). Пустая страница означает,
// что достигнуто начало канала.
type History interface {
	MessagesBefore(ctx context.Context, beforeID string, limit int) ([]Message, error)
}

// Progress — необязательный отчёт о ходе обхода.
// Вызывается по мере обработки; сбой отчёта не прерывает обход.
type Progress func(processed, pointsAwarded int)

// Result — итоги обхода истории.
type Result struct {
	Processed         int // Просмотрено сообщений
	PointsAwarded     int // Начислено баллов (только режим Backfill)
	DuplicatesSkipped int // Повторов пропущено без оплаты
}

// Scanner обходит историю канала и применяет к ней реестр и/или балансы.
type Scanner struct {
	history  History
	points   *points.Service
	registry *vouch.Service

	batchSize     int
	pagePause     time.Duration
	progressEvery int
}

// New создаёт сканер истории.
// batchSize ограничивает страницу (баланс скорости и rate-limit платформы),
// pagePause — пауза между страницами, progressEvery — период отчётов.
func New(history History, pointsService *points.Service, registry *vouch.Service, batchSize int, pagePause time.Duration, progressEvery int) *Scanner {
	if batchSize <= 0 {
		batchSize = 50
	}
	if progressEvery <= 0 {
		progressEvery = 500
	}
	return &Scanner{
		history:       history,
		points:        pointsService,
		registry:      registry,
		batchSize:     batchSize,
		pagePause:     pagePause,
		progressEvery: progressEvery,
	}
}

// Backfill обходит историю и начисляет баллы за новые изображения.
// Повтор — Record увеличивает счётчик, балл не начисляется.
// Новое — Record, затем начисление; при сбое начисления запись
// откатывается, чтобы изображение не осталось «учтённым» без балла.
func (s *Scanner) Backfill(ctx context.Context, report Progress) (Result, error) {
	var res Result
	lastReport := 0

	err := s.forEachPage(ctx, func(page []Message) error {
		for _, msg := range page {
			if msg.Bot {
				continue
			}
			s.awardMessage(ctx, msg, &res)
		}
		res.Processed += len(page)

		if res.Processed-lastReport >= s.progressEvery {
			lastReport = res.Processed
			notify(report, res.Processed, res.PointsAwarded)
		}
		return nil
	})

	return res, err
}

// awardMessage обрабатывает изображения одного сообщения в режиме начисления.
func (s *Scanner) awardMessage(ctx context.Context, msg Message, res *Result) {
	for _, att := range msg.Attachments {
		if !att.IsImage() {
			continue
		}

		fp := vouch.Fingerprint(att)
		_, created, err := s.registry.Record(ctx, fp, msg.AuthorID, msg.ID, att.URL, msg.Timestamp)
		if err != nil {
			log.WithError(err).WithField("message_id", msg.ID).Error("Ошибка регистрации отпечатка")
			continue
		}
		if !created {
			res.DuplicatesSkipped++
			continue
		}

		if _, _, err := s.points.AddPoints(ctx, msg.AuthorID, 1); err != nil {
			log.WithError(err).WithField("user_id", msg.AuthorID).Error("Сбой начисления — откатываем запись реестра")
			if rbErr := s.registry.Rollback(ctx, fp); rbErr != nil {
				log.WithError(rbErr).WithField("fingerprint", fp).Error("Откат записи реестра не удался")
			}
			continue
		}
		res.PointsAwarded++
	}
}

// Rebuild строит реестр отпечатков по всей истории, не трогая балансы,
// и заменяет им текущий реестр. Используется, чтобы восстановить
// состояние дедупликации без повторной оплаты уже оплаченной истории.
//
// Обход идёт от новых сообщений к старым, поэтому при повторе отпечатка
// более старое появление забирает себе поля первооткрывателя.
func (s *Scanner) Rebuild(ctx context.Context, report Progress) (Result, error) {
	var res Result
	lastReport := 0
	registry := make(map[string]vouch.Record)

	err := s.forEachPage(ctx, func(page []Message) error {
		for _, msg := range page {
			if msg.Bot {
				continue
			}
			for _, att := range msg.Attachments {
				if !att.IsImage() {
					continue
				}

				fp := vouch.Fingerprint(att)
				if rec, ok := registry[fp]; ok {
					// Текущее сообщение старше уже увиденного —
					// именно оно становится первоисточником.
					rec.OriginalUserID = msg.AuthorID
					rec.OriginalMessageID = msg.ID
					rec.FirstSeen = msg.Timestamp
					rec.SourceURL = att.URL
					rec.RepostCount++
					registry[fp] = rec
					res.DuplicatesSkipped++
					continue
				}
				registry[fp] = vouch.Record{
					OriginalUserID:    msg.AuthorID,
					OriginalMessageID: msg.ID,
					FirstSeen:         msg.Timestamp,
					RepostCount:       1,
					SourceURL:         att.URL,
				}
			}
		}
		res.Processed += len(page)

		if res.Processed-lastReport >= s.progressEvery {
			lastReport = res.Processed
			notify(report, res.Processed, 0)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if err := s.registry.ReplaceAll(ctx, registry); err != nil {
		return res, err
	}

	log.WithFields(log.Fields{
		"processed":     res.Processed,
		"unique_images": len(registry),
		"duplicates":    res.DuplicatesSkipped,
	}).Info("Реестр дубликатов пересобран по истории")

	return res, nil
}

// ProbeRecent проверяет последнюю страницу истории на дубликаты,
// ничего не изменяя ни в реестре, ни в балансах.
func (s *Scanner) ProbeRecent(ctx context.Context) (checked, duplicates int, err error) {
	page, err := s.history.MessagesBefore(ctx, "", s.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, msg := range page {
		if msg.Bot {
			continue
		}
		for _, att := range msg.Attachments {
			if !att.IsImage() {
				continue
			}
			checked++
			_, found, err := s.registry.Lookup(ctx, vouch.Fingerprint(att))
			if err != nil {
				return checked, duplicates, err
			}
			if found {
				duplicates++
			}
		}
	}
	return checked, duplicates, nil
}

// forEachPage листает историю от новых к старым до пустой страницы.
// Между страницами выдерживается пауза, чтобы не упереться в rate-limit.
func (s *Scanner) forEachPage(ctx context.Context, handle func(page []Message) error) error {
	var beforeID string

	for {
		page, err := s.history.MessagesBefore(ctx, beforeID, s.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := handle(page); err != nil {
			return err
		}
		beforeID = page[len(page)-1].ID

		if s.pagePause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pagePause):
			}
		}
	}
}

// notify вызывает отчёт о прогрессе, глуша панику: сбой отчёта
// не должен прерывать обход.
func notify(report Progress, processed, awarded int) {
	if report == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Debug("Отчёт о прогрессе не доставлен")
		}
	}()
	report(processed, awarded)
}
