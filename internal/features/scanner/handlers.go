// Package scanner — handlers.go обрабатывает slash-команды обхода истории:
// /backfill (начисление), /scanhistory (пересборка реестра),
// /dupcheck (проверка свежих сообщений без изменений состояния).
package scanner

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/bot/middleware"
	"serotonyl.ru/points-bot/internal/common"
)

// Handler обрабатывает команды сканера истории.
// Сканер создаётся фабрикой на канал: сам обход привязан к каналу,
// а канал известен только из конфигурации.
type Handler struct {
	newScanner func() *Scanner // nil, если канал не настроен
}

// NewHandler создаёт обработчик команд сканера.
func NewHandler(newScanner func() *Scanner) *Handler {
	return &Handler{newScanner: newScanner}
}

// HandleBackfill — /backfill (право Manage Server).
// Долгая операция: ответ откладывается, прогресс приходит правками ответа.
func (h *Handler) HandleBackfill(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionManageServer) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}
	if h.newScanner == nil {
		middleware.RespondEphemeral(s, i, "❌ CHANNEL_ID не настроен")
		return
	}

	if err := middleware.DeferEphemeral(s, i); err != nil {
		log.WithError(err).Error("Не удалось отложить ответ")
		return
	}

	sc := h.newScanner()
	result, err := sc.Backfill(ctx, func(processed, awarded int) {
		middleware.EditResponse(s, i, fmt.Sprintf("Обрабатываю... просмотрено %d %s, начислено %d",
			processed, common.PluralizeMessages(processed), awarded))
	})
	if err != nil {
		log.WithError(err).Error("Обход истории прерван ошибкой")
		middleware.EditResponse(s, i, fmt.Sprintf(
			"⚠️ Обход прерван: просмотрено %d, начислено %d. Подробности в логе",
			result.Processed, result.PointsAwarded))
		return
	}

	middleware.EditResponse(s, i, fmt.Sprintf(
		"✅ Просмотрено **%d** %s, начислено **%d** %s, повторов пропущено **%d**",
		result.Processed, common.PluralizeMessages(result.Processed),
		result.PointsAwarded, common.PluralizePoints(int64(result.PointsAwarded)),
		result.DuplicatesSkipped))
}

// HandleScanHistory — /scanhistory (право Manage Server).
// Пересобирает реестр дубликатов по всей истории, баллы не трогает.
func (h *Handler) HandleScanHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionManageServer) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}
	if h.newScanner == nil {
		middleware.RespondEphemeral(s, i, "❌ CHANNEL_ID не настроен")
		return
	}

	if err := middleware.DeferEphemeral(s, i); err != nil {
		log.WithError(err).Error("Не удалось отложить ответ")
		return
	}

	sc := h.newScanner()
	result, err := sc.Rebuild(ctx, func(processed, _ int) {
		middleware.EditResponse(s, i, fmt.Sprintf("Сканирую... просмотрено %d %s",
			processed, common.PluralizeMessages(processed)))
	})
	if err != nil {
		log.WithError(err).Error("Пересканирование прервано ошибкой")
		middleware.EditResponse(s, i, "⚠️ Пересканирование прервано. Подробности в логе")
		return
	}

	middleware.EditResponse(s, i, fmt.Sprintf(
		"✅ Реестр пересобран: просмотрено **%d** %s, повторов учтено **%d**. Баллы не изменялись",
		result.Processed, common.PluralizeMessages(result.Processed), result.DuplicatesSkipped))
}

// HandleDupCheck — /dupcheck (только администратор).
// Проверяет последнюю страницу истории на повторы, ничего не меняя.
func (h *Handler) HandleDupCheck(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}
	if h.newScanner == nil {
		middleware.RespondEphemeral(s, i, "❌ CHANNEL_ID не настроен")
		return
	}

	sc := h.newScanner()
	checked, duplicates, err := sc.ProbeRecent(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка проверки свежих сообщений")
		middleware.RespondEphemeral(s, i, "❌ Не удалось проверить свежие сообщения")
		return
	}

	middleware.RespondEphemeral(s, i, fmt.Sprintf(
		"🔍 Проверено изображений: **%d**, из них уже встречались: **%d**. Состояние не менялось",
		checked, duplicates))
}
