// Package vouch — handlers.go обрабатывает slash-команды:
// /dupstats (статистика повторов), /resetdupes (сброс реестра).
package vouch

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/bot/middleware"
)

// Handler обрабатывает команды реестра дубликатов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик команд реестра.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleDupStats — /dupstats (только администратор).
func (h *Handler) HandleDupStats(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	stats, err := h.service.GetStats(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики дубликатов")
		middleware.RespondEphemeral(s, i, "❌ Не удалось получить статистику")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Уникальных изображений: **%d**\n", stats.UniqueImages))
	sb.WriteString(fmt.Sprintf("Повторов поймано: **%d**\n", stats.TotalReposts))

	if len(stats.TopReposted) > 0 {
		sb.WriteString("\nЧаще всего повторяют:\n")
		for idx, e := range stats.TopReposted {
			sb.WriteString(fmt.Sprintf("%d. `%.12s…` — %d раз (первым запостил <@%s>)\n",
				idx+1, e.Fingerprint, e.RepostCount, e.OriginalUserID))
		}
	}

	middleware.RespondEphemeral(s, i, sb.String())
}

// HandleResetDupes — /resetdupes (только администратор).
// Очищает реестр целиком; баллы не трогает.
func (h *Handler) HandleResetDupes(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	if err := h.service.Reset(ctx); err != nil {
		log.WithError(err).Error("Ошибка сброса реестра дубликатов")
		middleware.RespondEphemeral(s, i, "❌ Не удалось сбросить реестр")
		return
	}

	middleware.RespondEphemeral(s, i, "✅ Реестр дубликатов очищен. Все изображения снова считаются новыми")
}
