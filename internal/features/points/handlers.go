// Package points — handlers.go обрабатывает slash-команды:
// /setpoints, /addpoints, /checkpoints, /leaderboard, /clearpoints, /redeem.
package points

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/bot/middleware"
	"serotonyl.ru/points-bot/internal/common"
	"serotonyl.ru/points-bot/internal/config"
)

// Handler обрабатывает команды учёта баллов.
type Handler struct {
	service *Service
	cfg     *config.Config
}

// NewHandler создаёт обработчик команд баллов.
func NewHandler(service *Service, cfg *config.Config) *Handler {
	return &Handler{service: service, cfg: cfg}
}

// HandleSetPoints — /setpoints user points (только администратор).
// Значение прижимается к нулю.
func (h *Handler) HandleSetPoints(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	opts := middleware.Options(i)
	target := opts["user"].UserValue(s)
	value := opts["points"].IntValue()

	result, err := h.service.SetPoints(ctx, target.ID, value)
	if err != nil {
		log.WithError(err).Error("Ошибка установки баллов")
		middleware.RespondEphemeral(s, i, "❌ Не удалось установить баллы")
		return
	}

	middleware.RespondEphemeral(s, i,
		fmt.Sprintf("🔧 Баланс <@%s> установлен: **%s**", target.ID, common.FormatPoints(result)))
}

// HandleAddPoints — /addpoints user points (только администратор).
// points может быть отрицательным, итог не уходит ниже нуля.
func (h *Handler) HandleAddPoints(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	opts := middleware.Options(i)
	target := opts["user"].UserValue(s)
	delta := opts["points"].IntValue()

	_, current, err := h.service.AddPoints(ctx, target.ID, delta)
	if err != nil {
		log.WithError(err).Error("Ошибка начисления баллов")
		middleware.RespondEphemeral(s, i, "❌ Не удалось начислить баллы")
		return
	}

	middleware.RespondEphemeral(s, i,
		fmt.Sprintf("➕ <@%s>: %+d. Теперь у него **%s**", target.ID, delta, common.FormatPoints(current)))
}

// HandleCheckPoints — /checkpoints [user].
// Свой баланс доступен всем; чужой — только с правом Manage Server.
func (h *Handler) HandleCheckPoints(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	caller := interactionUserID(i)

	targetID := caller
	if opt, ok := middleware.Options(i)["user"]; ok {
		targetID = opt.UserValue(s).ID
	}

	if targetID != caller && !middleware.HasPermission(i, discordgo.PermissionManageServer) {
		middleware.RespondEphemeral(s, i, "❌ Чужой баланс доступен только модераторам")
		return
	}

	pts, err := h.service.GetPoints(ctx, targetID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		middleware.RespondEphemeral(s, i, "❌ Не удалось получить баланс")
		return
	}

	if targetID == caller {
		middleware.RespondEphemeral(s, i, fmt.Sprintf("💰 У вас **%s**", common.FormatPoints(pts)))
	} else {
		middleware.RespondEphemeral(s, i, fmt.Sprintf("💰 У <@%s> **%s**", targetID, common.FormatPoints(pts)))
	}
}

// HandleLeaderboard — /leaderboard [limit]. Публичная команда.
// Длинный список урезается до 10 строк с припиской «и ещё N».
func (h *Handler) HandleLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := 10
	if opt, ok := middleware.Options(i)["limit"]; ok {
		if v := int(opt.IntValue()); v > 0 {
			limit = v
		}
	}

	entries, err := h.service.GetLeaderboard(ctx, limit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения таблицы лидеров")
		middleware.RespondEphemeral(s, i, "❌ Не удалось получить таблицу лидеров")
		return
	}
	if len(entries) == 0 {
		middleware.RespondEphemeral(s, i, "Пока никто не заработал ни балла")
		return
	}

	total, err := h.service.GetTotalPoints(ctx)
	if err != nil {
		// Сумма — только украшение, без неё можно жить
		log.WithError(err).Debug("Ошибка подсчёта суммы баллов")
	}

	text := formatLeaderboard(entries, total)
	middleware.RespondEphemeral(s, i, text)
}

// formatLeaderboard собирает текст таблицы лидеров с учётом лимита
// длины сообщения Discord (2000 символов).
func formatLeaderboard(entries []LeaderboardEntry, total int64) string {
	lines := make([]string, 0, len(entries))
	for idx, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. <@%s> — %s", idx+1, e.UserID, common.FormatPoints(e.Points)))
	}

	text := strings.Join(lines, "\n")
	if len(text) > 1800 {
		short := lines
		if len(short) > 10 {
			short = short[:10]
		}
		text = strings.Join(short, "\n")
		if len(entries) > 10 {
			text += fmt.Sprintf("\n... и ещё %d участников", len(entries)-10)
		}
	}

	if total > 0 {
		text += fmt.Sprintf("\n\nВсего разыграно: %s", common.FormatPoints(total))
	}
	return text
}

// HandleClearPoints — /clearpoints [user] (только администратор).
// С пользователем — обнуляет его, без — очищает всю таблицу.
func (h *Handler) HandleClearPoints(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	if opt, ok := middleware.Options(i)["user"]; ok {
		target := opt.UserValue(s)
		if err := h.service.ClearUser(ctx, target.ID); err != nil {
			log.WithError(err).Error("Ошибка обнуления баланса")
			middleware.RespondEphemeral(s, i, "❌ Не удалось обнулить баланс")
			return
		}
		middleware.RespondEphemeral(s, i, fmt.Sprintf("✅ Баланс <@%s> обнулён", target.ID))
		return
	}

	if err := h.service.ClearAll(ctx); err != nil {
		log.WithError(err).Error("Ошибка очистки балансов")
		middleware.RespondEphemeral(s, i, "❌ Не удалось очистить балансы")
		return
	}
	middleware.RespondEphemeral(s, i, "✅ Балансы всех участников очищены")
}

// HandleRedeem — /redeem user reward (только администратор).
// Списывает стоимость награды; «Perm Fee» дополнительно выдаёт VIP-роль.
func (h *Handler) HandleRedeem(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !middleware.HasPermission(i, discordgo.PermissionAdministrator) {
		middleware.RespondEphemeral(s, i, "❌ У вас нет прав для этой команды")
		return
	}

	opts := middleware.Options(i)
	target := opts["user"].UserValue(s)
	rewardName := opts["reward"].StringValue()

	reward, balance, err := h.service.Redeem(ctx, target.ID, rewardName)
	switch {
	case errors.Is(err, common.ErrInsufficientPoints):
		middleware.RespondEphemeral(s, i,
			fmt.Sprintf("❌ <@%s> нужно минимум %s для погашения (сейчас %s)",
				target.ID, common.FormatPoints(h.service.RedeemCost()), common.FormatPoints(balance)))
		return
	case errors.Is(err, common.ErrUnknownReward):
		middleware.RespondEphemeral(s, i, "❌ Такой награды нет")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка погашения награды")
		middleware.RespondEphemeral(s, i, "❌ Не удалось погасить награду")
		return
	}

	text := fmt.Sprintf("🎉 <@%s> погасил награду **%s**! Остаток: **%s**.",
		target.ID, reward.Name, common.FormatPoints(balance))

	if reward.GrantsVIP && h.cfg.VIPRoleID != "" {
		if err := s.GuildMemberRoleAdd(i.GuildID, target.ID, h.cfg.VIPRoleID); err != nil {
			// Баллы уже списаны — сбой роли не отменяет погашение
			log.WithError(err).WithField("user_id", target.ID).Error("Не удалось выдать VIP-роль")
			text += " (VIP-роль выдать не удалось — проверьте настройки)"
		} else {
			text += " Выдана VIP-роль! 🎖️"
		}
	}

	middleware.Respond(s, i, text)
}

// interactionUserID достаёт ID автора взаимодействия (в гильдии и в DM
// он лежит в разных полях).
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
