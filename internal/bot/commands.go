// Package bot — commands.go описывает slash-команды и регистрирует их
// в гильдии одним bulk-запросом.
package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/features/points"
)

var (
	adminOnly       = int64(discordgo.PermissionAdministrator)
	manageGuildOnly = int64(discordgo.PermissionManageServer)
)

// commandDefinitions возвращает полный список slash-команд бота.
func commandDefinitions() []*discordgo.ApplicationCommand {
	rewardChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(points.Rewards))
	for _, r := range points.Rewards {
		rewardChoices = append(rewardChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  r.Name,
			Value: r.Name,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setpoints",
			Description:              "Установить баланс пользователя",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Кому установить", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Сколько баллов", Required: true},
			},
		},
		{
			Name:                     "addpoints",
			Description:              "Добавить баллы пользователю",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Кому добавить", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Сколько (можно отрицательное)", Required: true},
			},
		},
		{
			Name:        "checkpoints",
			Description: "Показать баланс баллов",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Чей баланс (по умолчанию свой)"},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Таблица лидеров по баллам",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "Сколько строк показать (по умолчанию 10)"},
			},
		},
		{
			Name:                     "clearpoints",
			Description:              "Обнулить баллы пользователя или всех",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Кого обнулить (пусто — всех)"},
			},
		},
		{
			Name:                     "redeem",
			Description:              "Погасить награду за баллы",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Чьи баллы списать", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reward", Description: "Какая награда", Required: true, Choices: rewardChoices},
			},
		},
		{
			Name:                     "backfill",
			Description:              "Начислить баллы за картинки из истории канала",
			DefaultMemberPermissions: &manageGuildOnly,
		},
		{
			Name:                     "scanhistory",
			Description:              "Пересобрать реестр дубликатов по истории (без начислений)",
			DefaultMemberPermissions: &manageGuildOnly,
		},
		{
			Name:                     "dupstats",
			Description:              "Статистика по повторам изображений",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "dupcheck",
			Description:              "Проверить свежие сообщения на повторы (ничего не меняет)",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "resetdupes",
			Description:              "Сбросить реестр дубликатов",
			DefaultMemberPermissions: &adminOnly,
		},
	}
}

// RegisterCommands перезаписывает набор команд гильдии целиком.
func RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	commands := commandDefinitions()

	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, commands); err != nil {
		return fmt.Errorf("ошибка регистрации команд: %w", err)
	}

	log.Infof("Зарегистрировано %d slash-команд", len(commands))
	return nil
}
