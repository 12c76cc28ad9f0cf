// Package middleware — interactions.go: утилиты для slash-команд.
// Ответы, проверка прав и чтение опций, чтобы обработчики фич
// не повторяли один и тот же шаблон discordgo.
package middleware

import (
	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// HasPermission проверяет, есть ли у вызывающего нужный флаг прав.
// Вне гильдии (DM) прав нет.
func HasPermission(i *discordgo.InteractionCreate, perm int64) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&perm != 0
}

// RespondEphemeral отвечает на взаимодействие видимым только вызывающему
// сообщением. Ошибка отправки логируется и глотается.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка ответа на взаимодействие")
	}
}

// Respond отвечает на взаимодействие публичным сообщением.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка ответа на взаимодействие")
	}
}

// DeferEphemeral откладывает ответ (для долгих операций вроде обхода
// истории); потом его редактируют через EditResponse.
func DeferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

// EditResponse редактирует отложенный ответ. Ошибка логируется и глотается:
// отчёт о прогрессе не должен прерывать работу.
func EditResponse(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &text})
	if err != nil {
		log.WithError(err).Debug("Не удалось обновить ответ на взаимодействие")
	}
}

// Options собирает опции команды в map по имени.
func Options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}
