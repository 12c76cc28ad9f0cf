// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики событий Discord, маршрутизирует slash-команды
// и начисляет баллы за живые посты с картинками.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/bot/middleware"
	"serotonyl.ru/points-bot/internal/common"
	"serotonyl.ru/points-bot/internal/config"
	"serotonyl.ru/points-bot/internal/features/points"
	"serotonyl.ru/points-bot/internal/features/scanner"
	"serotonyl.ru/points-bot/internal/features/vouch"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	pointsHandler *points.Handler
	vouchHandler  *vouch.Handler
	scanHandler   *scanner.Handler

	pointsService *points.Service
	registry      *vouch.Service

	// анти-флуд: посты с картинками и slash-команды глушатся отдельно
	messageCooldown *middleware.Cooldown
	commandCooldown *middleware.Cooldown
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	pointsService *points.Service,
	pointsHandler *points.Handler,
	registry *vouch.Service,
	vouchHandler *vouch.Handler,
	scanHandler *scanner.Handler,
) *Bot {
	return &Bot{
		session:         session,
		cfg:             cfg,
		pointsHandler:   pointsHandler,
		vouchHandler:    vouchHandler,
		scanHandler:     scanHandler,
		pointsService:   pointsService,
		registry:        registry,
		messageCooldown: middleware.NewCooldown(cfg.MessageCooldown),
		commandCooldown: middleware.NewCooldown(1 * time.Second),
	}
}

// Start подключает обработчики событий и открывает сессию Discord.
func (b *Bot) Start(ctx context.Context) error {
	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(ctx, s, m)
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handleInteraction(ctx, s, i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("ошибка открытия сессии Discord: %w", err)
	}

	log.WithFields(log.Fields{
		"channel_id": b.cfg.ChannelID,
		"vip_role":   b.cfg.VIPRoleID,
		"auto_role":  b.cfg.AutoRoleID,
	}).Info("Бот запущен и ожидает события...")
	return nil
}

// Stop закрывает сессию и останавливает анти-флуд.
func (b *Bot) Stop() {
	b.messageCooldown.Close()
	b.commandCooldown.Close()
	if err := b.session.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия сессии Discord")
	}
}

// onReady логирует успешную авторизацию и регистрирует slash-команды.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Infof("Авторизован как %s#%s", r.User.Username, r.User.Discriminator)

	if b.cfg.ClientID == "" || b.cfg.GuildID == "" {
		log.Warn("CLIENT_ID или GUILD_ID не заданы — регистрация slash-команд пропущена")
		return
	}
	if err := RegisterCommands(s, b.cfg.ClientID, b.cfg.GuildID); err != nil {
		log.WithError(err).Error("Не удалось зарегистрировать slash-команды")
	}
}

// handleMessage обрабатывает живое сообщение в наблюдаемом канале.
func (b *Bot) handleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	defer middleware.RecoverFromPanic()

	if m.Author == nil || m.Author.Bot {
		return
	}
	if b.cfg.ChannelID == "" || m.ChannelID != b.cfg.ChannelID {
		return
	}

	middleware.LogMessage(m)

	attachments := toAttachments(m.Attachments)
	hasImages := false
	for _, att := range attachments {
		if att.IsImage() {
			hasImages = true
			break
		}
	}
	if !hasImages {
		return
	}

	// Слишком частые посты молча игнорируем
	if !b.messageCooldown.Allow(m.Author.ID) {
		log.WithField("user_id", m.Author.ID).Debug("Пост отброшен анти-флудом")
		return
	}

	b.awardImagePost(ctx, s, m, attachments)
}

// awardImagePost начисляет баллы за новые изображения поста и отвечает автору.
// Каждое отдельное новое изображение приносит один балл; повторы
// регистрируются, но не оплачиваются.
func (b *Bot) awardImagePost(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, attachments []vouch.Attachment) {
	userID := m.Author.ID

	var (
		awarded    int
		balance    int64
		firstPrev  int64 = -1
		duplicate  *vouch.Record
		dupSighted int
	)

	for _, att := range attachments {
		if !att.IsImage() {
			continue
		}

		fp := vouch.Fingerprint(att)
		rec, created, err := b.registry.Record(ctx, fp, userID, m.ID, att.URL, m.Timestamp)
		if err != nil {
			log.WithError(err).WithField("message_id", m.ID).Error("Ошибка регистрации отпечатка")
			continue
		}
		if !created {
			dupSighted++
			duplicate = &rec
			continue
		}

		prev, current, err := b.pointsService.AddPoints(ctx, userID, 1)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Сбой начисления — откатываем запись реестра")
			if rbErr := b.registry.Rollback(ctx, fp); rbErr != nil {
				log.WithError(rbErr).WithField("fingerprint", fp).Error("Откат записи реестра не удался")
			}
			continue
		}
		if firstPrev < 0 {
			firstPrev = prev
		}
		awarded++
		balance = current
	}

	// Балл уже записан в хранилище: сбой ответа или роли его не отменяет
	switch {
	case awarded > 0:
		text := fmt.Sprintf("🎉 <@%s> получает %s. Всего: **%s**.",
			userID, common.FormatPoints(int64(awarded)), common.FormatPoints(balance))
		if firstPrev < b.cfg.RedeemCost && balance >= b.cfg.RedeemCost {
			text += fmt.Sprintf(" Теперь хватает на награду (%s)! 🎁", common.FormatPoints(b.cfg.RedeemCost))
		}
		if b.cfg.FeatureAutoRoleEnabled && b.cfg.AutoRoleID != "" {
			b.grantAutoRole(m.GuildID, userID)
		}
		b.reply(s, m, text)

		log.WithFields(log.Fields{
			"user_id": userID,
			"awarded": awarded,
			"balance": balance,
		}).Info("Баллы за картинку начислены")

	case dupSighted > 0 && duplicate != nil:
		b.reply(s, m, fmt.Sprintf(
			"🔁 Это изображение уже публиковали (первым — <@%s>, повтор №%d). Балл не начислен.",
			duplicate.OriginalUserID, duplicate.RepostCount-1))
	}
}

// grantAutoRole выдаёт роль за публикацию картинки.
// Отдельная наблюдаемая задача: ошибка фиксируется в логе, а не теряется.
func (b *Bot) grantAutoRole(guildID, userID string) {
	session := b.session
	roleID := b.cfg.AutoRoleID

	common.Go("auto-role", func() error {
		member, err := session.GuildMember(guildID, userID)
		if err != nil {
			return fmt.Errorf("ошибка получения участника %s: %w", userID, err)
		}
		for _, r := range member.Roles {
			if r == roleID {
				return nil // роль уже есть
			}
		}
		if err := session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
			return fmt.Errorf("ошибка выдачи роли %s: %w", roleID, err)
		}
		log.WithField("user_id", userID).Info("Выдана роль за публикацию картинки")
		return nil
	})
}

// reply отвечает на сообщение. Ошибка отправки логируется и глотается.
func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		log.WithError(err).WithField("channel_id", m.ChannelID).Error("Ошибка отправки ответа")
	}
}

// handleInteraction маршрутизирует slash-команду к нужному обработчику.
func (b *Bot) handleInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	// Любой неперехваченный сбой — один общий ответ, детали только в логе
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"command": i.ApplicationCommandData().Name,
				"panic":   fmt.Sprintf("%v", r),
			}).Error("ПАНИКА при обработке команды — восстановлено")
			middleware.RespondEphemeral(s, i, "❌ Произошла ошибка при обработке команды")
		}
	}()

	userID := interactionUser(i)
	if userID != "" && !b.commandCooldown.Allow(userID) {
		middleware.RespondEphemeral(s, i, "⏰ Подождите немного перед следующей командой")
		return
	}

	cmd := i.ApplicationCommandData().Name
	log.WithFields(log.Fields{
		"cmd":     cmd,
		"user_id": userID,
	}).Debug("routing command")

	switch cmd {
	case "setpoints":
		b.pointsHandler.HandleSetPoints(ctx, s, i)
	case "addpoints":
		b.pointsHandler.HandleAddPoints(ctx, s, i)
	case "checkpoints":
		b.pointsHandler.HandleCheckPoints(ctx, s, i)
	case "leaderboard":
		b.pointsHandler.HandleLeaderboard(ctx, s, i)
	case "clearpoints":
		b.pointsHandler.HandleClearPoints(ctx, s, i)
	case "redeem":
		b.pointsHandler.HandleRedeem(ctx, s, i)
	case "backfill":
		b.scanHandler.HandleBackfill(ctx, s, i)
	case "scanhistory":
		b.scanHandler.HandleScanHistory(ctx, s, i)
	case "dupcheck":
		b.scanHandler.HandleDupCheck(ctx, s, i)
	case "dupstats":
		b.vouchHandler.HandleDupStats(ctx, s, i)
	case "resetdupes":
		b.vouchHandler.HandleResetDupes(ctx, s, i)
	}
}

// interactionUser достаёт ID автора взаимодействия.
func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// discordHistory адаптирует Discord API под scanner.History.
type discordHistory struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordHistory возвращает источник истории наблюдаемого канала.
func NewDiscordHistory(session *discordgo.Session, channelID string) scanner.History {
	return &discordHistory{session: session, channelID: channelID}
}

func (h *discordHistory) MessagesBefore(ctx context.Context, beforeID string, limit int) ([]scanner.Message, error) {
	msgs, err := h.session.ChannelMessages(h.channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории канала: %w", err)
	}

	page := make([]scanner.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Author == nil {
			continue
		}
		page = append(page, scanner.Message{
			ID:          msg.ID,
			AuthorID:    msg.Author.ID,
			Bot:         msg.Author.Bot,
			Timestamp:   msg.Timestamp,
			Attachments: toAttachments(msg.Attachments),
		})
	}
	return page, nil
}

// toAttachments переводит вложения Discord в платформонезависимый вид.
func toAttachments(atts []*discordgo.MessageAttachment) []vouch.Attachment {
	out := make([]vouch.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, vouch.Attachment{
			ContentType: a.ContentType,
			Size:        a.Size,
			Width:       a.Width,
			Height:      a.Height,
			Filename:    a.Filename,
			URL:         a.URL,
		})
	}
	return out
}
