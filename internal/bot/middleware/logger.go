// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники, анти-флуда и ответов на взаимодействия.
package middleware

import (
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Записывает: user_id, channel_id, username, число вложений.
func LogMessage(m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}

	text := m.Content
	if len(text) > 50 {
		text = text[:50] + "..."
	}

	log.WithFields(log.Fields{
		"user_id":     m.Author.ID,
		"channel_id":  m.ChannelID,
		"username":    m.Author.Username,
		"attachments": len(m.Attachments),
		"text":        text,
		"time":        time.Now().Format("15:04:05"),
	}).Debug("Входящее сообщение")
}
