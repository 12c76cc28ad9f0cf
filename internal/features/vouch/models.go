// Package vouch отслеживает уже опубликованные изображения.
// models.go описывает запись первого появления отпечатка и вложение.
package vouch

import (
	"strings"
	"time"
)

// Record — запись о первом появлении отпечатка изображения.
// На один отпечаток — ровно один автор-первооткрыватель;
// repostCount растёт монотонно при каждом повторном появлении.
type Record struct {
	OriginalUserID    string    `json:"originalUserId"`    // Кто запостил первым
	OriginalMessageID string    `json:"originalMessageId"` // В каком сообщении
	FirstSeen         time.Time `json:"firstSeenTimestamp"`
	RepostCount       int       `json:"repostCount"`
	SourceURL         string    `json:"sourceUrl,omitempty"`
}

// Attachment — метаданные вложения, по которым строится отпечаток.
// Содержимое файла не скачивается и не хэшируется.
type Attachment struct {
	ContentType string
	Size        int
	Width       int
	Height      int
	Filename    string
	URL         string
}

// IsImage сообщает, является ли вложение изображением по content type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// Stats — сводка по реестру дубликатов для команды статистики.
type Stats struct {
	UniqueImages int           // Сколько отпечатков зарегистрировано
	TotalReposts int           // Сумма повторных появлений
	TopReposted  []RepostEntry // Самые часто повторяемые (до 5)
}

// RepostEntry — один отпечаток в топе повторов.
type RepostEntry struct {
	Fingerprint    string
	RepostCount    int
	OriginalUserID string
}
