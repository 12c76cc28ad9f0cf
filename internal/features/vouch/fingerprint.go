// Package vouch — fingerprint.go строит отпечаток изображения.
// Отпечаток намеренно слабый: хэш по метаданным (размер в байтах,
// ширина, высота, имя файла), а не по содержимому. Репост того же
// файла совпадёт, пережатая копия — нет. Это принятое ограничение.
package vouch

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint возвращает детерминированный отпечаток вложения.
// Одинаковые метаданные всегда дают одинаковую строку.
//
// Если метаданных не хватает (нет размеров у нерастрового файла,
// пустое имя) — возвращается уникальное значение на каждый вызов:
// такое изображение считается новым, а не блокирует автора.
func Fingerprint(a Attachment) string {
	if a.Size <= 0 || a.Width <= 0 || a.Height <= 0 || a.Filename == "" {
		return "unique:" + uuid.NewString()
	}

	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d|%d|%d|%s", a.Size, a.Width, a.Height, a.Filename)))
	return hex.EncodeToString(sum[:])
}
