// Package common — tasks.go запускает фоновые задачи под присмотром.
// Вместо «выстрелил и забыл» каждая отсоединённая операция (например,
// выдача роли) получает имя, перехват паники и логирование ошибки.
package common

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Go запускает fn в отдельной горутине. Ошибка и паника фиксируются
// в логе и никогда не роняют процесс.
func Go(name string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"task":  name,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("ПАНИКА в фоновой задаче — восстановлено")
			}
		}()

		if err := fn(); err != nil {
			log.WithError(err).WithField("task", name).Error("Фоновая задача завершилась с ошибкой")
		}
	}()
}
