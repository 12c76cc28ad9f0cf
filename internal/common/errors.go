// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки учёта баллов
var (
	// ErrInsufficientPoints — недостаточно баллов для списания
	ErrInsufficientPoints = errors.New("недостаточно баллов на счёте")
	// ErrUnknownReward — награда с таким именем не настроена
	ErrUnknownReward = errors.New("неизвестная награда")
)

// Ошибки реестра дубликатов
var (
	// ErrRecordNotFound — отпечаток не зарегистрирован в реестре
	ErrRecordNotFound = errors.New("запись об изображении не найдена")
)
