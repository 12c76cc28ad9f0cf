// Package points — userlock.go сериализует мутации баланса по пользователю.
// Хранилище пишет документ целиком, поэтому две конкурентные операции
// read-modify-write для одного пользователя могут потерять обновление.
// Блокировка по ключу закрывает эту дыру: настоящий мьютекс с очередью
// ожидания вместо опроса с фиксированным интервалом.
package points

import (
	"sync"
	"sync/atomic"
	"time"
)

// UserLocker выдаёт мьютекс на каждого пользователя.
// Операции разных пользователей друг друга не блокируют.
type UserLocker struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	active atomic.Int64 // сколько критических секций сейчас занято или в очереди
}

// NewUserLocker создаёт пустой реестр блокировок.
func NewUserLocker() *UserLocker {
	return &UserLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock захватывает блокировку пользователя и возвращает функцию освобождения.
// Вызывающий обязан выполнить её на всех путях выхода:
//
//	unlock := locker.Lock(userID)
//	defer unlock()
//
// Повторный вызов unlock безопасен.
func (l *UserLocker) Lock(userID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.active.Add(1)
	l.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			l.active.Add(-1)
		})
	}
}

// Active возвращает число незавершённых критических секций.
func (l *UserLocker) Active() int {
	return int(l.active.Load())
}

// Drain ждёт (не дольше timeout) завершения всех критических секций.
// Возвращает количество секций, не успевших завершиться — вызывающий
// логирует их и продолжает остановку.
func (l *UserLocker) Drain(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.active.Load() == 0 {
			return 0
		}
		time.Sleep(50 * time.Millisecond)
	}
	return l.Active()
}
