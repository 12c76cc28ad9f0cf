package middleware

import (
	"sync"
	"time"
)

// Cooldown глушит частые события одного пользователя:
// не чаще одного за interval. Используется для постов с картинками
// и для slash-команд (с разными интервалами).
type Cooldown struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewCooldown(interval time.Duration) *Cooldown {
	c := &Cooldown{
		lastSeen: make(map[string]time.Time),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (c *Cooldown) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Allow сообщает, можно ли обрабатывать событие пользователя,
// и отмечает момент обращения, если можно.
func (c *Cooldown) Allow(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if last, ok := c.lastSeen[userID]; ok && now.Sub(last) < c.interval {
		return false
	}
	c.lastSeen[userID] = now
	return true
}

func (c *Cooldown) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			cutoff := time.Now().Add(-c.interval)
			for userID, last := range c.lastSeen {
				if last.Before(cutoff) {
					delete(c.lastSeen, userID)
				}
			}
			c.mu.Unlock()
		}
	}
}
