package points

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocker_SerializesSameUser(t *testing.T) {
	t.Parallel()
	l := NewUserLocker()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("u1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, l.Active())
}

func TestUserLocker_DifferentUsersIndependent(t *testing.T) {
	t.Parallel()
	l := NewUserLocker()

	unlockA := l.Lock("a")
	defer unlockA()

	// Блокировка другого пользователя берётся сразу, без ожидания
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("блокировка другого пользователя не должна ждать")
	}
}

func TestUserLocker_UnlockIdempotent(t *testing.T) {
	t.Parallel()
	l := NewUserLocker()

	unlock := l.Lock("u1")
	unlock()
	unlock() // повторный вызов не должен паниковать и ломать счётчик

	assert.Equal(t, 0, l.Active())
}

func TestUserLocker_DrainReportsStuck(t *testing.T) {
	t.Parallel()
	l := NewUserLocker()

	unlock := l.Lock("u1")

	// Секция занята — Drain истекает и сообщает об одной незавершённой
	stuck := l.Drain(100 * time.Millisecond)
	assert.Equal(t, 1, stuck)

	unlock()
	assert.Equal(t, 0, l.Drain(100*time.Millisecond))
}
