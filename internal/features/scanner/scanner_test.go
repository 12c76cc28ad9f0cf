package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-bot/internal/db/kvstore"
	"serotonyl.ru/points-bot/internal/features/points"
	"serotonyl.ru/points-bot/internal/features/vouch"
)

// fakeHistory отдаёт заранее подготовленные сообщения страницами,
// от новых к старым, как это делает Discord API.
type fakeHistory struct {
	msgs []Message
}

func (h *fakeHistory) MessagesBefore(_ context.Context, beforeID string, limit int) ([]Message, error) {
	start := 0
	if beforeID != "" {
		for i, m := range h.msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(h.msgs) {
		return nil, nil
	}
	end := start + limit
	if end > len(h.msgs) {
		end = len(h.msgs)
	}
	return h.msgs[start:end], nil
}

func imageAtt(name string, size, w, h int) vouch.Attachment {
	return vouch.Attachment{
		ContentType: "image/png",
		Size:        size,
		Width:       w,
		Height:      h,
		Filename:    name,
		URL:         "https://cdn/" + name,
	}
}

func newServices(t *testing.T) (*points.Service, *vouch.Service) {
	t.Helper()
	store := kvstore.NewMemory()
	pointsService := points.NewService(points.NewRepository(store), points.NewUserLocker(), 10)
	registry := vouch.NewService(vouch.NewRepository(store))
	return pointsService, registry
}

// channelHistory строит историю из 120 сообщений (новые впереди):
// три разных изображения и один повтор уже встречавшегося.
func channelHistory() *fakeHistory {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	msgs := make([]Message, 0, 120)
	for i := 120; i >= 1; i-- {
		msg := Message{
			ID:        fmt.Sprintf("m%d", i),
			AuthorID:  "lurker",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		switch i {
		case 110:
			// Повтор изображения из m20 (встретится при обходе первым)
			msg.AuthorID = "carol"
			msg.Attachments = []vouch.Attachment{imageAtt("a.png", 1024, 100, 100)}
		case 90:
			msg.AuthorID = "bob"
			msg.Attachments = []vouch.Attachment{imageAtt("b.png", 2048, 200, 150)}
		case 50:
			msg.AuthorID = "alice"
			msg.Attachments = []vouch.Attachment{imageAtt("c.png", 512, 64, 64)}
		case 20:
			msg.AuthorID = "alice"
			msg.Attachments = []vouch.Attachment{imageAtt("a.png", 1024, 100, 100)}
		case 70:
			// Сообщения ботов пропускаются, даже с картинками
			msg.AuthorID = "bot"
			msg.Bot = true
			msg.Attachments = []vouch.Attachment{imageAtt("spam.png", 99, 10, 10)}
		}
		msgs = append(msgs, msg)
	}
	return &fakeHistory{msgs: msgs}
}

func TestBackfill_AwardsNewSkipsDuplicates(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(channelHistory(), pointsService, registry, 50, 0, 500)

	res, err := sc.Backfill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 120, res.Processed)
	assert.Equal(t, 3, res.PointsAwarded)
	assert.Equal(t, 1, res.DuplicatesSkipped)

	// Повтор учтён, но не оплачен: балл получил только первый встреченный
	ctx := context.Background()
	carol, err := pointsService.GetPoints(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(1), carol)

	alice, err := pointsService.GetPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice) // c.png — да, повтор a.png — нет

	bot, err := pointsService.GetPoints(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bot)
}

func TestBackfill_ReportsProgress(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(channelHistory(), pointsService, registry, 50, 0, 50)

	var calls []int
	_, err := sc.Backfill(context.Background(), func(processed, _ int) {
		calls = append(calls, processed)
	})
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	assert.Equal(t, 50, calls[0])
}

func TestBackfill_PanickingProgressDoesNotAbort(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(channelHistory(), pointsService, registry, 50, 0, 50)

	res, err := sc.Backfill(context.Background(), func(int, int) {
		panic("сломанный отчёт")
	})
	require.NoError(t, err)
	assert.Equal(t, 120, res.Processed)
}

// failingPointsStore валит запись документа балансов — провоцирует откат.
type failingPointsStore struct {
	kvstore.Store
}

func (f *failingPointsStore) Set(ctx context.Context, key string, value any) error {
	if key == "points" {
		return errors.New("хранилище недоступно")
	}
	return f.Store.Set(ctx, key, value)
}

func TestBackfill_RollsBackOnAwardFailure(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemory()
	pointsService := points.NewService(
		points.NewRepository(&failingPointsStore{Store: store}), points.NewUserLocker(), 10)
	registry := vouch.NewService(vouch.NewRepository(store))

	history := &fakeHistory{msgs: []Message{{
		ID:          "m1",
		AuthorID:    "alice",
		Timestamp:   time.Now(),
		Attachments: []vouch.Attachment{imageAtt("a.png", 1024, 100, 100)},
	}}}

	sc := New(history, pointsService, registry, 50, 0, 500)
	res, err := sc.Backfill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.PointsAwarded)

	// Запись реестра откатана: повторная публикация всё ещё принесёт балл
	fp := vouch.Fingerprint(imageAtt("a.png", 1024, 100, 100))
	_, found, err := registry.Lookup(context.Background(), fp)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRebuild_DoesNotTouchLedger(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(channelHistory(), pointsService, registry, 50, 0, 500)

	res, err := sc.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 120, res.Processed)
	assert.Equal(t, 1, res.DuplicatesSkipped)

	total, err := pointsService.GetTotalPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRebuild_OlderSightingWinsOriginator(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(channelHistory(), pointsService, registry, 50, 0, 500)

	_, err := sc.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	// a.png запостила alice (m20) раньше carol (m110) —
	// первоисточником должна значиться alice
	fp := vouch.Fingerprint(imageAtt("a.png", 1024, 100, 100))
	rec, found, err := registry.Lookup(context.Background(), fp)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "alice", rec.OriginalUserID)
	assert.Equal(t, "m20", rec.OriginalMessageID)
	assert.Equal(t, 2, rec.RepostCount)
}

func TestRebuild_ReplacesStaleRegistry(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)

	// Старьё, которого нет в истории, должно исчезнуть после пересборки
	_, _, err := registry.Record(context.Background(), "stale", "ghost", "m0", "", time.Now())
	require.NoError(t, err)

	sc := New(channelHistory(), pointsService, registry, 50, 0, 500)
	_, err = sc.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	_, found, err := registry.Lookup(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProbeRecent_ReadOnly(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	ctx := context.Background()

	// a.png уже зарегистрирована — свежая страница должна найти её повторы
	fp := vouch.Fingerprint(imageAtt("a.png", 1024, 100, 100))
	_, _, err := registry.Record(ctx, fp, "alice", "m20", "", time.Now())
	require.NoError(t, err)

	sc := New(channelHistory(), pointsService, registry, 50, 0, 500)
	checked, duplicates, err := sc.ProbeRecent(ctx)
	require.NoError(t, err)

	// Первая страница (50 свежих сообщений) содержит m110 (повтор a.png) и m90
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, duplicates)

	// Ничего не изменилось: ни реестр, ни балансы
	rec, found, err := registry.Lookup(ctx, fp)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, rec.RepostCount)

	total, err := pointsService.GetTotalPoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestBackfill_EmptyChannel(t *testing.T) {
	t.Parallel()
	pointsService, registry := newServices(t)
	sc := New(&fakeHistory{}, pointsService, registry, 50, 0, 500)

	res, err := sc.Backfill(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
