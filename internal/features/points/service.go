// Package points — service.go содержит бизнес-логику учёта баллов.
// Баланс никогда не уходит ниже нуля: мутации прижимаются к нулю.
// Каждая мутация одного пользователя проходит через его блокировку.
package points

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-bot/internal/common"
)

// Service управляет балансами баллов.
type Service struct {
	repo       *Repository
	locker     *UserLocker
	redeemCost int64
}

// NewService создаёт сервис баллов.
func NewService(repo *Repository, locker *UserLocker, redeemCost int64) *Service {
	return &Service{repo: repo, locker: locker, redeemCost: redeemCost}
}

// Locker возвращает реестр блокировок (нужен при остановке для Drain).
func (s *Service) Locker() *UserLocker {
	return s.locker
}

// RedeemCost возвращает стоимость погашения награды.
func (s *Service) RedeemCost() int64 {
	return s.redeemCost
}

// GetPoints возвращает текущий баланс пользователя.
// Для незнакомого пользователя — 0.
func (s *Service) GetPoints(ctx context.Context, userID string) (int64, error) {
	balances, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	return balances[userID], nil
}

// SetPoints устанавливает баланс пользователя.
// Отрицательные значения прижимаются к нулю. Возвращает итоговый баланс.
func (s *Service) SetPoints(ctx context.Context, userID string, value int64) (int64, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	balances, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	if value < 0 {
		value = 0
	}
	balances[userID] = value

	if err := s.repo.Save(ctx, balances); err != nil {
		return 0, err
	}
	return value, nil
}

// AddPoints прибавляет delta к балансу (delta может быть отрицательной).
// Итог прижимается к нулю. Возвращает прежний и новый баланс —
// по прежнему значению вызывающие определяют пересечение порогов.
func (s *Service) AddPoints(ctx context.Context, userID string, delta int64) (prev, current int64, err error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	balances, err := s.repo.Load(ctx)
	if err != nil {
		return 0, 0, err
	}

	prev = balances[userID]
	current = prev + delta
	if current < 0 {
		current = 0
	}
	balances[userID] = current

	if err := s.repo.Save(ctx, balances); err != nil {
		return 0, 0, err
	}
	return prev, current, nil
}

// GetLeaderboard возвращает не более limit записей по убыванию баллов.
// Порядок при равных баллах определяется порядком обхода map —
// вторичного ключа сортировки нет, и полагаться на него нельзя.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	balances, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(balances))
	for userID, pts := range balances {
		entries = append(entries, LeaderboardEntry{UserID: userID, Points: pts})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetTotalPoints возвращает сумму всех балансов (только для отображения).
func (s *Service) GetTotalPoints(ctx context.Context) (int64, error) {
	balances, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, pts := range balances {
		total += pts
	}
	return total, nil
}

// ClearUser обнуляет баланс одного пользователя.
// Запись не удаляется физически — только обнуляется.
func (s *Service) ClearUser(ctx context.Context, userID string) error {
	_, err := s.SetPoints(ctx, userID, 0)
	return err
}

// ClearAll заменяет всю таблицу балансов пустой.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.repo.Save(ctx, make(map[string]int64)); err != nil {
		return err
	}
	log.Info("Все балансы очищены")
	return nil
}

// Redeem гасит награду за redeemCost баллов в одной критической секции.
// Проверка порога и списание не могут разъехаться с конкурентным начислением.
func (s *Service) Redeem(ctx context.Context, userID, rewardName string) (Reward, int64, error) {
	reward, ok := FindReward(rewardName)
	if !ok {
		return Reward{}, 0, common.ErrUnknownReward
	}

	unlock := s.locker.Lock(userID)
	defer unlock()

	balances, err := s.repo.Load(ctx)
	if err != nil {
		return Reward{}, 0, err
	}

	current := balances[userID]
	if current < s.redeemCost {
		return Reward{}, current, common.ErrInsufficientPoints
	}

	balances[userID] = current - s.redeemCost
	if err := s.repo.Save(ctx, balances); err != nil {
		return Reward{}, 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"reward":  reward.Name,
		"balance": balances[userID],
	}).Info("Награда погашена")

	return reward, balances[userID], nil
}
