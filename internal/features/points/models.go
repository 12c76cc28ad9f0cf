// Package points управляет балансами баллов за картинки.
// models.go описывает структуры таблицы лидеров и список наград.
package points

// LeaderboardEntry — одна строка таблицы лидеров.
type LeaderboardEntry struct {
	UserID string `json:"userId"` // Discord user ID
	Points int64  `json:"points"` // Текущий баланс
}

// Reward — награда, которую админ может погасить за баллы.
type Reward struct {
	Name      string // Отображаемое имя (и значение опции slash-команды)
	GrantsVIP bool   // Выдавать ли VIP-роль при погашении
}

// Rewards — статический список наград. Загружается один раз,
// а не пересчитывается на каждый вызов.
var Rewards = []Reward{
	{Name: "Free Order"},
	{Name: "Perm Fee", GrantsVIP: true},
}

// FindReward ищет награду по имени.
func FindReward(name string) (Reward, bool) {
	for _, r := range Rewards {
		if r.Name == name {
			return r, true
		}
	}
	return Reward{}, false
}
