// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает ротацию статуса бота каждые 15 секунд.
package jobs

import (
	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// status — один элемент ротации. Список статический, загружается один раз.
type status struct {
	name         string
	activityType discordgo.ActivityType
}

var statuses = []status{
	{"70-80% off food!", discordgo.ActivityTypeGame},
	{"discord.gg/zreats", discordgo.ActivityTypeWatching},
	{"Cheap food here!", discordgo.ActivityTypeListening},
	{"Make a ticket!", discordgo.ActivityTypeCompeting},
	{"Enjoy fast delivery!", discordgo.ActivityTypeGame},
	{"prin was here", discordgo.ActivityTypeWatching},
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron    *cron.Cron
	session *discordgo.Session
	enabled bool
	index   int
}

// NewScheduler создаёт планировщик задач.
func NewScheduler(session *discordgo.Session, enabled bool) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		session: session,
		enabled: enabled,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start() {
	if !s.enabled {
		log.Info("Ротация статуса отключена настройкой")
		return
	}

	// Ротация статуса каждые 15 секунд
	s.cron.AddFunc("@every 15s", s.rotateStatus)

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и дожидается текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// rotateStatus переключает статус на следующий из списка.
func (s *Scheduler) rotateStatus() {
	st := statuses[s.index]
	s.index = (s.index + 1) % len(statuses)

	err := s.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{Name: st.name, Type: st.activityType},
		},
	})
	if err != nil {
		log.WithError(err).Debug("Не удалось обновить статус")
	}
}
