// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание проверки правил буста.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper — проход по правилам буста.
type Sweeper interface {
	Run(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
}

// NewScheduler создаёт планировщик в часовом поясе приложения.
// Запуск, пришедший во время незавершённого прохода, пропускается.
func NewScheduler(sweeper Sweeper, schedule string, loc *time.Location) *Scheduler {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	return &Scheduler{cron: c, sweeper: sweeper, schedule: schedule}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		log.Debug("[CRON] Проверка правил буста")
		if err := s.sweeper.Run(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка проверки правил")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт текущий проход.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// cronLogger направляет сообщения cron в logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).Debug("[CRON] " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithError(err).WithFields(fields(keysAndValues)).Error("[CRON] " + msg)
}

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
