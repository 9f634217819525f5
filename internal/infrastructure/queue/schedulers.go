package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"themepark-backend/internal/config"
	"themepark-backend/internal/shared"
	"themepark-backend/pkg/logger"
)

// Scheduler enqueues the periodic reservation sweeps.
type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redis asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	if err := s.registerCompleteReservationsJob(); err != nil {
		return err
	}

	if err := s.registerExpirePendingJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Complete elapsed reservations (hourly)
// ================================================
// Confirmed reservations whose visit day is over and which hold no valid
// ticket are moved to Completed.
func (s *Scheduler) registerCompleteReservationsJob() error {
	task := asynq.NewTask(shared.TypeCompleteReservations, []byte("{}"))

	_, err := s.scheduler.Register(
		s.jobConfig.CompleteReservationsCron,
		task,
		asynq.Queue(shared.QueueReservation),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
		asynq.Unique(time.Hour),
	)
	if err != nil {
		logger.Error("Failed to register CompleteReservations job", err)
		return err
	}

	logger.Info("Registered CompleteReservations", map[string]interface{}{"cron": s.jobConfig.CompleteReservationsCron})
	return nil
}

// ================================================
// JOB 2: Expire unpaid reservations (every 15 minutes)
// ================================================
// Pending reservations older than the payment window are cancelled, which
// gives their promotion usage back.
func (s *Scheduler) registerExpirePendingJob() error {
	task := asynq.NewTask(shared.TypeExpirePendingReservations, []byte("{}"))

	_, err := s.scheduler.Register(
		s.jobConfig.ExpirePendingCron,
		task,
		asynq.Queue(shared.QueueReservation),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ExpirePending job", err)
		return err
	}

	logger.Info("Registered ExpirePending", map[string]interface{}{"cron": s.jobConfig.ExpirePendingCron})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
