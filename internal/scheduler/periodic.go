package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"agencydesk_backend/platform/config"
	"agencydesk_backend/platform/logger"
)

// Periodic enqueues the orchestrator run on a fixed interval. Unique
// task registration keeps at most one run pending, so a slow pass never
// stacks runs behind itself.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetOrchestratorInterval()
	if interval < time.Minute {
		interval = time.Minute
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger: asynqLogger{log: log},
	})

	_, err = scheduler.Register(
		fmt.Sprintf("@every %s", interval),
		NewOrchestratorRunTask(),
		asynq.Queue(queue),
		asynq.Unique(interval),
	)
	if err != nil {
		return nil, fmt.Errorf("register orchestrator schedule: %w", err)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}

// asynqLogger adapts the application logger to asynq's interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
