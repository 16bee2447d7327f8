package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const settleBatchSize = 500

// LessonSettler закрывает закончившиеся занятия
type LessonSettler interface {
	SettleFinished(ctx context.Context, endedBefore time.Time, limit int) (int, error)
}

var _ LessonSettler = (*service.SettlementService)(nil)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron    *cron.Cron
	settler LessonSettler
	spec    string
	grace   time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewScheduler создаёт новый планировщик
func NewScheduler(settler LessonSettler, spec string, grace time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	cl := cronLogger{logger.Sugar()}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			// Следующий запуск пропускается, пока не закончился предыдущий
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		settler: settler,
		spec:    spec,
		grace:   grace,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.String("settle_cron", s.spec))

	if _, err := s.cron.AddFunc(s.spec, func() { s.settleFinished(ctx) }); err != nil {
		return fmt.Errorf("add settlement job: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает фоновые задачи и ждёт завершения текущего запуска
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// settleFinished закрывает занятия, закончившиеся раньше grace назад
func (s *Scheduler) settleFinished(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	startTime := time.Now()
	before := s.now().Add(-s.grace)

	settled, err := s.settler.SettleFinished(ctx, before, settleBatchSize)
	if err != nil {
		s.logger.Error("Settlement sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Settlement sweep completed",
		zap.Int("settled", settled),
		zap.Time("ended_before", before),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// cronLogger направляет логи cron в zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
