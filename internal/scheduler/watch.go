package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule matches a two-minute polling loop.
const DefaultSchedule = "@every 2m"

// Runner executes one pass.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// Watch runs pass immediately and then on schedule until ctx is done. A tick
// that fires while a pass is still running is skipped. Watch waits for the
// running pass to finish before returning.
func Watch(ctx context.Context, schedule string, pass Runner, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("watch")
	cl := cronLogger{logger.Sugar()}

	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddJob(schedule, cron.FuncJob(func() {
		if _, err := pass.Run(ctx); err != nil {
			logger.Error("pass failed", zap.Error(err))
		}
	}))
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("watching", zap.String("schedule", schedule))
	var first sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		c.Entry(id).WrappedJob.Run()
	}()

	<-ctx.Done()
	logger.Info("stopping, waiting for running pass")
	<-c.Stop().Done()
	first.Wait()
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
