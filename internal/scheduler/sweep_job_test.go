package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"tpf-ecosystem/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

type sweeperFunc func(ctx context.Context) (int, error)

func (f sweeperFunc) Sweep(ctx context.Context) (int, error) {
	return f(ctx)
}

func TestSweepAllContinuesPastFailures(t *testing.T) {
	s := NewSweepScheduler("0 * * * * *", map[string]Sweeper{
		"promotions":  sweeperFunc(func(context.Context) (int, error) { return 2, nil }),
		"storm_words": sweeperFunc(func(context.Context) (int, error) { return 0, errors.New("redis down") }),
	})

	got := s.SweepAll(context.Background())
	if got["promotions"] != 2 {
		t.Errorf("promotions = %d, want 2", got["promotions"])
	}
	if _, ok := got["storm_words"]; ok {
		t.Errorf("failed sweeper reported a result")
	}
}

func TestStartRejectsInvalidCron(t *testing.T) {
	s := NewSweepScheduler("every minute", nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() accepted an invalid cron expression")
	}
}

func TestStartStop(t *testing.T) {
	s := NewSweepScheduler("*/5 * * * * *", map[string]Sweeper{})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop()
}
