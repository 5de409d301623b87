package incidents

import (
	"context"
	"strings"
	"sync"

	"status-service/config"
	"status-service/core/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler creates a random incident on the configured cron schedule.
type Scheduler struct {
	cfg    config.GeneratorConfig
	gen    *Generator
	logger *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(cfg config.GeneratorConfig, gen *Generator, logger *utils.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, gen: gen, logger: logger}
}

func (s *Scheduler) enabled() bool {
	return s != nil && s.gen != nil && !s.cfg.Disabled && strings.TrimSpace(s.cfg.Schedule) != ""
}

func (s *Scheduler) StartWithContext(ctx context.Context) {
	if !s.enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(strings.TrimSpace(s.cfg.Schedule), func() { _ = s.RunOnce(runCtx) }); err != nil {
		cancel()
		if s.logger != nil {
			s.logger.Errorf("generator: bad schedule %q: %v", s.cfg.Schedule, err)
		}
		return
	}
	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	if s.logger != nil {
		s.logger.Printf("generator: scheduled %q", s.cfg.Schedule)
	}
}

func (s *Scheduler) StopWithContext(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	wasRunning := s.running
	s.cron = nil
	s.cancel = nil
	s.running = false
	s.mu.Unlock()
	if !wasRunning || c == nil {
		return nil
	}
	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce generates one incident with a random state.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s == nil || s.gen == nil {
		return nil
	}
	view, err := s.gen.Generate(ctx, "")
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("generator: %v", err)
		}
		return err
	}
	if s.logger != nil {
		s.logger.Printf("generator: created incident %d for %s (%s)", view.ID, view.Service, view.CurrentState)
	}
	return nil
}
