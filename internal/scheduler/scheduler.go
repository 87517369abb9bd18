package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"SectorPulse/pkg/config"
	applogger "SectorPulse/pkg/logger"
)

// SectorRunner runs one sector's correlation pass.
type SectorRunner interface {
	RunSector(ctx context.Context, sector string) error
}

// Scheduler triggers periodic correlation recomputes per sector.
type Scheduler struct {
	cron    *cron.Cron
	runner  SectorRunner
	log     *applogger.Logger
	timeout time.Duration
}

// New creates a scheduler. timeout bounds one full sector pass.
func New(runner SectorRunner, log *applogger.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		log:     log,
		timeout: timeout,
	}
}

// Register adds a sector on the given cron spec (e.g. "@every 6h").
func (s *Scheduler) Register(sector, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.runner.RunSector(ctx, sector); err != nil {
			s.log.Error("scheduled correlation run failed",
				applogger.String("sector", sector),
				applogger.Error(err),
			)
			return
		}
		s.log.Info("scheduled correlation run done", applogger.String("sector", sector))
	})
	if err != nil {
		return fmt.Errorf("register sector %s: %w", sector, err)
	}
	return nil
}

// RegisterSectors registers every configured sector on the shared spec.
func (s *Scheduler) RegisterSectors(cfg *config.Config) error {
	for sector := range cfg.Correlations.Sectors {
		if err := s.Register(sector, cfg.Correlations.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// Start begins cron dispatch.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatch and waits for running entries.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
