package usecase

import (
	"context"
	"fmt"

	"SectorPulse/pkg/config"
)

// SectorService resolves sector configuration and drives the orchestrator.
// It is the single entry point shared by the cron scheduler, the recompute
// queue job, and the API trigger.
type SectorService struct {
	orch *SectorOrchestrator
	cfg  *config.Config
}

// NewSectorService creates a SectorService.
func NewSectorService(orch *SectorOrchestrator, cfg *config.Config) *SectorService {
	return &SectorService{orch: orch, cfg: cfg}
}

// RunSector computes and persists correlations for one configured sector.
func (s *SectorService) RunSector(ctx context.Context, sector string) error {
	sc, ok := s.cfg.Correlations.Sectors[sector]
	if !ok {
		return fmt.Errorf("unknown sector %q", sector)
	}
	_, err := s.orch.Run(ctx, sector, sc.Tickers, sc.Params())
	return err
}

// Sectors lists the configured sector names.
func (s *SectorService) Sectors() []string {
	out := make([]string, 0, len(s.cfg.Correlations.Sectors))
	for name := range s.cfg.Correlations.Sectors {
		out = append(out, name)
	}
	return out
}
