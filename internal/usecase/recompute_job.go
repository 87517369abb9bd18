package usecase

import (
	"context"
	"fmt"

	"SectorPulse/pkg/queue"
)

// RecomputeMessageType is the queue message type for on-demand recomputes.
const RecomputeMessageType = "correlations.recompute"

// RecomputePayload carries the sector to recompute.
type RecomputePayload struct {
	Sector string `json:"sector"`
}

// RecomputeJob drains on-demand recompute requests from the queue.
type RecomputeJob struct {
	svc *SectorService
}

// NewRecomputeJob creates the queue job.
func NewRecomputeJob(svc *SectorService) *RecomputeJob {
	return &RecomputeJob{svc: svc}
}

func (j *RecomputeJob) Name() string { return "sector-recompute" }
func (j *RecomputeJob) Type() string { return RecomputeMessageType }

func (j *RecomputeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RecomputePayload](payload)
	if err != nil {
		return fmt.Errorf("recompute payload: %w", err)
	}
	return j.svc.RunSector(ctx, p.Sector)
}

var _ queue.Job = (*RecomputeJob)(nil)
