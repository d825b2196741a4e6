package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/service"
)

const sweepTimeout = 30 * time.Second

type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepResult, error)
}

// SweepJob runs the session sweep on a cron schedule. A run that is still in
// progress when the next tick fires causes that tick to be skipped.
type SweepJob struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
}

func NewSweepJob(sweeper Sweeper, schedule string) *SweepJob {
	return &SweepJob{
		sweeper:  sweeper,
		schedule: schedule,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
	}
}

func (j *SweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", j.schedule, err)
	}
	j.cron.Start()
	log.Info().Str("schedule", j.schedule).Msg("session sweep job started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (j *SweepJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("session sweep job stopped")
}

func (j *SweepJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	res, err := j.sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
		return
	}
	log.Debug().
		Int("scanned", res.Scanned).
		Int("advanced", res.Advanced).
		Int("finalized", res.Finalized).
		Dur("took", time.Since(start)).
		Msg("session sweep ran")
}
