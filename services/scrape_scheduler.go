package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"ptehtimetable_go/config"
	"ptehtimetable_go/services/scraper"
)

// ScrapeScheduler triggers ingestion runs on the configured cron schedule.
type ScrapeScheduler struct {
	runner *scraper.Runner
	cron   *cron.Cron
}

func NewScrapeScheduler(runner *scraper.Runner) *ScrapeScheduler {
	return &ScrapeScheduler{
		runner: runner,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start registers the scheduled run and starts the cron loop. Each run gets
// a bounded deadline so a wedged remote cannot pin the scheduler forever.
func (s *ScrapeScheduler) Start() error {
	schedule := config.AppConfig.ScrapeCron
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if _, err := s.runner.Run(ctx, "cron"); err != nil {
			if errors.Is(err, scraper.ErrRunInProgress) {
				logrus.Info("Scheduled run skipped, previous run still in progress")
				return
			}
			logrus.WithError(err).Error("Scheduled ingestion run failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("schedule", schedule).Info("Scrape scheduler started")
	return nil
}

// Stop halts the cron loop; a run already in flight finishes on its own.
func (s *ScrapeScheduler) Stop() {
	s.cron.Stop()
}
