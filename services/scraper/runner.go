package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ptehtimetable_go/config"
	"ptehtimetable_go/models"
)

// ErrRunInProgress is returned when a run is requested while another one
// still holds the run lock.
var ErrRunInProgress = errors.New("an ingestion run is already in progress")

const (
	runLockKey = "scrape:run:lock"
	runLockTTL = 45 * time.Minute
)

// PayloadArchiver stores raw fetched payloads for replay/debugging.
type PayloadArchiver interface {
	Store(ctx context.Context, key string, payload []byte) error
}

// Runner drives one full orchestration pass: list timetables, then per
// timetable fetch, index, resolve, expand and upsert. The pipeline is
// strictly sequential; the run lock keeps overlapping invocations out.
type Runner struct {
	db      *gorm.DB
	fetcher Fetcher
	redis   *redis.Client
	archive PayloadArchiver
	cfg     *config.Config
	mu      sync.Mutex
}

func NewRunner(db *gorm.DB, fetcher Fetcher, redisClient *redis.Client, archive PayloadArchiver, cfg *config.Config) *Runner {
	return &Runner{
		db:      db,
		fetcher: fetcher,
		redis:   redisClient,
		archive: archive,
		cfg:     cfg,
	}
}

// Run executes one ingestion pass and records it as a ScrapeRun row. A
// failure to fetch the timetable list is fatal for the run; a failure on a
// single timetable is logged, counted and the run moves on to the next one.
func (r *Runner) Run(ctx context.Context, trigger string) (*models.ScrapeRun, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	runID := uuid.NewString()
	if err := r.acquireRedisLock(ctx, runID); err != nil {
		return nil, err
	}
	defer r.releaseRedisLock(runID)

	run := &models.ScrapeRun{
		RunID:     runID,
		StartedAt: time.Now(),
		Status:    "running",
		Trigger:   trigger,
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	logrus.WithFields(logrus.Fields{"run_id": runID, "trigger": trigger}).Info("Ingestion run started")

	stats := newRunStats()
	if err := r.run(ctx, runID, stats); err != nil {
		r.finalizeRun(run, stats, err)
		return run, err
	}
	r.finalizeRun(run, stats, nil)

	logrus.WithFields(logrus.Fields{
		"run_id":          runID,
		"weeks_created":   stats.WeeksCreated,
		"weeks_skipped":   stats.WeeksSkipped,
		"weeks_failed":    stats.WeeksFailed,
		"lessons_created": stats.LessonsCreated,
		"lessons_updated": stats.LessonsUpdated,
		"cards_skipped":   stats.CardsSkipped,
	}).Info("Ingestion run completed")

	return run, nil
}

func (r *Runner) run(ctx context.Context, runID string, stats *RunStats) error {
	timetables, rawList, err := r.fetcher.ListTimetables(ctx, r.cfg.EdupageYear)
	if err != nil {
		return fmt.Errorf("failed to fetch timetable list: %w", err)
	}
	r.archivePayload(ctx, fmt.Sprintf("edupage/%d/list-%s.json", r.cfg.EdupageYear, runID), rawList)

	dayIDs, err := r.loadDayIDs()
	if err != nil {
		return err
	}

	for _, tt := range timetables {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.processTimetable(ctx, tt, dayIDs, stats, runID); err != nil {
			// Scoped to this timetable: later timetables still get their pass.
			stats.WeeksFailed++
			logrus.WithFields(logrus.Fields{
				"run_id":    runID,
				"timetable": tt.Number,
			}).WithError(err).Error("Timetable ingestion failed, continuing with next")
		}
	}
	return nil
}

func (r *Runner) processTimetable(ctx context.Context, tt RawTimetable, dayIDs map[string]uint, stats *RunStats, runID string) error {
	week, created, err := r.firstOrCreateWeek(tt)
	if err != nil {
		return err
	}
	if created {
		stats.WeeksCreated++
		logrus.WithFields(logrus.Fields{"week": week.Name, "number": week.Number}).Info("Created new week")
	}

	var existingLessons int64
	if err := r.db.Model(&models.Lesson{}).Where("week_id = ?", week.ID).Count(&existingLessons).Error; err != nil {
		return err
	}
	if existingLessons > 0 && r.cfg.OnExistingWeek == config.OnExistingWeekSkip {
		stats.WeeksSkipped++
		logrus.WithFields(logrus.Fields{
			"week":    week.Name,
			"lessons": existingLessons,
		}).Info("Week already populated, skipping")
		return nil
	}

	tables, rawDetail, err := r.fetcher.TimetableDetails(ctx, tt.Number)
	if err != nil {
		return err
	}
	r.archivePayload(ctx, fmt.Sprintf("edupage/%d/%s-%s.json", r.cfg.EdupageYear, tt.Number, runID), rawDetail)

	// One transaction per timetable: a week's lessons become durable only
	// after its own full pass.
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := seedCanonicalEntities(tx, tables); err != nil {
			return err
		}

		res := newResolver(tx, tables, dayIDs)
		for _, card := range tables.Cards {
			placements, skip, err := res.resolveCard(card)
			if err != nil {
				return err
			}
			if skip != nil {
				stats.addSkip(skip.Reason)
				if !skip.Silent {
					logrus.WithFields(logrus.Fields{
						"card":   card.ID,
						"lesson": card.LessonID,
						"reason": skip.Reason,
					}).Warn("Skipping card")
				}
				continue
			}
			for _, placement := range placements {
				for _, lesson := range ExpandPeriods(placement, week.ID) {
					lesson := lesson
					if err := upsertLesson(tx, &lesson, stats); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func (r *Runner) firstOrCreateWeek(tt RawTimetable) (*models.Week, bool, error) {
	var week models.Week
	err := r.db.Where("number = ?", tt.Number).First(&week).Error
	if err == gorm.ErrRecordNotFound {
		week = models.Week{Name: tt.Text, Number: tt.Number, StartDate: tt.DateFrom}
		if err := r.db.Create(&week).Error; err != nil {
			return nil, false, err
		}
		return &week, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &week, false, nil
}

func (r *Runner) loadDayIDs() (map[string]uint, error) {
	var days []models.Day
	if err := r.db.Find(&days).Error; err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, errors.New("day table is empty; seed days before ingesting")
	}
	dayIDs := make(map[string]uint, len(days))
	for _, day := range days {
		dayIDs[day.Name] = day.ID
	}
	return dayIDs, nil
}

func (r *Runner) finalizeRun(run *models.ScrapeRun, stats *RunStats, runErr error) {
	now := time.Now()
	run.FinishedAt = &now
	run.WeeksCreated = stats.WeeksCreated
	run.WeeksSkipped = stats.WeeksSkipped
	run.WeeksFailed = stats.WeeksFailed
	run.LessonsCreated = stats.LessonsCreated
	run.LessonsUpdated = stats.LessonsUpdated
	run.CardsSkipped = stats.CardsSkipped
	if skipped, err := json.Marshal(stats.SkippedByReason); err == nil {
		run.SkippedByReason = skipped
	}
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	} else {
		run.Status = "completed"
	}
	if err := r.db.Save(run).Error; err != nil {
		logrus.WithError(err).Error("Failed to persist run result")
	}
}

// archivePayload is best-effort: archiving problems never fail a run.
func (r *Runner) archivePayload(ctx context.Context, key string, payload []byte) {
	if r.archive == nil || !r.cfg.ArchivePayloads {
		return
	}
	if err := r.archive.Store(ctx, key, payload); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to archive raw payload")
	}
}

func (r *Runner) acquireRedisLock(ctx context.Context, runID string) error {
	if r.redis == nil {
		return nil
	}
	ok, err := r.redis.SetNX(ctx, runLockKey, runID, runLockTTL).Result()
	if err != nil {
		logrus.WithError(err).Warn("Redis run lock unavailable, relying on in-process guard")
		return nil
	}
	if !ok {
		return ErrRunInProgress
	}
	return nil
}

func (r *Runner) releaseRedisLock(runID string) {
	if r.redis == nil {
		return
	}
	ctx := context.Background()
	current, err := r.redis.Get(ctx, runLockKey).Result()
	if err == nil && current == runID {
		r.redis.Del(ctx, runLockKey)
	}
}
