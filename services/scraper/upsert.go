package scraper

import (
	"gorm.io/gorm"

	"ptehtimetable_go/models"
)

// RunStats accumulates counters over one orchestration pass for the
// end-of-run report.
type RunStats struct {
	WeeksCreated    int
	WeeksSkipped    int
	WeeksFailed     int
	LessonsCreated  int
	LessonsUpdated  int
	CardsSkipped    int
	SkippedByReason map[string]int
}

func newRunStats() *RunStats {
	return &RunStats{SkippedByReason: make(map[string]int)}
}

func (s *RunStats) addSkip(reason string) {
	s.CardsSkipped++
	s.SkippedByReason[reason]++
}

// upsertLesson persists one expanded lesson row keyed by its natural
// key (day, week, period, group, division). An existing row keeps its key
// and gets its mutable fields refreshed; the check-then-write is safe here
// because a week's rows are only ever written by the single run holding the
// run lock, and the DB unique index backstops anything that slips through.
func upsertLesson(tx *gorm.DB, lesson *models.Lesson, stats *RunStats) error {
	var existing models.Lesson
	err := tx.Where(
		"day_id = ? AND week_id = ? AND period = ? AND group_id = ? AND division_id = ?",
		lesson.DayID, lesson.WeekID, lesson.Period, lesson.GroupID, lesson.DivisionID,
	).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		if err := tx.Create(lesson).Error; err != nil {
			return err
		}
		stats.LessonsCreated++
		return nil
	}
	if err != nil {
		return err
	}

	update := map[string]interface{}{
		"subject_id":   lesson.SubjectID,
		"teacher_id":   lesson.TeacherID,
		"classroom_id": lesson.ClassroomID,
		"start":        lesson.Start,
		"end":          lesson.End,
	}
	if err := tx.Model(&existing).Updates(update).Error; err != nil {
		return err
	}
	stats.LessonsUpdated++
	return nil
}
