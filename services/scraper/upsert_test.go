package scraper

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"ptehtimetable_go/models"
)

func TestUpsertLessonCreatesNewSlot(t *testing.T) {
	db, mock := newMockDB(t)
	stats := newRunStats()

	mock.ExpectQuery("SELECT .* FROM `lessons`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO `lessons`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	lesson := models.Lesson{
		DayID: 1, WeekID: 2, Period: 1, GroupID: 4, DivisionID: 2,
		SubjectID: 9, Start: "08:30:00", End: "09:50:00",
	}
	if err := upsertLesson(db, &lesson, stats); err != nil {
		t.Fatalf("upsertLesson failed: %v", err)
	}
	if stats.LessonsCreated != 1 || stats.LessonsUpdated != 0 {
		t.Errorf("stats = created %d / updated %d, want 1 / 0", stats.LessonsCreated, stats.LessonsUpdated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpsertLessonRefreshesExistingSlot(t *testing.T) {
	db, mock := newMockDB(t)
	stats := newRunStats()

	mock.ExpectQuery("SELECT .* FROM `lessons`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_id", "week_id", "period", "group_id", "division_id", "subject_id"}).
			AddRow(55, 1, 2, 1, 4, 2, 3))
	mock.ExpectExec("UPDATE `lessons` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	lesson := models.Lesson{
		DayID: 1, WeekID: 2, Period: 1, GroupID: 4, DivisionID: 2,
		SubjectID: 9, Start: "08:30:00", End: "09:50:00",
	}
	if err := upsertLesson(db, &lesson, stats); err != nil {
		t.Fatalf("upsertLesson failed: %v", err)
	}
	if stats.LessonsCreated != 0 || stats.LessonsUpdated != 1 {
		t.Errorf("stats = created %d / updated %d, want 0 / 1", stats.LessonsCreated, stats.LessonsUpdated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunStatsAddSkip(t *testing.T) {
	stats := newRunStats()
	stats.addSkip(skipUnknownDay)
	stats.addSkip(skipUnknownDay)
	stats.addSkip(skipMissingLesson)

	if stats.CardsSkipped != 3 {
		t.Errorf("CardsSkipped = %d, want 3", stats.CardsSkipped)
	}
	if stats.SkippedByReason[skipUnknownDay] != 2 || stats.SkippedByReason[skipMissingLesson] != 1 {
		t.Errorf("unexpected reason counters: %v", stats.SkippedByReason)
	}
}
