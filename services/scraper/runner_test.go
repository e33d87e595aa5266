package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"ptehtimetable_go/config"
)

type fakeFetcher struct {
	listCalls   int
	detailCalls int
	detailErr   error
	tables      *TimetableTables
	timetables  []RawTimetable
}

func (f *fakeFetcher) ListTimetables(ctx context.Context, year int) ([]RawTimetable, []byte, error) {
	f.listCalls++
	return f.timetables, []byte("{}"), nil
}

func (f *fakeFetcher) TimetableDetails(ctx context.Context, ttNum string) (*TimetableTables, []byte, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return nil, nil, f.detailErr
	}
	return f.tables, []byte("{}"), nil
}

func TestProcessTimetableSkipsPopulatedWeek(t *testing.T) {
	db, mock := newMockDB(t)
	fetcher := &fakeFetcher{}
	cfg := &config.Config{OnExistingWeek: config.OnExistingWeekSkip}
	runner := NewRunner(db, fetcher, nil, nil, cfg)
	stats := newRunStats()

	mock.ExpectQuery("SELECT .* FROM `weeks`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number"}).AddRow(2, "septembris", "42"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lessons`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(120))

	tt := RawTimetable{Number: "42", Text: "septembris", DateFrom: "2024-09-01"}
	if err := runner.processTimetable(context.Background(), tt, testDayIDs, stats, "run-1"); err != nil {
		t.Fatalf("processTimetable failed: %v", err)
	}

	if stats.WeeksSkipped != 1 || stats.WeeksCreated != 0 {
		t.Errorf("stats = created %d / skipped %d, want 0 / 1", stats.WeeksCreated, stats.WeeksSkipped)
	}
	if fetcher.detailCalls != 0 {
		t.Errorf("detail fetched %d times for a skipped week, want 0", fetcher.detailCalls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessTimetableCreatesWeekAndSurfacesFetchError(t *testing.T) {
	db, mock := newMockDB(t)
	fetchErr := errors.New("upstream unavailable")
	fetcher := &fakeFetcher{detailErr: fetchErr}
	cfg := &config.Config{OnExistingWeek: config.OnExistingWeekSkip}
	runner := NewRunner(db, fetcher, nil, nil, cfg)
	stats := newRunStats()

	mock.ExpectQuery("SELECT .* FROM `weeks`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO `weeks`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `lessons`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	tt := RawTimetable{Number: "43", Text: "oktobris", DateFrom: "2024-10-06"}
	err := runner.processTimetable(context.Background(), tt, testDayIDs, stats, "run-1")
	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want the fetch error", err)
	}

	if stats.WeeksCreated != 1 {
		t.Errorf("WeeksCreated = %d, want 1", stats.WeeksCreated)
	}
	if fetcher.detailCalls != 1 {
		t.Errorf("detail fetched %d times, want 1", fetcher.detailCalls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunnerRejectsConcurrentRuns(t *testing.T) {
	db, _ := newMockDB(t)
	cfg := &config.Config{OnExistingWeek: config.OnExistingWeekSkip}
	runner := NewRunner(db, &fakeFetcher{}, nil, nil, cfg)

	runner.mu.Lock()
	defer runner.mu.Unlock()

	if _, err := runner.Run(context.Background(), "manual"); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("error = %v, want ErrRunInProgress", err)
	}
}
