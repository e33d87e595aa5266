package scraper

import "ptehtimetable_go/models"

// defaultDurationPeriods applies when a raw lesson omits durationperiods.
const defaultDurationPeriods = 2

// periodStep is how far the schedule advances per repetition: a duration
// unit of two physical periods is one 80-minute block.
const periodStep = 2

// Placement is a fully resolved card for one group/division combination,
// ready to be expanded into period-level lesson rows.
type Placement struct {
	DayID           uint
	DayName         string
	StartPeriod     int
	GroupID         uint
	DivisionID      uint
	SubjectID       uint
	TeacherID       *uint
	ClassroomID     *uint
	DurationPeriods int
}

// ExpandPeriods fans a placement out into one lesson row per occupied
// period slot: ceil(durationperiods/2) rows, each two periods after the
// previous, with start/end times resolved per slot.
func ExpandPeriods(p Placement, weekID uint) []models.Lesson {
	durationPeriods := p.DurationPeriods
	if durationPeriods <= 0 {
		durationPeriods = defaultDurationPeriods
	}
	repetitions := (durationPeriods + 1) / 2

	lessons := make([]models.Lesson, 0, repetitions)
	for i := 0; i < repetitions; i++ {
		period := p.StartPeriod + i*periodStep
		lessons = append(lessons, models.Lesson{
			DayID:       p.DayID,
			WeekID:      weekID,
			Period:      period,
			GroupID:     p.GroupID,
			DivisionID:  p.DivisionID,
			SubjectID:   p.SubjectID,
			TeacherID:   p.TeacherID,
			ClassroomID: p.ClassroomID,
			Start:       StartTime(p.DayName, period),
			End:         EndTime(p.DayName, period),
		})
	}
	return lessons
}
