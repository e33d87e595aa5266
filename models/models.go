package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Day model. Fixed weekday set, seeded once before any ingestion.
type Day struct {
	BaseModel
	Name  string `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Short string `json:"short" gorm:"size:10;not null"`
}

// Week model. One per source timetable; Number is the source system's
// timetable identifier and the uniqueness anchor.
type Week struct {
	BaseModel
	Name      string `json:"name" gorm:"size:255;not null"`
	Number    string `json:"number" gorm:"size:50;not null;uniqueIndex"`
	StartDate string `json:"start_date" gorm:"size:20"`

	// Relationships
	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:WeekID"`
}

// Teacher model. Upserted by unique name across timetables.
type Teacher struct {
	BaseModel
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

// Subject model
type Subject struct {
	BaseModel
	Name  string `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Short string `json:"short" gorm:"size:50"`
}

// Classroom model
type Classroom struct {
	BaseModel
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

// Group model: a class/cohort of students (the source system calls these
// "classes"). The primary teacher is fixed when the group is first seen.
type Group struct {
	BaseModel
	Name      string `json:"name" gorm:"size:255;not null;uniqueIndex"`
	TeacherID *uint  `json:"teacher_id" gorm:"default:null"`

	// Relationships
	Teacher *Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Division model: a sub-group/cohort distinct from Group (the source system
// calls these "groups"; the naming inversion is a source-schema fact).
type Division struct {
	BaseModel
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

// Lesson model: one concrete period-level schedule row. Unique by the
// (day, week, period, group, division) tuple so re-runs never duplicate.
type Lesson struct {
	BaseModel
	DayID       uint   `json:"day_id" gorm:"not null;uniqueIndex:idx_lesson_slot"`
	WeekID      uint   `json:"week_id" gorm:"not null;uniqueIndex:idx_lesson_slot"`
	Period      int    `json:"period" gorm:"not null;uniqueIndex:idx_lesson_slot"`
	GroupID     uint   `json:"group_id" gorm:"not null;uniqueIndex:idx_lesson_slot"`
	DivisionID  uint   `json:"division_id" gorm:"not null;uniqueIndex:idx_lesson_slot"`
	SubjectID   uint   `json:"subject_id" gorm:"not null"`
	TeacherID   *uint  `json:"teacher_id" gorm:"default:null"`
	ClassroomID *uint  `json:"classroom_id" gorm:"default:null"`
	Start       string `json:"start" gorm:"size:8;not null"`
	End         string `json:"end" gorm:"size:8;not null"`

	// Relationships
	Day       Day        `json:"day,omitempty" gorm:"foreignKey:DayID"`
	Week      Week       `json:"week,omitempty" gorm:"foreignKey:WeekID"`
	Group     Group      `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Division  Division   `json:"division,omitempty" gorm:"foreignKey:DivisionID"`
	Subject   Subject    `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Teacher   *Teacher   `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Classroom *Classroom `json:"classroom,omitempty" gorm:"foreignKey:ClassroomID"`
}

// ScrapeRun model for tracking ingestion runs
type ScrapeRun struct {
	BaseModel
	RunID           string     `json:"run_id" gorm:"size:36;not null;uniqueIndex"`
	StartedAt       time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt      *time.Time `json:"finished_at"`
	Status          string     `json:"status" gorm:"size:50;not null;default:'running';type:enum('running','completed','failed')"` // running, completed, failed
	Trigger         string     `json:"trigger" gorm:"size:50;not null;type:enum('manual','cron')"`                                 // manual, cron
	WeeksCreated    int        `json:"weeks_created"`
	WeeksSkipped    int        `json:"weeks_skipped"`
	WeeksFailed     int        `json:"weeks_failed"`
	LessonsCreated  int        `json:"lessons_created"`
	LessonsUpdated  int        `json:"lessons_updated"`
	CardsSkipped    int        `json:"cards_skipped"`
	SkippedByReason JSON       `json:"skipped_by_reason" gorm:"type:json"`
	Error           string     `json:"error" gorm:"type:text"`
}
