package scraper

import (
	"encoding/json"
	"fmt"
)

// Positional offsets of the entity tables inside the dbiAccessorRes table
// list. These are a stable contract of the EduPage payload, not derivable
// from content; ParseTimetableTables validates them once per payload.
const (
	tableClassrooms = 11
	tableClasses    = 12
	tableSubjects   = 13
	tableTeachers   = 14
	tableDivisions  = 15
	tableLessons    = 18
	tableCards      = 20
)

// tableOffsets maps each table role to its positional offset, in the order
// they appear in the payload.
var tableOffsets = map[string]int{
	"classrooms": tableClassrooms,
	"classes":    tableClasses,
	"subjects":   tableSubjects,
	"teachers":   tableTeachers,
	"divisions":  tableDivisions,
	"lessons":    tableLessons,
	"cards":      tableCards,
}

// Raw source entities. All ids are opaque string tokens: the source emits
// negative numbers ("-135") and marker-prefixed values ("*31") and neither
// form carries meaning beyond uniqueness within one timetable payload.

type RawTimetable struct {
	Text     string `json:"text"`
	Number   string `json:"tt_num"`
	DateFrom string `json:"datefrom"`
}

type RawTeacher struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RawSubject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Short string `json:"short"`
}

type RawClassroom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawClass is the source's "class" entity; it becomes a destination Group.
type RawClass struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	TeacherIDs []string `json:"teacherids"`
}

// RawDivision is the source's "group" entity; it becomes a destination
// Division. The inversion relative to RawClass is a source-schema fact.
type RawDivision struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RawLesson struct {
	ID              string   `json:"id"`
	SubjectID       string   `json:"subjectid"`
	TeacherIDs      []string `json:"teacherids"`
	GroupIDs        []string `json:"groupids"` // division references
	ClassIDs        []string `json:"classids"` // group references
	DurationPeriods int      `json:"durationperiods"`
}

// RawCard binds a raw lesson to one day and one starting period.
type RawCard struct {
	ID           string      `json:"id"`
	LessonID     string      `json:"lessonid"`
	Period       json.Number `json:"period"`
	Days         string      `json:"days"`
	Weeks        string      `json:"weeks"`
	Locked       bool        `json:"locked"`
	ClassroomIDs []string    `json:"classroomids"`
}

func (t RawTeacher) rawID() string   { return t.ID }
func (s RawSubject) rawID() string   { return s.ID }
func (c RawClassroom) rawID() string { return c.ID }
func (c RawClass) rawID() string     { return c.ID }
func (d RawDivision) rawID() string  { return d.ID }
func (l RawLesson) rawID() string    { return l.ID }

// TimetableTables holds one timetable's entity tables indexed by source id.
// Indices are rebuilt per fetch and discarded after the ingestion pass; the
// same raw id in two timetables is not the same real entity.
type TimetableTables struct {
	Classrooms map[string]RawClassroom
	Classes    map[string]RawClass
	Subjects   map[string]RawSubject
	Teachers   map[string]RawTeacher
	Divisions  map[string]RawDivision
	Lessons    map[string]RawLesson
	Cards      []RawCard
}

type rawIdentifiable interface {
	rawID() string
}

// indexByID keys rows by their own source id. Last write wins on duplicate
// ids; well-formed payloads never contain them.
func indexByID[T rawIdentifiable](rows []T) map[string]T {
	indexed := make(map[string]T, len(rows))
	for _, row := range rows {
		indexed[row.rawID()] = row
	}
	return indexed
}

type timetableListEnvelope struct {
	R struct {
		Regular struct {
			Timetables []RawTimetable `json:"timetables"`
		} `json:"regular"`
	} `json:"r"`
}

type timetableDetailEnvelope struct {
	R struct {
		DbiAccessorRes struct {
			Tables []struct {
				DataRows json.RawMessage `json:"data_rows"`
			} `json:"tables"`
		} `json:"dbiAccessorRes"`
	} `json:"r"`
}

// ParseTimetableList decodes the ttviewer response into the available
// timetable descriptors.
func ParseTimetableList(payload []byte) ([]RawTimetable, error) {
	var envelope timetableListEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode timetable list: %w", err)
	}
	return envelope.R.Regular.Timetables, nil
}

// ParseTimetableTables decodes one timetable detail payload and indexes every
// entity table. It fails fast with the offending role/offset when the payload
// does not match the positional contract, so upstream schema drift surfaces
// as a clear diagnostic instead of misindexed entities.
func ParseTimetableTables(payload []byte) (*TimetableTables, error) {
	var envelope timetableDetailEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode timetable details: %w", err)
	}

	raw := envelope.R.DbiAccessorRes.Tables
	for role, offset := range tableOffsets {
		if offset >= len(raw) {
			return nil, fmt.Errorf("timetable payload has %d tables, %s expected at offset %d", len(raw), role, offset)
		}
		if len(raw[offset].DataRows) == 0 {
			return nil, fmt.Errorf("timetable payload table %s (offset %d) has no data_rows", role, offset)
		}
	}

	decodeRows := func(role string, offset int, dst interface{}) error {
		if err := json.Unmarshal(raw[offset].DataRows, dst); err != nil {
			return fmt.Errorf("failed to decode %s table (offset %d): %w", role, offset, err)
		}
		return nil
	}

	var (
		classrooms []RawClassroom
		classes    []RawClass
		subjects   []RawSubject
		teachers   []RawTeacher
		divisions  []RawDivision
		lessons    []RawLesson
		cards      []RawCard
	)

	if err := decodeRows("classrooms", tableClassrooms, &classrooms); err != nil {
		return nil, err
	}
	if err := decodeRows("classes", tableClasses, &classes); err != nil {
		return nil, err
	}
	if err := decodeRows("subjects", tableSubjects, &subjects); err != nil {
		return nil, err
	}
	if err := decodeRows("teachers", tableTeachers, &teachers); err != nil {
		return nil, err
	}
	if err := decodeRows("divisions", tableDivisions, &divisions); err != nil {
		return nil, err
	}
	if err := decodeRows("lessons", tableLessons, &lessons); err != nil {
		return nil, err
	}
	if err := decodeRows("cards", tableCards, &cards); err != nil {
		return nil, err
	}

	return &TimetableTables{
		Classrooms: indexByID(classrooms),
		Classes:    indexByID(classes),
		Subjects:   indexByID(subjects),
		Teachers:   indexByID(teachers),
		Divisions:  indexByID(divisions),
		Lessons:    indexByID(lessons),
		Cards:      cards,
	}, nil
}
