package scraper

import (
	"encoding/json"
	"fmt"
	"strconv"

	"ptehtimetable_go/models"
	"ptehtimetable_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Card skip reasons. unknown_day is the one deliberate silent skip: masks
// with zero or multiple bits set encode irregular placements the source
// emits routinely, and warning on every one of them would drown the log.
const (
	skipMissingLesson  = "missing_lesson"
	skipUnknownDay     = "unknown_day"
	skipMissingSubject = "missing_subject"
	skipNoClassIDs     = "no_class_ids"
	skipUnknownClass   = "unknown_class"
	skipNoDivision     = "no_division"
)

// dayMaskNames maps the five canonical single-bit day masks to day names.
var dayMaskNames = map[string]string{
	"10000": "Pirmdiena",
	"01000": "Otrdiena",
	"00100": "Trešdiena",
	"00010": "Ceturtdiena",
	"00001": "Piektdiena",
}

// cardSkip names why a card produced no placements. Silent skips are not
// logged.
type cardSkip struct {
	Reason string
	Silent bool
}

// resolver turns raw cards into placements against one timetable's indexed
// tables, creating canonical entities by name as they are first seen.
type resolver struct {
	tx     *gorm.DB
	tables *TimetableTables
	dayIDs map[string]uint
}

func newResolver(tx *gorm.DB, tables *TimetableTables, dayIDs map[string]uint) *resolver {
	return &resolver{tx: tx, tables: tables, dayIDs: dayIDs}
}

// resolveCard resolves one card into zero or more placements (one per class
// token that resolves). A returned cardSkip means the whole card produced
// nothing; a non-nil error is a storage failure and aborts the timetable.
func (r *resolver) resolveCard(card RawCard) ([]Placement, *cardSkip, error) {
	lesson, ok := r.tables.Lessons[card.LessonID]
	if !ok {
		return nil, &cardSkip{Reason: skipMissingLesson}, nil
	}

	dayName, ok := dayMaskNames[card.Days]
	if !ok {
		return nil, &cardSkip{Reason: skipUnknownDay, Silent: true}, nil
	}
	dayID, ok := r.dayIDs[dayName]
	if !ok {
		// Days are seeded before any ingestion; a miss here is a broken deploy.
		return nil, nil, fmt.Errorf("day %q is not seeded", dayName)
	}

	period := parsePeriod(card.Period)

	classroomID, err := r.resolveClassroom(card)
	if err != nil {
		return nil, nil, err
	}

	rawSubject, ok := r.tables.Subjects[lesson.SubjectID]
	if !ok {
		return nil, &cardSkip{Reason: skipMissingSubject}, nil
	}
	subject, err := firstOrCreateSubject(r.tx, rawSubject.Name, rawSubject.Short)
	if err != nil {
		return nil, nil, err
	}

	teacherID, err := r.resolveLessonTeacher(lesson)
	if err != nil {
		return nil, nil, err
	}

	if len(lesson.ClassIDs) == 0 {
		return nil, &cardSkip{Reason: skipNoClassIDs}, nil
	}

	placements := make([]Placement, 0, len(lesson.ClassIDs))
	for _, classToken := range lesson.ClassIDs {
		rawClass, ok := r.tables.Classes[classToken]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"card":   card.ID,
				"lesson": lesson.ID,
				"class":  classToken,
				"reason": skipUnknownClass,
			}).Warn("Skipping class token not found in class table")
			continue
		}

		groupTeacherID, err := r.resolveClassTeacher(rawClass)
		if err != nil {
			return nil, nil, err
		}
		group, err := firstOrCreateGroup(r.tx, rawClass.Name, groupTeacherID)
		if err != nil {
			return nil, nil, err
		}

		division, err := r.resolveDivision(lesson)
		if err != nil {
			return nil, nil, err
		}
		if division == nil {
			logrus.WithFields(logrus.Fields{
				"card":   card.ID,
				"lesson": lesson.ID,
				"class":  classToken,
				"reason": skipNoDivision,
			}).Warn("Skipping class token with unresolvable division")
			continue
		}

		placements = append(placements, Placement{
			DayID:           dayID,
			DayName:         dayName,
			StartPeriod:     period,
			GroupID:         group.ID,
			DivisionID:      division.ID,
			SubjectID:       subject.ID,
			TeacherID:       teacherID,
			ClassroomID:     classroomID,
			DurationPeriods: lesson.DurationPeriods,
		})
	}

	return placements, nil, nil
}

// resolveClassroom resolves the card's first classroom token, if any. An
// absent or unresolvable classroom is not an error.
func (r *resolver) resolveClassroom(card RawCard) (*uint, error) {
	if len(card.ClassroomIDs) == 0 || card.ClassroomIDs[0] == "" {
		return nil, nil
	}
	room, ok := r.tables.Classrooms[card.ClassroomIDs[0]]
	if !ok || utils.CompactSpaces(room.Name) == "" {
		return nil, nil
	}
	classroom, err := firstOrCreateClassroom(r.tx, room.Name)
	if err != nil {
		return nil, err
	}
	return &classroom.ID, nil
}

// resolveLessonTeacher resolves the raw lesson's first teacher token, if
// any. Cards without a resolvable teacher stay teacherless.
func (r *resolver) resolveLessonTeacher(lesson RawLesson) (*uint, error) {
	if len(lesson.TeacherIDs) == 0 {
		return nil, nil
	}
	rawTeacher, ok := r.tables.Teachers[lesson.TeacherIDs[0]]
	if !ok || utils.CompactSpaces(rawTeacher.Name) == "" {
		return nil, nil
	}
	teacher, err := firstOrCreateTeacher(r.tx, rawTeacher.Name)
	if err != nil {
		return nil, err
	}
	return &teacher.ID, nil
}

// resolveClassTeacher resolves the primary teacher used when a group is
// first created.
func (r *resolver) resolveClassTeacher(rawClass RawClass) (*uint, error) {
	if len(rawClass.TeacherIDs) == 0 {
		return nil, nil
	}
	rawTeacher, ok := r.tables.Teachers[rawClass.TeacherIDs[0]]
	if !ok || utils.CompactSpaces(rawTeacher.Name) == "" {
		return nil, nil
	}
	teacher, err := firstOrCreateTeacher(r.tx, rawTeacher.Name)
	if err != nil {
		return nil, err
	}
	return &teacher.ID, nil
}

// resolveDivision resolves the raw lesson's first groupids token. The
// source's "group" is the destination Division. Returns (nil, nil) when the
// token list is empty or the token does not resolve.
func (r *resolver) resolveDivision(lesson RawLesson) (*models.Division, error) {
	if len(lesson.GroupIDs) == 0 {
		return nil, nil
	}
	rawDivision, ok := r.tables.Divisions[lesson.GroupIDs[0]]
	if !ok || utils.CompactSpaces(rawDivision.Name) == "" {
		return nil, nil
	}
	return firstOrCreateDivision(r.tx, rawDivision.Name)
}

// seedCanonicalEntities pre-creates every named entity the timetable's
// tables mention, so the card loop mostly hits existing rows.
func seedCanonicalEntities(tx *gorm.DB, tables *TimetableTables) error {
	for _, rawTeacher := range tables.Teachers {
		if utils.CompactSpaces(rawTeacher.Name) == "" {
			continue
		}
		if _, err := firstOrCreateTeacher(tx, rawTeacher.Name); err != nil {
			return err
		}
	}
	for _, room := range tables.Classrooms {
		if utils.CompactSpaces(room.Name) == "" {
			continue
		}
		if _, err := firstOrCreateClassroom(tx, room.Name); err != nil {
			return err
		}
	}
	for _, rawSubject := range tables.Subjects {
		if utils.CompactSpaces(rawSubject.Name) == "" {
			continue
		}
		if _, err := firstOrCreateSubject(tx, rawSubject.Name, rawSubject.Short); err != nil {
			return err
		}
	}
	for _, rawClass := range tables.Classes {
		if utils.CompactSpaces(rawClass.Name) == "" {
			continue
		}
		var teacherID *uint
		if len(rawClass.TeacherIDs) > 0 {
			if rawTeacher, ok := tables.Teachers[rawClass.TeacherIDs[0]]; ok && utils.CompactSpaces(rawTeacher.Name) != "" {
				teacher, err := firstOrCreateTeacher(tx, rawTeacher.Name)
				if err != nil {
					return err
				}
				teacherID = &teacher.ID
			}
		}
		if _, err := firstOrCreateGroup(tx, rawClass.Name, teacherID); err != nil {
			return err
		}
	}
	for _, rawDivision := range tables.Divisions {
		if utils.CompactSpaces(rawDivision.Name) == "" {
			continue
		}
		if _, err := firstOrCreateDivision(tx, rawDivision.Name); err != nil {
			return err
		}
	}
	return nil
}

func parsePeriod(period json.Number) int {
	p, err := strconv.Atoi(period.String())
	if err != nil {
		return 0
	}
	return p
}

// --- find-or-create by name ---

func firstOrCreateTeacher(tx *gorm.DB, name string) (*models.Teacher, error) {
	name = utils.CompactSpaces(name)
	var teacher models.Teacher
	if err := tx.Where("name = ?", name).First(&teacher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			teacher = models.Teacher{Name: name}
			if err := tx.Create(&teacher).Error; err != nil {
				return nil, err
			}
			return &teacher, nil
		}
		return nil, err
	}
	return &teacher, nil
}

func firstOrCreateSubject(tx *gorm.DB, name, short string) (*models.Subject, error) {
	name = utils.CompactSpaces(name)
	var subject models.Subject
	if err := tx.Where("name = ?", name).First(&subject).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			subject = models.Subject{Name: name, Short: short}
			if err := tx.Create(&subject).Error; err != nil {
				return nil, err
			}
			return &subject, nil
		}
		return nil, err
	}
	return &subject, nil
}

func firstOrCreateClassroom(tx *gorm.DB, name string) (*models.Classroom, error) {
	name = utils.CompactSpaces(name)
	var classroom models.Classroom
	if err := tx.Where("name = ?", name).First(&classroom).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			classroom = models.Classroom{Name: name}
			if err := tx.Create(&classroom).Error; err != nil {
				return nil, err
			}
			return &classroom, nil
		}
		return nil, err
	}
	return &classroom, nil
}

// firstOrCreateGroup fixes the group's teacher at creation; later sightings
// of the same class never reassign it.
func firstOrCreateGroup(tx *gorm.DB, name string, teacherID *uint) (*models.Group, error) {
	name = utils.CompactSpaces(name)
	var group models.Group
	if err := tx.Where("name = ?", name).First(&group).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			group = models.Group{Name: name, TeacherID: teacherID}
			if err := tx.Create(&group).Error; err != nil {
				return nil, err
			}
			return &group, nil
		}
		return nil, err
	}
	return &group, nil
}

func firstOrCreateDivision(tx *gorm.DB, name string) (*models.Division, error) {
	name = utils.CompactSpaces(name)
	var division models.Division
	if err := tx.Where("name = ?", name).First(&division).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			division = models.Division{Name: name}
			if err := tx.Create(&division).Error; err != nil {
				return nil, err
			}
			return &division, nil
		}
		return nil, err
	}
	return &division, nil
}
