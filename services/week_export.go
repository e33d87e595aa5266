package services

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"ptehtimetable_go/models"
)

var exportHeader = []string{"Period", "Start", "End", "Group", "Division", "Subject", "Teacher", "Classroom"}

// ExportWeekXLSX renders one week's normalized lessons as a workbook with
// one sheet per weekday, rows ordered by period then group name.
func ExportWeekXLSX(db *gorm.DB, weekID uint) (*excelize.File, error) {
	var week models.Week
	if err := db.First(&week, weekID).Error; err != nil {
		return nil, fmt.Errorf("week %d not found: %w", weekID, err)
	}

	var days []models.Day
	if err := db.Order("id").Find(&days).Error; err != nil {
		return nil, err
	}

	var lessons []models.Lesson
	err := db.Preload("Group").Preload("Division").Preload("Subject").
		Preload("Teacher").Preload("Classroom").
		Where("week_id = ?", weekID).
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[uint][]models.Lesson)
	for _, lesson := range lessons {
		byDay[lesson.DayID] = append(byDay[lesson.DayID], lesson)
	}

	f := excelize.NewFile()
	for _, day := range days {
		sheet := day.Name
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		for col, title := range exportHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(sheet, cell, title); err != nil {
				return nil, err
			}
		}

		dayLessons := byDay[day.ID]
		sort.Slice(dayLessons, func(i, j int) bool {
			if dayLessons[i].Period != dayLessons[j].Period {
				return dayLessons[i].Period < dayLessons[j].Period
			}
			return dayLessons[i].Group.Name < dayLessons[j].Group.Name
		})

		for rowIdx, lesson := range dayLessons {
			teacherName := ""
			if lesson.Teacher != nil {
				teacherName = lesson.Teacher.Name
			}
			classroomName := ""
			if lesson.Classroom != nil {
				classroomName = lesson.Classroom.Name
			}
			values := []interface{}{
				lesson.Period,
				lesson.Start,
				lesson.End,
				lesson.Group.Name,
				lesson.Division.Name,
				lesson.Subject.Name,
				teacherName,
				classroomName,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, err
				}
			}
		}
	}

	// Drop the default sheet so the first weekday opens by default.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if len(days) > 0 {
		if idx, err := f.GetSheetIndex(days[0].Name); err == nil {
			f.SetActiveSheet(idx)
		}
	}

	return f, nil
}
