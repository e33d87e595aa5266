package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ptehtimetable_go/database"
	"ptehtimetable_go/services"
	"ptehtimetable_go/utils"
)

// ExportController serves operational exports of the normalized schedule.
type ExportController struct{}

// ExportWeek streams one week's lessons as an xlsx workbook.
func (ec *ExportController) ExportWeek(c *fiber.Ctx) error {
	weekID, err := c.ParamsInt("id")
	if err != nil || weekID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid week id"})
	}

	file, err := services.ExportWeekXLSX(database.DB, uint(weekID))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to render workbook"})
	}

	filename := utils.SanitizeString(fmt.Sprintf("week-%d.xlsx", weekID))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(buf.Bytes())
}
