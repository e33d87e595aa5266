package seeders

import (
	"log"
	"ptehtimetable_go/database"
	"ptehtimetable_go/models"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedDays()

	log.Println("Database seeding completed successfully!")
}

// SeedDays seeds the fixed weekday set. Every lesson row references one of
// these five days, so they must exist before the first ingestion pass.
// Piektdiena (Friday) runs the compressed bell schedule.
func SeedDays() {
	days := []models.Day{
		{Name: "Pirmdiena", Short: "P"},
		{Name: "Otrdiena", Short: "O"},
		{Name: "Trešdiena", Short: "T"},
		{Name: "Ceturtdiena", Short: "C"},
		{Name: "Piektdiena", Short: "Pk"},
	}

	for _, day := range days {
		var count int64
		database.DB.Model(&models.Day{}).Where("name = ?", day.Name).Count(&count)
		if count > 0 {
			continue
		}
		if err := database.DB.Create(&day).Error; err != nil {
			log.Printf("Error seeding day %s: %v", day.Name, err)
		}
	}

	log.Println("Days seeded successfully")
}
