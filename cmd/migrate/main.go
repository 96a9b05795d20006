// Schema migration for the offer workflow tables.
// cmd/migrate/main.go
package main

import (
	"log"
	"strings"

	"university-portal-api/config"
	"university-portal-api/models"
	"university-portal-api/utils"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db := config.InitDB()

	if err := db.AutoMigrate(
		&models.AdmissionApplication{},
		&models.FacultyApplication{},
		&models.Account{},
	); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}
	log.Println("Schema migrated")

	// Registration passwords captured before hashing was enforced.
	var apps []models.AdmissionApplication
	if err := db.Where("password_hash <> '' AND password_hash NOT LIKE ?", "$2%").Find(&apps).Error; err != nil {
		log.Fatal("Failed to fetch admission applications:", err)
	}

	for _, app := range apps {
		if strings.HasPrefix(app.PasswordHash, "$2") {
			continue
		}

		hashed, err := utils.HashPassword(app.PasswordHash)
		if err != nil {
			log.Printf("Failed to hash registration password for application %s: %v\n", app.ID, err)
			continue
		}

		if err := db.Model(&models.AdmissionApplication{}).
			Where("id = ?", app.ID).
			Update("password_hash", hashed).Error; err != nil {
			log.Printf("Failed to update registration password for application %s: %v\n", app.ID, err)
			continue
		}

		log.Printf("Hashed registration password for application %s\n", app.ID)
	}

	log.Println("Migration completed!")
}
