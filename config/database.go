package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DatabaseDSN builds the MySQL DSN from DB_* environment variables.
func DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_DATABASE"),
	)
}

// GormConfig returns the gorm settings shared by the API and the migrate command.
// Duplicate-key errors are translated to gorm.ErrDuplicatedKey so account
// provisioning can treat them as idempotent.
func GormConfig() *gorm.Config {
	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if environment == "production" && debugSQL != "true" {
		logLevel = logger.Warn
	}

	return &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			// Bound values stay out of the log: tokens and password hashes are query arguments.
			logger.Config{LogLevel: logLevel, ParameterizedQueries: true},
		),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	}
}

func InitDB() *gorm.DB {
	var err error

	DB, err = gorm.Open(mysql.Open(DatabaseDSN()), GormConfig())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Database connected successfully")
	return DB
}
