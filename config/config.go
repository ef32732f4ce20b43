package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/harrisonoakess/aluehealth-backend/models"
)

// Settings carries everything read from the environment at startup.
type Settings struct {
	Port            string
	AnalysisBaseURL string
	S3Bucket        string
	S3Region        string
	VisionPrecheck  bool
}

func Load() Settings {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, using environment as-is")
	}

	s := Settings{
		Port:            os.Getenv("PORT"),
		AnalysisBaseURL: os.Getenv("ANALYSIS_BASE_URL"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		VisionPrecheck:  os.Getenv("VISION_PRECHECK") == "true",
	}
	if s.Port == "" {
		s.Port = "8080"
	}
	if s.S3Region == "" {
		s.S3Region = os.Getenv("AWS_REGION") // fallback
	}
	if s.AnalysisBaseURL == "" {
		log.Fatal("ANALYSIS_BASE_URL is required")
	}
	return s
}

func InitDB() *gorm.DB {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Meal{},
		&models.MealItem{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
	return db
}
