package db

import (
	"log"
	"os"

	"writeflow/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=writeflow port=5432 sslmode=disable"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedBoards(DB)
}

// Migrate creates/updates every table the store owns. Shared with the
// test harness, which runs it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Identity{},
		&models.Board{},
		&models.Post{},
		&models.PostTag{},
		&models.PostStamp{},
		&models.Comment{},
		&models.LikeRecord{},
		&models.ViewRecord{},
		&models.StampRecord{},
		&models.Report{},
		&models.Ban{},
		&models.RateLimitEntry{},
	)
}

func seedBoards(db *gorm.DB) {
	var count int64
	db.Model(&models.Board{}).Count(&count)
	if count > 0 {
		log.Println("Boards already seeded, skipping")
		return
	}

	boards := []models.Board{
		{Name: "journal", Description: "Daily journaling and reflections"},
		{Name: "life", Description: "Everyday life and experiences"},
		{Name: "showcase", Description: "Things you made or found"},
		{Name: "lounge", Description: "Anything goes"},
	}

	for _, board := range boards {
		if err := db.Create(&board).Error; err != nil {
			log.Printf("Failed to create board %s: %v", board.Name, err)
		}
	}
	log.Println("Initial boards created successfully")
}
