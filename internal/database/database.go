package database

import (
	"log"

	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection and runs migrations
func InitDB() {
	var err error

	// Open SQLite database file (will be created if it doesn't exist initially)
	// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
	DB, err = gorm.Open(sqlite.Open("task-tracking.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate the schema (it will create tables if they don't exist)
	err = DB.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Task{},
		&models.SubTask{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("Database connected and migrated successfully!!!")
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

// SeedDefaults creates a default company and admin user on a fresh
// database so the dev server is usable immediately after first start.
func SeedDefaults() error {
	var count int64
	if err := DB.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	company := models.Company{ID: "company-1", Name: "Default Company", IsActive: true}
	if err := DB.Create(&company).Error; err != nil {
		return err
	}

	hash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}
	admin := models.User{
		ID:        "user-1",
		Name:      "Administrator",
		Email:     "admin@example.com",
		Password:  hash,
		Role:      models.RoleAdmin,
		CompanyID: company.ID,
		IsActive:  true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Seeded default company and admin user (admin@example.com / admin123)")
	return nil
}
