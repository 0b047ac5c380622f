package config

import (
	"fmt"

	"github.com/smartkasa/kasapay/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection and migrates the schema
func InitDB(config *Config) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	DB = db

	if err := MigrateModels(DB); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}
}

// MigrateModels runs the schema migration on the given connection.
// Tests reuse it against an in-memory database.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Product{},
		&models.Customer{},
		&models.Payment{},
		&models.PaymentItem{},
	)
}
