// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

// Migrate runs auto-migrations for every engine model and seeds the
// singleton platform ledger row. Shared by the server entrypoint and the
// test harness.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.ComicProject{},
		&models.Episode{},
		&models.MintingRules{},
		&models.EarningsAggregate{},
		&models.PlatformLedger{},
		&models.ComicToken{},
		&models.ReadAccessRecord{},
		&models.ReconciliationEntry{},
		&models.CreatorNotification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// The platform fee accumulator is a single fixed row.
	var ledgerCount int64
	db.Model(&models.PlatformLedger{}).Where("id = ?", models.PlatformLedgerID).Count(&ledgerCount)
	if ledgerCount == 0 {
		if err := db.Create(&models.PlatformLedger{ID: models.PlatformLedgerID}).Error; err != nil {
			return fmt.Errorf("failed to seed platform ledger: %w", err)
		}
	}

	return nil
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Project indexes
		"CREATE INDEX IF NOT EXISTS idx_projects_creator ON comic_projects(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_active ON comic_projects(active)",
		"CREATE INDEX IF NOT EXISTS idx_projects_created_at ON comic_projects(created_at DESC)",

		// Episode indexes
		"CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_episodes_creator ON episodes(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_episodes_live ON episodes(live)",

		// Token indexes
		"CREATE INDEX IF NOT EXISTS idx_tokens_episode_serial ON comic_tokens(episode_id, serial_number)",
		"CREATE INDEX IF NOT EXISTS idx_tokens_owner ON comic_tokens(owner_id)",

		// Earnings indexes
		"CREATE INDEX IF NOT EXISTS idx_earnings_scope_type ON earnings_aggregates(scope_type)",

		// Reconciliation queue
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_open ON reconciliation_entries(resolved, created_at DESC)",

		// Full-text search over the catalog
		"CREATE INDEX IF NOT EXISTS idx_projects_search ON comic_projects USING GIN(to_tsvector('english', title || ' ' || description))",
		"CREATE INDEX IF NOT EXISTS idx_episodes_search ON episodes USING GIN(to_tsvector('english', title || ' ' || description))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default operator account
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "operator",
			Email:    "operator@panelforge.io",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"display_name": "Platform Operator",
			},
		}

		if err := admin.SetPassword("operator123!@#"); err != nil {
			return fmt.Errorf("failed to set operator password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create operator user: %w", err)
		}

		log.Println("Default operator user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
