package database

import (
	logger "github.com/Bparsons0904/goLogger"

	"drivemate/internal/models"
)

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.User{},
		&models.Car{},
		&models.Booking{},
		&models.HandoverSession{},
		&models.HandoverStepCompletion{},
		&models.VehicleConditionReport{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			log.Er("Failed to migrate model", err, "model", model)
			return err
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		// One active (non-completed) session per (booking, handover type).
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_active_session_per_booking_type ON handover_sessions(booking_id, handover_type) WHERE is_completed = false AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_step_completions_session_order ON handover_step_completions(session_id, step_order)",
		"CREATE INDEX IF NOT EXISTS idx_handover_sessions_completed ON handover_sessions(is_completed, completed_at)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_window ON bookings(start_date, end_date)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
			// Continue with other indexes even if one fails
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
