package services

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic_app_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling.
// verbose logs every statement; otherwise only slow queries and errors.
func InitDB(dsn string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	zap.L().Info("database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	zap.L().Info("running database migrations")

	if err := db.AutoMigrate(models.Tables...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	zap.L().Info("database migrations completed")
	return nil
}

// NormalizePatientRoles folds legacy free-text roles onto the closed role set.
// Anything that is not "vvip" after trimming and lower-casing becomes standard.
func NormalizePatientRoles(db *gorm.DB) (int64, error) {
	result := db.Exec(
		`UPDATE patients SET role = CASE WHEN LOWER(TRIM(role)) = ? THEN ? ELSE ? END
		 WHERE role IS NULL OR role NOT IN (?, ?)`,
		string(models.PatientRoleVVIP), string(models.PatientRoleVVIP), string(models.PatientRoleStandard),
		string(models.PatientRoleStandard), string(models.PatientRoleVVIP),
	)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "normalize patient roles")
	}
	if result.RowsAffected > 0 {
		zap.L().Info("normalized legacy patient roles", zap.Int64("rows", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
