package db

import (
	"errors"

	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Donor{},
		&model.Hospital{},
		&model.OTPVerification{},
		&model.Appointment{},
		&model.DonationRecord{},
		&model.TransfusionRequest{},
		&model.Notification{},
		&model.NotificationSettings{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed creates the bootstrap admin account when it does not exist yet.
func Seed(cfg *config.AdminConfig) error {
	return seedAdmin(DB, cfg)
}

func seedAdmin(db *gorm.DB, cfg *config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("Admin seed skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		logger.Info("Admin account already exists, skipping...", map[string]interface{}{
			"email": cfg.Email,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        cfg.Email,
		PasswordHash: hash,
		Name:         cfg.Name,
		Role:         model.RoleAdmin,
		IsVerified:   true,
	}
	if err := db.Create(admin).Error; err != nil {
		logger.Error("Failed to create admin account", err, map[string]interface{}{
			"email": cfg.Email,
		})
		return err
	}

	logger.Info("Admin account seeded", map[string]interface{}{
		"user_id": admin.ID,
		"email":   admin.Email,
	})
	return nil
}
