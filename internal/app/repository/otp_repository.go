package repository

import (
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"gorm.io/gorm"
)

type OTPRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) OTPRepository
	// Lock serializes issuers of the same (email, purpose) for the rest of the transaction.
	Lock(email string, purpose model.OTPPurpose) error
	Create(otp *model.OTPVerification) error
	// FindActive returns the newest unused, unexpired record for (email, purpose).
	FindActive(email string, purpose model.OTPPurpose, now time.Time) (*model.OTPVerification, error)
	// FindByCode returns the newest record matching the code regardless of state.
	FindByCode(email string, purpose model.OTPPurpose, code string) (*model.OTPVerification, error)
	// DeleteStale removes used or expired records for (email, purpose).
	DeleteStale(email string, purpose model.OTPPurpose, now time.Time) error
	// MarkUsed flips used to true only if it is still false. It reports whether this call won.
	MarkUsed(id uint) (bool, error)
	// DeleteExpired removes every expired or used record.
	DeleteExpired(now time.Time) (int64, error)
	CountActive(email string, purpose model.OTPPurpose, now time.Time) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) WithTx(tx *gorm.DB) OTPRepository {
	return &otpRepository{db: tx}
}

func (r *otpRepository) Lock(email string, purpose model.OTPPurpose) error {
	if r.db.Dialector.Name() != "postgres" {
		// sqlite serializes writers on its own
		return nil
	}
	return r.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", email+"|"+string(purpose)).Error
}

func (r *otpRepository) Create(otp *model.OTPVerification) error {
	logger.Debug("Creating OTP record", map[string]interface{}{
		"email":   otp.Email,
		"purpose": otp.Purpose,
	})

	if err := r.db.Create(otp).Error; err != nil {
		logger.Error("Failed to create OTP record", err, map[string]interface{}{
			"email":   otp.Email,
			"purpose": otp.Purpose,
		})
		return err
	}
	return nil
}

func (r *otpRepository) FindActive(email string, purpose model.OTPPurpose, now time.Time) (*model.OTPVerification, error) {
	var otp model.OTPVerification
	err := r.db.
		Where("email = ? AND purpose = ? AND used = ? AND expires_at >= ?", email, purpose, false, now.UTC()).
		Order("created_at DESC, id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) FindByCode(email string, purpose model.OTPPurpose, code string) (*model.OTPVerification, error) {
	var otp model.OTPVerification
	err := r.db.
		Where("email = ? AND purpose = ? AND code = ?", email, purpose, code).
		Order("created_at DESC, id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) DeleteStale(email string, purpose model.OTPPurpose, now time.Time) error {
	return r.db.
		Where("email = ? AND purpose = ? AND (used = ? OR expires_at < ?)", email, purpose, true, now.UTC()).
		Delete(&model.OTPVerification{}).Error
}

func (r *otpRepository) MarkUsed(id uint) (bool, error) {
	result := r.db.Model(&model.OTPVerification{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		logger.Error("Failed to mark OTP used", result.Error, map[string]interface{}{
			"otp_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *otpRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ? OR used = ?", now.UTC(), true).Delete(&model.OTPVerification{})
	return result.RowsAffected, result.Error
}

func (r *otpRepository) CountActive(email string, purpose model.OTPPurpose, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.OTPVerification{}).
		Where("email = ? AND purpose = ? AND used = ? AND expires_at >= ?", email, purpose, false, now.UTC()).
		Count(&count).Error
	return count, err
}
