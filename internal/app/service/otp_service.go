package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/ikkim/bloodlink-backend/pkg/mailer"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrOTPInvalid        = errors.New("invalid verification code")
	ErrOTPExpired        = errors.New("verification code has expired, please request a new one")
	ErrOTPUsed           = errors.New("verification code has already been used")
	ErrOTPDelivery       = errors.New("verification code could not be delivered")
	ErrInvalidOTPPurpose = errors.New("invalid verification purpose")
)

type OTPService interface {
	// Issue returns the active code for (email, purpose), creating one when none is active.
	Issue(email string, purpose model.OTPPurpose) (string, error)
	// Send issues a code and emails it. A delivery failure wraps ErrOTPDelivery; the code stays issued.
	Send(email string, purpose model.OTPPurpose) error
	// Verify consumes the code. Each code verifies at most once.
	Verify(email, code string, purpose model.OTPPurpose) error
	SweepExpired() (int64, error)
}

type otpService struct {
	db       *gorm.DB
	otpRepo  repository.OTPRepository
	mailer   mailer.Mailer
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(db *gorm.DB, otpRepo repository.OTPRepository, m mailer.Mailer, ttl time.Duration) OTPService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &otpService{
		db:       db,
		otpRepo:  otpRepo,
		mailer:   m,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		generate: util.GenerateOTPCode,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *otpService) Issue(email string, purpose model.OTPPurpose) (string, error) {
	if !purpose.IsValid() {
		return "", ErrInvalidOTPPurpose
	}
	email = normalizeEmail(email)
	now := s.now()

	var code string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.otpRepo.WithTx(tx)
		if err := repo.Lock(email, purpose); err != nil {
			return err
		}
		if err := repo.DeleteStale(email, purpose, now); err != nil {
			return err
		}

		active, err := repo.FindActive(email, purpose, now)
		if err == nil {
			code = active.Code
			logger.Debug("Reusing active OTP", map[string]interface{}{
				"email":   email,
				"purpose": purpose,
			})
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		generated, err := s.generate()
		if err != nil {
			return err
		}
		record := &model.OTPVerification{
			Email:     email,
			Code:      generated,
			Purpose:   purpose,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		if err := repo.Create(record); err != nil {
			return err
		}
		code = generated
		return nil
	})
	if err != nil {
		logger.Error("Failed to issue OTP", err, map[string]interface{}{
			"email":   email,
			"purpose": purpose,
		})
		return "", err
	}

	return code, nil
}

func (s *otpService) Send(email string, purpose model.OTPPurpose) error {
	code, err := s.Issue(email, purpose)
	if err != nil {
		return err
	}

	subject, body, err := mailer.OTPEmail(code, purpose == model.OTPPurposePasswordReset, s.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}

	if err := s.mailer.Send(normalizeEmail(email), subject, body); err != nil {
		logger.Warn("OTP email delivery failed", map[string]interface{}{
			"email":   email,
			"purpose": purpose,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}

	logger.Info("OTP sent", map[string]interface{}{
		"email":   email,
		"purpose": purpose,
	})
	return nil
}

func (s *otpService) Verify(email, code string, purpose model.OTPPurpose) error {
	if !purpose.IsValid() {
		return ErrInvalidOTPPurpose
	}
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)

	record, err := s.otpRepo.FindByCode(email, purpose, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("OTP verification failed: no such code", map[string]interface{}{
				"email":   email,
				"purpose": purpose,
			})
			return ErrOTPInvalid
		}
		return err
	}

	if record.Used {
		return ErrOTPUsed
	}
	if record.IsExpired(s.now()) {
		return ErrOTPExpired
	}

	won, err := s.otpRepo.MarkUsed(record.ID)
	if err != nil {
		return err
	}
	if !won {
		// a concurrent verify consumed it first
		return ErrOTPUsed
	}

	logger.Info("OTP verified", map[string]interface{}{
		"email":   email,
		"purpose": purpose,
	})
	return nil
}

func (s *otpService) SweepExpired() (int64, error) {
	deleted, err := s.otpRepo.DeleteExpired(s.now())
	if err != nil {
		logger.Error("Failed to sweep expired OTPs", err)
		return 0, err
	}
	if deleted > 0 {
		logger.Info("Expired OTPs removed", map[string]interface{}{
			"count": deleted,
		})
	}
	return deleted, nil
}
