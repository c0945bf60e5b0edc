package service

import (
	"context"
	"errors"
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
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailNotVerified     = errors.New("email address is not verified")
	ErrEmailAlreadyVerified = errors.New("email address is already verified")
	ErrWeakPassword         = errors.New("password must be at least 6 characters")
	ErrInvalidRegisterRole  = errors.New("role must be donor or hospital")
	ErrTooManyRequests      = errors.New("please wait before requesting another code")
	ErrTokenRevoked         = errors.New("token has been revoked")
)

// TokenRevoker keeps logged out tokens. Implemented by the redis store.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, token string, expiry time.Duration) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
}

// CooldownStore throttles repeated actions per key. Implemented by the redis store.
type CooldownStore interface {
	AcquireCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.UserRole
}

// RegisterResult OTPSent is false when the verification email could not be delivered.
type RegisterResult struct {
	User    *model.User
	OTPSent bool
}

type LoginResult struct {
	User            *model.User
	Tokens          *util.TokenPair
	ProfileComplete bool
}

type AuthService interface {
	Register(input RegisterInput) (*RegisterResult, error)
	VerifyEmail(email, code string) (*model.User, error)
	ResendOTP(ctx context.Context, email string, purpose model.OTPPurpose) error
	Login(email, password string) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(email, code, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	GetUserByID(id uint) (*model.User, error)
	UpdateName(userID uint, name string) (*model.User, error)
}

type authService struct {
	userRepo       repository.UserRepository
	otpService     OTPService
	mailer         mailer.Mailer
	revoker        TokenRevoker
	cooldown       CooldownStore
	resendCooldown time.Duration
	jwtSecret      string
	accessExpiry   time.Duration
	refreshExpiry  time.Duration
}

type AuthConfig struct {
	JWTSecret      string
	AccessExpiry   time.Duration
	RefreshExpiry  time.Duration
	ResendCooldown time.Duration
}

// NewAuthService revoker and cooldown may be nil when redis is disabled.
func NewAuthService(
	userRepo repository.UserRepository,
	otpService OTPService,
	m mailer.Mailer,
	revoker TokenRevoker,
	cooldown CooldownStore,
	cfg AuthConfig,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		otpService:     otpService,
		mailer:         m,
		revoker:        revoker,
		cooldown:       cooldown,
		resendCooldown: cfg.ResendCooldown,
		jwtSecret:      cfg.JWTSecret,
		accessExpiry:   cfg.AccessExpiry,
		refreshExpiry:  cfg.RefreshExpiry,
	}
}

func (s *authService) Register(input RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(input.Email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"role":  input.Role,
	})

	if input.Role != model.RoleDonor && input.Role != model.RoleHospital {
		return nil, ErrInvalidRegisterRole
	}
	if !util.IsPasswordLongEnough(input.Password) {
		return nil, ErrWeakPassword
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || email == "" {
		return nil, ErrMissingField
	}

	// Check if user already exists
	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         input.Role,
	}
	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		if isDuplicateKey(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	result := &RegisterResult{User: user, OTPSent: true}
	if err := s.otpService.Send(email, model.OTPPurposeEmailVerification); err != nil {
		if !errors.Is(err, ErrOTPDelivery) {
			return nil, err
		}
		result.OTPSent = false
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id":  user.ID,
		"email":    email,
		"role":     user.Role,
		"otp_sent": result.OTPSent,
	})

	return result, nil
}

func (s *authService) VerifyEmail(email, code string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.IsVerified {
		return nil, ErrEmailAlreadyVerified
	}

	if err := s.otpService.Verify(email, code, model.OTPPurposeEmailVerification); err != nil {
		logger.Warn("Email verification failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return nil, err
	}

	if err := s.userRepo.MarkVerified(user.ID); err != nil {
		logger.Error("Failed to mark user verified", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	user.IsVerified = true

	if s.mailer != nil {
		if subject, body, err := mailer.WelcomeEmail(user.Name); err == nil {
			if err := s.mailer.Send(user.Email, subject, body); err != nil {
				logger.Warn("Welcome email delivery failed", map[string]interface{}{
					"user_id": user.ID,
					"error":   err.Error(),
				})
			}
		}
	}

	logger.Info("Email verified", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *authService) acquireCooldown(ctx context.Context, email string, purpose model.OTPPurpose) error {
	if s.cooldown == nil || s.resendCooldown <= 0 {
		return nil
	}
	ok, err := s.cooldown.AcquireCooldown(ctx, "otp:"+string(purpose)+":"+email, s.resendCooldown)
	if err != nil {
		// redis trouble must not lock users out
		logger.Warn("OTP cooldown check failed", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return nil
	}
	if !ok {
		return ErrTooManyRequests
	}
	return nil
}

func (s *authService) ResendOTP(ctx context.Context, email string, purpose model.OTPPurpose) error {
	email = normalizeEmail(email)
	if !purpose.IsValid() {
		return ErrInvalidOTPPurpose
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("OTP resend requested for non-existent email", map[string]interface{}{
				"email":   email,
				"purpose": purpose,
			})
			return nil
		}
		return err
	}
	if purpose == model.OTPPurposeEmailVerification && user.IsVerified {
		return ErrEmailAlreadyVerified
	}

	if err := s.acquireCooldown(ctx, email, purpose); err != nil {
		return err
	}
	return s.otpService.Send(email, purpose)
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Login(email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email":   email,
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		logger.Warn("Login refused: email not verified", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrEmailNotVerified
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
		"role":    user.Role,
	})

	return &LoginResult{
		User:            user,
		Tokens:          tokens,
		ProfileComplete: user.HasProfile(),
	}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	logger.Info("Processing password reset request", map[string]interface{}{
		"email": email,
	})

	_, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// same answer as for a real account
			logger.Warn("Password reset requested for non-existent email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		return err
	}

	if err := s.acquireCooldown(ctx, email, model.OTPPurposePasswordReset); err != nil {
		return err
	}
	return s.otpService.Send(email, model.OTPPurposePasswordReset)
}

func (s *authService) ResetPassword(email, code, newPassword string) error {
	email = normalizeEmail(email)
	if !util.IsPasswordLongEnough(newPassword) {
		return ErrWeakPassword
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// do not reveal account existence
			return ErrOTPInvalid
		}
		return err
	}

	if err := s.otpService.Verify(email, code, model.OTPPurposePasswordReset); err != nil {
		return err
	}

	hashedPassword, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(user.ID, hashedPassword); err != nil {
		logger.Error("Failed to update password", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}

	logger.Info("Password reset completed", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

func (s *authService) isRevoked(ctx context.Context, token string) bool {
	if s.revoker == nil {
		return false
	}
	revoked, err := s.revoker.IsTokenRevoked(ctx, token)
	if err != nil {
		logger.Warn("Token revocation check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return revoked
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if s.isRevoked(ctx, refreshToken) {
		return nil, ErrTokenRevoked
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	// rotate: the old refresh token cannot be used twice
	s.revoke(ctx, refreshToken, claims)
	return tokens, nil
}

func (s *authService) revoke(ctx context.Context, token string, claims *util.Claims) {
	if s.revoker == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoker.RevokeToken(ctx, token, ttl); err != nil {
		logger.Warn("Failed to revoke token", map[string]interface{}{
			"user_id": claims.UserID,
			"error":   err.Error(),
		})
	}
}

func (s *authService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := util.ValidateToken(accessToken, s.jwtSecret); err == nil {
		s.revoke(ctx, accessToken, claims)
		logger.Info("User logged out", map[string]interface{}{
			"user_id": claims.UserID,
		})
	}
	if refreshToken != "" {
		if claims, err := util.ValidateRefreshToken(refreshToken, s.jwtSecret); err == nil {
			s.revoke(ctx, refreshToken, claims)
		}
	}
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	logger.Debug("Fetching user by ID", map[string]interface{}{
		"user_id": id,
	})

	user, err := s.userRepo.FindByIDWithProfile(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}

	return user, nil
}

func (s *authService) UpdateName(userID uint, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingField
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Name == name {
		return user, nil
	}

	user.Name = name
	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user name", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return user, nil
}
