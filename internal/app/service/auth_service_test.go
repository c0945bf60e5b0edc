package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testOTPCode = "123456"

// memStore stands in for the redis store.
type memStore struct {
	mu        sync.Mutex
	revoked   map[string]bool
	cooldowns map[string]bool
}

func newMemStore() *memStore {
	return &memStore{revoked: map[string]bool{}, cooldowns: map[string]bool{}}
}

func (s *memStore) RevokeToken(_ context.Context, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
	return nil
}

func (s *memStore) IsTokenRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token], nil
}

func (s *memStore) AcquireCooldown(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldowns[key] {
		return false, nil
	}
	s.cooldowns[key] = true
	return true, nil
}

type authFixture struct {
	db     *gorm.DB
	svc    AuthService
	mailer *recordingMailer
	store  *memStore
}

func setupAuthServiceTest(t *testing.T) *authFixture {
	testDB := setupServiceDB(t)
	m := &recordingMailer{}
	store := newMemStore()

	otp := NewOTPService(testDB, repository.NewOTPRepository(testDB), m, 10*time.Minute).(*otpService)
	otp.generate = func() (string, error) { return testOTPCode, nil }

	svc := NewAuthService(
		repository.NewUserRepository(testDB),
		otp,
		m,
		store,
		store,
		AuthConfig{
			JWTSecret:      "test-jwt-secret",
			AccessExpiry:   15 * time.Minute,
			RefreshExpiry:  7 * 24 * time.Hour,
			ResendCooldown: 30 * time.Second,
		},
	)

	return &authFixture{db: testDB, svc: svc, mailer: m, store: store}
}

func (f *authFixture) registerVerified(t *testing.T, email, password string) *model.User {
	t.Helper()
	_, err := f.svc.Register(RegisterInput{Name: "Test User", Email: email, Password: password, Role: model.RoleDonor})
	require.NoError(t, err)
	user, err := f.svc.VerifyEmail(email, testOTPCode)
	require.NoError(t, err)
	return user
}

func TestAuthService_Register(t *testing.T) {
	f := setupAuthServiceTest(t)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "Valid registration",
			input:   RegisterInput{Name: "Test User", Email: "Test@Example.com", Password: "password123", Role: model.RoleDonor},
			wantErr: nil,
		},
		{
			name:    "Duplicate email",
			input:   RegisterInput{Name: "Another", Email: "test@example.com", Password: "password456", Role: model.RoleHospital},
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name:    "Admin role refused",
			input:   RegisterInput{Name: "Root", Email: "root@example.com", Password: "password123", Role: model.RoleAdmin},
			wantErr: ErrInvalidRegisterRole,
		},
		{
			name:    "Short password",
			input:   RegisterInput{Name: "Short", Email: "short@example.com", Password: "abc", Role: model.RoleDonor},
			wantErr: ErrWeakPassword,
		},
		{
			name:    "Missing name",
			input:   RegisterInput{Name: "  ", Email: "noname@example.com", Password: "password123", Role: model.RoleDonor},
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.Register(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.OTPSent)
			assert.Equal(t, "test@example.com", result.User.Email)
			assert.False(t, result.User.IsVerified)
			assert.NotEqual(t, tt.input.Password, result.User.PasswordHash)
		})
	}

	assert.Len(t, f.mailer.To("test@example.com"), 1)
}

func TestAuthService_RegisterSurvivesMailFailure(t *testing.T) {
	f := setupAuthServiceTest(t)
	f.mailer.err = errors.New("smtp down")

	result, err := f.svc.Register(RegisterInput{Name: "User", Email: "user@example.com", Password: "password123", Role: model.RoleDonor})
	require.NoError(t, err)
	assert.False(t, result.OTPSent)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_VerifyAndLogin(t *testing.T) {
	f := setupAuthServiceTest(t)

	_, err := f.svc.Register(RegisterInput{Name: "User", Email: "user@example.com", Password: "password123", Role: model.RoleDonor})
	require.NoError(t, err)

	_, err = f.svc.Login("user@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = f.svc.VerifyEmail("user@example.com", "000000")
	assert.ErrorIs(t, err, ErrOTPInvalid)

	user, err := f.svc.VerifyEmail("user@example.com", testOTPCode)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	_, err = f.svc.VerifyEmail("user@example.com", testOTPCode)
	assert.ErrorIs(t, err, ErrEmailAlreadyVerified)

	_, err = f.svc.Login("user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := f.svc.Login("USER@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.False(t, result.ProfileComplete)

	claims, err := util.ValidateToken(result.Tokens.AccessToken, "test-jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(model.RoleDonor), claims.Role)
}

func TestAuthService_ResendOTPCooldown(t *testing.T) {
	f := setupAuthServiceTest(t)

	_, err := f.svc.Register(RegisterInput{Name: "User", Email: "user@example.com", Password: "password123", Role: model.RoleDonor})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.svc.ResendOTP(ctx, "user@example.com", model.OTPPurposeEmailVerification))
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "user@example.com", model.OTPPurposeEmailVerification), ErrTooManyRequests)

	// both emails carry the same active code
	sent := f.mailer.To("user@example.com")
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Body, testOTPCode)

}

func TestAuthService_ResendOTPUnknownEmailIsSilent(t *testing.T) {
	f := setupAuthServiceTest(t)
	ctx := context.Background()

	for _, purpose := range []model.OTPPurpose{model.OTPPurposeEmailVerification, model.OTPPurposePasswordReset} {
		require.NoError(t, f.svc.ResendOTP(ctx, "ghost@example.com", purpose))
	}
	assert.Empty(t, f.mailer.To("ghost@example.com"))

	var codes int64
	require.NoError(t, f.db.Model(&model.OTPVerification{}).Count(&codes).Error)
	assert.Zero(t, codes)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := setupAuthServiceTest(t)
	f.registerVerified(t, "user@example.com", "password123")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
	require.NoError(t, f.svc.ForgotPassword(ctx, "user@example.com"))

	assert.ErrorIs(t, f.svc.ResetPassword("user@example.com", testOTPCode, "abc"), ErrWeakPassword)
	assert.ErrorIs(t, f.svc.ResetPassword("user@example.com", "000000", "newpassword"), ErrOTPInvalid)
	require.NoError(t, f.svc.ResetPassword("user@example.com", testOTPCode, "newpassword"))
	assert.ErrorIs(t, f.svc.ResetPassword("user@example.com", testOTPCode, "another-one"), ErrOTPUsed)

	_, err := f.svc.Login("user@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("user@example.com", "newpassword")
	assert.NoError(t, err)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	f := setupAuthServiceTest(t)
	f.registerVerified(t, "user@example.com", "password123")
	ctx := context.Background()

	login, err := f.svc.Login("user@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, util.ErrWrongTokenType)

	rotated, err := f.svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	f := setupAuthServiceTest(t)
	f.registerVerified(t, "user@example.com", "password123")
	ctx := context.Background()

	login, err := f.svc.Login("user@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken))

	revoked, err := f.store.IsTokenRevoked(ctx, login.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.svc.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_UpdateName(t *testing.T) {
	f := setupAuthServiceTest(t)
	user := f.registerVerified(t, "user@example.com", "password123")

	_, err := f.svc.UpdateName(user.ID, " ")
	assert.ErrorIs(t, err, ErrMissingField)

	updated, err := f.svc.UpdateName(user.ID, "  New Name ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	got, err := f.svc.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)

	_, err = f.svc.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
