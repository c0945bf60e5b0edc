package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/pkg/util"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=donor hospital"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"omitempty,oneof=email_verification password_reset"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateMeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// Register handles account creation and sends the verification code
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctrl.authService.Register(service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.UserRole(req.Role),
	})
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	message := "Registration successful. Check your email for the verification code"
	if !result.OTPSent {
		message = "Registration successful but the verification email could not be sent. Request a new code"
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  message,
		"user":     result.User,
		"otp_sent": result.OTPSent,
	})
}

// VerifyEmail consumes the email verification code
// POST /api/v1/auth/verify-email
func (ctrl *AuthController) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctrl.authService.VerifyEmail(req.Email, req.Code)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified. You can now log in",
		"user":    user,
	})
}

// ResendOTP sends a fresh code or the still active one again
// POST /api/v1/auth/resend-otp
func (ctrl *AuthController) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	purpose := model.OTPPurpose(req.Purpose)
	if purpose == "" {
		purpose = model.OTPPurposeEmailVerification
	}

	err := ctrl.authService.ResendOTP(c.Request.Context(), req.Email, purpose)
	if ctrl.respondDelivery(c, err) {
		return
	}
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "A verification code has been sent to your email",
	})
}

// respondDelivery answers 202 when the code exists but the email bounced.
func (ctrl *AuthController) respondDelivery(c *gin.Context, err error) bool {
	if err == nil || !errors.Is(err, service.ErrOTPDelivery) {
		return false
	}
	middleware.GetLoggerFromContext(c).Warn("Verification code issued but not delivered", map[string]interface{}{
		"error": err.Error(),
	})
	c.JSON(http.StatusAccepted, gin.H{
		"error":   apperrors.AuthCodeDeliveryFailed,
		"message": "The code was created but the email could not be delivered. Try again shortly",
	})
	return true
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Login successful",
		"user":             result.User,
		"tokens":           result.Tokens,
		"profile_complete": result.ProfileComplete,
	})
}

// ForgotPassword always answers the same way whether the account exists or not
// POST /api/v1/auth/forgot-password
func (ctrl *AuthController) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := ctrl.authService.ForgotPassword(c.Request.Context(), req.Email)
	if ctrl.respondDelivery(c, err) {
		return
	}
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the email is registered, a reset code has been sent",
	})
}

// ResetPassword sets a new password with a reset code
// POST /api/v1/auth/reset-password
func (ctrl *AuthController) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := ctrl.authService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password has been reset. You can now log in",
	})
}

// RefreshToken issues a new token pair and retires the old refresh token
// POST /api/v1/auth/refresh
func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrExpiredToken):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Refresh token has expired, please log in again")
		case errors.Is(err, util.ErrInvalidToken), errors.Is(err, util.ErrWrongTokenType):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid refresh token")
		default:
			respondServiceError(c, err, "user")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
	})
}

// Logout revokes the current access token and the given refresh token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	var req LogoutRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)

	if err := ctrl.authService.Logout(c.Request.Context(), middleware.GetAccessToken(c), req.RefreshToken); err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// GetMe returns the current user with their profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             user,
		"profile_complete": user.HasProfile(),
	})
}

// UpdateMe changes the display name
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctrl.authService.UpdateName(userID, req.Name)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}
