package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/internal/validation"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors is checked in order with errors.Is.
var serviceErrors = []errorMapping{
	// OTP
	{service.ErrOTPInvalid, http.StatusBadRequest, apperrors.AuthCodeInvalid},
	{service.ErrOTPExpired, http.StatusGone, apperrors.AuthCodeExpired},
	{service.ErrOTPUsed, http.StatusGone, apperrors.AuthCodeUsed},
	{service.ErrInvalidOTPPurpose, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	// auth
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	{service.ErrEmailNotVerified, http.StatusForbidden, apperrors.AuthEmailNotVerified},
	{service.ErrEmailAlreadyVerified, http.StatusConflict, apperrors.AuthAlreadyVerified},
	{service.ErrWeakPassword, http.StatusBadRequest, apperrors.ValidationTooShort},
	{service.ErrInvalidRegisterRole, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrTooManyRequests, http.StatusTooManyRequests, apperrors.AuthTooManyRequests},
	{service.ErrTokenRevoked, http.StatusUnauthorized, apperrors.AuthTokenRevoked},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound},

	{service.ErrForbidden, http.StatusForbidden, apperrors.AuthzForbidden},

	// profiles
	{service.ErrDonorNotFound, http.StatusNotFound, apperrors.ProfileNotFound},
	{service.ErrHospitalNotFound, http.StatusNotFound, apperrors.ProfileNotFound},
	{service.ErrProfileExists, http.StatusConflict, apperrors.ProfileAlreadyExists},
	{service.ErrLicenseExists, http.StatusConflict, apperrors.ProfileLicenseExists},
	{service.ErrHospitalNotVerified, http.StatusForbidden, apperrors.HospitalNotVerified},
	{service.ErrHospitalAlreadyVerified, http.StatusConflict, apperrors.ResourceConflict},
	{service.ErrInvalidBloodGroup, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidAge, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidGender, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidDate, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrMissingField, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrInvalidHospitalType, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	// appointments and donations
	{service.ErrAppointmentNotFound, http.StatusNotFound, apperrors.AppointmentNotFound},
	{service.ErrInvalidSchedule, http.StatusBadRequest, apperrors.AppointmentInvalidSchedule},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.DonationInvalidQuantity},
	{service.ErrInvalidTransition, http.StatusConflict, apperrors.AppointmentInvalidTransition},
	{service.ErrDonorUnavailable, http.StatusConflict, apperrors.DonorUnavailable},
	{service.ErrDonationTooSoon, http.StatusConflict, apperrors.DonationTooSoon},
	{service.ErrInvalidDateRange, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidAppointmentTab, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrDonationNotFound, http.StatusNotFound, apperrors.DonationNotFound},

	// transfusion requests
	{service.ErrRequestNotFound, http.StatusNotFound, apperrors.RequestNotFound},
	{service.ErrInvalidUrgency, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidRequiredDate, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidRequestStatus, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	// notifications
	{service.ErrNotificationNotFound, http.StatusNotFound, apperrors.NotificationNotFound},
	{service.ErrInvalidNotification, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrInvalidRole, http.StatusBadRequest, apperrors.ValidationInvalidInput},
}

// respondServiceError writes the response for an error returned by a service.
// Unknown errors are storage faults and go through ParseError.
func respondServiceError(c *gin.Context, err error, context string) {
	if context == "request" && errors.Is(err, service.ErrInvalidTransition) {
		apperrors.Conflict(c, apperrors.RequestInvalidTransition, err.Error())
		return
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}

	middleware.GetLoggerFromContext(c).Error("Unhandled service error", err, map[string]interface{}{
		"context": context,
	})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
}

// respondBindError reports per-field messages for validation failures and a generic
// message for malformed bodies.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
	if fields, ok := validation.FieldErrors(err); ok {
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body is malformed")
}

// actorFrom builds the service actor from the authenticated context.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return service.Actor{UserID: userID, Role: role}, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func paged(data interface{}, total int64, page, pageSize int) gin.H {
	return gin.H{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}
}
