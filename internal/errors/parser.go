package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo code and message pair for storage layer faults
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns a storage error into a client safe code and message.
// context names the entity being handled ("donor", "hospital", ...).
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	errLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	// Unique constraint violation (postgres 23505, sqlite "UNIQUE constraint failed")
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// Foreign key violation (23503)
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	}

	// Not null violation (23502)
	if strings.Contains(errLower, "not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A dependent service is unreachable. Please try again later",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "license_number"):
		return ErrorInfo{Code: ProfileLicenseExists, Message: "This licence number is already registered"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
	case strings.Contains(errLower, "user_id"):
		return ErrorInfo{Code: ProfileAlreadyExists, Message: "Profile already exists"}
	case strings.Contains(errLower, "appointment_id"):
		return ErrorInfo{Code: ResourceConflict, Message: "This appointment already has a donation record"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func notFoundMessage(context string) string {
	switch c := strings.ToLower(context); {
	case strings.Contains(c, "donor"):
		return "Donor not found"
	case strings.Contains(c, "hospital"):
		return "Hospital not found"
	case strings.Contains(c, "appointment"):
		return "Appointment not found"
	case strings.Contains(c, "donation"):
		return "Donation record not found"
	case strings.Contains(c, "request"):
		return "Blood request not found"
	case strings.Contains(c, "notification"):
		return "Notification not found"
	case strings.Contains(c, "user"):
		return "User not found"
	}
	return "The requested record was not found"
}

func defaultMessage(context string) string {
	switch c := strings.ToLower(context); {
	case strings.Contains(c, "create"):
		return "Could not save the record. Please try again later"
	case strings.Contains(c, "update"):
		return "Could not update the record. Please try again later"
	case strings.Contains(c, "delete"):
		return "Could not delete the record. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond parses err and writes it with statusCode.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
