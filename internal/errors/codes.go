package errors

// Error code constants returned in ErrorResponse.Error.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these codes to their own messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"         // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"  // wrong email/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"        // token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"        // malformed or forged token
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"        // logged out token
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"         // duplicate email
	AuthEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"   // login before OTP verification
	AuthAlreadyVerified    = "AUTH_ALREADY_VERIFIED"     // email already verified
	AuthCodeInvalid        = "AUTH_CODE_INVALID"         // wrong OTP
	AuthCodeExpired        = "AUTH_CODE_EXPIRED"         // OTP past expiry
	AuthCodeUsed           = "AUTH_CODE_USED"            // OTP already consumed
	AuthCodeDeliveryFailed = "AUTH_CODE_DELIVERY_FAILED" // OTP stored but email not delivered
	AuthTooManyRequests    = "AUTH_TOO_MANY_REQUESTS"    // rate limited

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // not allowed
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // role missing from context
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // admin only
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"     // owner only

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // bad input
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // bad path id
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // bad format
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // out of range
	ValidationTooShort      = "VALIDATION_TOO_SHORT"      // too short
	ValidationRequired      = "VALIDATION_REQUIRED"       // required field missing

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // not found
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // duplicate
	ResourceConflict      = "RESOURCE_CONFLICT"       // conflicting state

	// ==================== Profiles (PROFILE_) ====================
	ProfileNotFound      = "PROFILE_NOT_FOUND"      // donor/hospital profile missing
	ProfileAlreadyExists = "PROFILE_ALREADY_EXISTS" // profile already completed
	ProfileLicenseExists = "PROFILE_LICENSE_EXISTS" // duplicate hospital licence
	HospitalNotVerified  = "HOSPITAL_NOT_VERIFIED"  // pending admin verification

	// ==================== Appointments (APPOINTMENT_) ====================
	AppointmentNotFound          = "APPOINTMENT_NOT_FOUND"          // no such appointment
	AppointmentInvalidSchedule   = "APPOINTMENT_INVALID_SCHEDULE"   // time not in the future
	AppointmentInvalidTransition = "APPOINTMENT_INVALID_TRANSITION" // state does not allow it
	DonorUnavailable             = "DONOR_UNAVAILABLE"              // donor marked unavailable
	DonationTooSoon              = "DONATION_TOO_SOON"              // inside the 56 day interval
	DonationInvalidQuantity      = "DONATION_INVALID_QUANTITY"      // quantity not positive
	DonationNotFound             = "DONATION_NOT_FOUND"             // no such donation record

	// ==================== Transfusion requests (REQUEST_) ====================
	RequestNotFound          = "REQUEST_NOT_FOUND"          // no such request
	RequestInvalidTransition = "REQUEST_INVALID_TRANSITION" // already reviewed

	// ==================== Notifications (NOTIFICATION_) ====================
	NotificationNotFound = "NOTIFICATION_NOT_FOUND" // no such notification

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE" // bad content type
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"    // too large
	UploadFailed          = "UPLOAD_FAILED"            // presign failed

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // server error
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // database error
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // upstream service error
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // misconfiguration
)
