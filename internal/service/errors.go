package service

// ErrorCode is the stable identifier clients switch on
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeExpired            ErrorCode = "EXPIRED"
	CodeTooManyAttempts    ErrorCode = "TOO_MANY_ATTEMPTS"
	CodeInvalidCode        ErrorCode = "INVALID_CODE"
	CodeInvalidPurpose     ErrorCode = "INVALID_PURPOSE"
	CodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	CodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeAccountNotFound    ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeInvalidPassword    ErrorCode = "INVALID_PASSWORD"
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// Error is an expected business outcome. Anything else returned by a service
// is an infrastructure fault.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrOTPNotFound        = &Error{Code: CodeNotFound, Message: "No active OTP found for this email. Please request a new code."}
	ErrOTPExpired         = &Error{Code: CodeExpired, Message: "The OTP has expired. Please request a new code."}
	ErrOTPTooManyAttempts = &Error{Code: CodeTooManyAttempts, Message: "Maximum OTP attempts exceeded. Please request a new code."}
	ErrOTPInvalidCode     = &Error{Code: CodeInvalidCode, Message: "The provided OTP is incorrect."}
	ErrOTPInvalidPurpose  = &Error{Code: CodeInvalidPurpose, Message: "Invalid OTP type."}
	ErrOTPNoAccount       = &Error{Code: CodeNotFound, Message: "No user found with this email address."}
	ErrOTPRateLimited     = &Error{Code: CodeTooManyRequests, Message: "Too many OTP requests. Please try again later."}

	ErrEmailTaken         = &Error{Code: CodeEmailTaken, Message: "The email has already been taken."}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid email or password."}
	ErrAccountNotFound    = &Error{Code: CodeAccountNotFound, Message: "User not found."}
	ErrWrongPassword      = &Error{Code: CodeInvalidPassword, Message: "The current password is incorrect."}
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable, Message: "File upload service unavailable."}
)
