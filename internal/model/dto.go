package model

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,min=2,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ========== OTP DTOs ==========

type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Code    string `json:"code" binding:"required,len=6,numeric"`
	Purpose string `json:"purpose" binding:"required"`
}

type ResendOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

// OTPSentResponse is returned whenever a code has been issued
type OTPSentResponse struct {
	Message     string     `json:"message"`
	Email       string     `json:"email"`
	Purpose     OTPPurpose `json:"purpose"`
	ExpiresIn   int        `json:"expires_in"` // seconds until code expires
	RequiresOTP bool       `json:"requires_otp"`
}

// AuthResponse carries the session credential minted after verification
type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

// ========== Profile DTOs ==========

type UpdateProfileRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=255"`
	Email    string  `json:"email" binding:"required,email,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Location *string `json:"location" binding:"omitempty,max=255"`
}

type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" binding:"required"`
	Password             string `json:"password" binding:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
