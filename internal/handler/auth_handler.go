package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rahulp1273/recipe-hub/internal/middleware"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"go.uber.org/zap"
)

type authUsecase interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.OTPSentResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.OTPSentResponse, error)
	VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.AuthResponse, error)
	ResendOTP(ctx context.Context, req model.ResendOTPRequest) (*model.OTPSentResponse, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService authUsecase
	log         *zap.Logger
}

func NewAuthHandler(authService authUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Register godoc
// @Summary Register a new user (sends a registration OTP)
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.RegisterRequest true "Register request"
// @Success 201 {object} model.OTPSentResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary Check email and password, then send a login OTP
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.LoginRequest true "Login request"
// @Success 200 {object} model.OTPSentResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyOTP godoc
// @Summary Verify an OTP and receive a bearer token
// @Description Error codes: NOT_FOUND, EXPIRED, TOO_MANY_ATTEMPTS (request a new code), INVALID_CODE (retry), INVALID_PURPOSE.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.VerifyOTPRequest true "Verify OTP request"
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 410 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.authService.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResendOTP godoc
// @Summary Resend an OTP for an existing account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.ResendOTPRequest true "Resend OTP request"
// @Success 200 {object} model.OTPSentResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req model.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	resp, err := h.authService.ResendOTP(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the current token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), c.GetString(middleware.ContextToken)); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}
