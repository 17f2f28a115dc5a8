package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/middleware"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/pkg/storage"
	"go.uber.org/zap"
)

// Max avatar size: 2MB
const maxAvatarSize = 2 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type profileUsecase interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req model.UpdateProfileRequest) (*model.UserResponse, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.UserResponse, error)
	RemoveAvatar(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req model.ChangePasswordRequest) error
}

// ProfileHandler handles the signed-in user's profile endpoints
type ProfileHandler struct {
	profileService profileUsecase
	log            *zap.Logger
}

func NewProfileHandler(profileService profileUsecase, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

// GetProfile godoc
// @Summary Get current user profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	user, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update user profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.UserResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadAvatar godoc
// @Summary Upload a new avatar
// @Description Accepts jpg, png, gif or webp up to 2MB. The previous avatar is deleted.
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} model.UserResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarSize+1<<10)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 2MB)", Code: "FILE_TOO_LARGE"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Avatar is required", Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 2MB)", Code: "FILE_TOO_LARGE"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.ContentTypeFor(header.Filename)
	}
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Unsupported file type",
			Code:    "INVALID_REQUEST",
			Message: "Allowed: jpg, png, gif, webp",
		})
		return
	}

	user, err := h.profileService.UploadAvatar(c.Request.Context(), userID, file, header)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// RemoveAvatar godoc
// @Summary Remove the avatar
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserResponse
// @Router /profile/avatar [delete]
func (h *ProfileHandler) RemoveAvatar(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	user, err := h.profileService.RemoveAvatar(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.ChangePasswordRequest true "Change password request"
// @Success 200 {object} model.SuccessResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /profile/password [put]
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	if err := h.profileService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Password updated successfully"})
}
