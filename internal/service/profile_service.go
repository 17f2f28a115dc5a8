package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const avatarFolder = "avatars"

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID uuid.UUID) (bool, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, key string) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

// ProfileService manages the signed-in user's own account
type ProfileService struct {
	users   profileStore
	storage storage.Storage
	log     *zap.Logger
}

// NewProfileService creates a ProfileService. storage may be nil, which
// disables avatar uploads.
func NewProfileService(users profileStore, storage storage.Storage, log *zap.Logger) *ProfileService {
	return &ProfileService{users: users, storage: storage, log: log.Named("profile")}
}

// GetProfile returns the user's profile
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse(avatarURL(s.storage))
	return &resp, nil
}

// UpdateProfile changes name, email and the optional contact fields
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req model.UpdateProfileRequest) (*model.UserResponse, error) {
	email := normalizeEmail(req.Email)

	taken, err := s.users.EmailTaken(ctx, email, userID)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	updates := map[string]interface{}{
		"name":  strings.TrimSpace(req.Name),
		"email": email,
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		updates["location"] = strings.TrimSpace(*req.Location)
	}

	if err := s.users.UpdateProfile(ctx, userID, updates); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// UploadAvatar stores a new avatar and deletes the previous object
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.UserResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.Upload(ctx, file, header, avatarFolder)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	if err := s.users.UpdateAvatar(ctx, userID, result.Key); err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	s.deleteObject(ctx, user.AvatarPath)
	return s.GetProfile(ctx, userID)
}

// RemoveAvatar falls back to the generated avatar
func (s *ProfileService) RemoveAvatar(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AvatarPath != "" {
		if err := s.users.UpdateAvatar(ctx, userID, ""); err != nil {
			return nil, fmt.Errorf("clear avatar: %w", err)
		}
		s.deleteObject(ctx, user.AvatarPath)
	}
	return s.GetProfile(ctx, userID)
}

// ChangePassword replaces the password after checking the current one
func (s *ProfileService) ChangePassword(ctx context.Context, userID uuid.UUID, req model.ChangePasswordRequest) error {
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("password changed", zap.Stringer("user_id", userID))
	return nil
}

func (s *ProfileService) find(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// deleteObject is best effort; an orphaned object is not worth failing the request
func (s *ProfileService) deleteObject(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete old avatar", zap.String("key", key), zap.Error(err))
	}
}
