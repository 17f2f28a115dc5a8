package model

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a RecipeHub account
type User struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string         `json:"name" gorm:"size:255;not null"`
	Email           string         `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password        string         `json:"-" gorm:"size:255;not null"`
	AvatarPath      string         `json:"-" gorm:"size:500;default:''"`
	Phone           string         `json:"phone" gorm:"size:20;default:''"`
	Bio             string         `json:"bio" gorm:"size:500;default:''"`
	Location        string         `json:"location" gorm:"size:255;default:''"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"` // NULL = not verified
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsEmailVerified checks if the user's email has been verified
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	AvatarURL       string     `json:"avatar_url"`
	Phone           string     `json:"phone"`
	Bio             string     `json:"bio"`
	Location        string     `json:"location"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToResponse converts User to UserResponse. avatarURL resolves a stored
// object key to a public URL; users without an avatar get a generated one.
func (u *User) ToResponse(avatarURL func(key string) string) UserResponse {
	avatar := DefaultAvatarURL(u.Name)
	if u.AvatarPath != "" && avatarURL != nil {
		avatar = avatarURL(u.AvatarPath)
	}
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		AvatarURL:       avatar,
		Phone:           u.Phone,
		Bio:             u.Bio,
		Location:        u.Location,
		EmailVerified:   u.IsEmailVerified(),
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
	}
}

// DefaultAvatarURL is the initials avatar shown until a picture is uploaded
func DefaultAvatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "f97316")
	q.Set("color", "fff")
	q.Set("size", "200")
	return "https://ui-avatars.com/api/?" + q.Encode()
}
