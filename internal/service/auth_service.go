package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/pkg/auth"
	"github.com/rahulp1273/recipe-hub/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type sessionIssuer interface {
	GenerateToken(userID uuid.UUID, email, name string) (string, error)
	ValidateToken(token string) (*auth.Claims, error)
	TTL(claims *auth.Claims) time.Duration
}

type tokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// AuthService handles registration, password login and the OTP second step
type AuthService struct {
	users     userStore
	otp       *OTPService
	sessions  sessionIssuer
	blacklist tokenRevoker
	storage   storage.Storage
	log       *zap.Logger
}

// NewAuthService creates an AuthService. storage may be nil.
func NewAuthService(
	users userStore,
	otp *OTPService,
	sessions sessionIssuer,
	blacklist tokenRevoker,
	storage storage.Storage,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		otp:       otp,
		sessions:  sessions,
		blacklist: blacklist,
		storage:   storage,
		log:       log.Named("auth"),
	}
}

// ==================== Register (Email + OTP) ====================

// Register creates an unverified account and issues a registration code.
// Any existing account owns its email, verified or not; its owner finishes
// verification through resend.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.OTPSentResponse, error) {
	email := normalizeEmail(req.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Stringer("user_id", user.ID), zap.String("email", email))

	return s.issue(ctx, user, model.OTPPurposeRegistration, "User registered successfully. Please verify the OTP sent to your email.")
}

// ==================== Login (Password + OTP) ====================

// Login checks the password and issues a login code. No token is handed out
// until the code is verified.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.OTPSentResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.log.Info("login rejected", zap.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user, model.OTPPurposeLogin, "Credentials verified. Please enter the OTP sent to your email.")
}

// ==================== OTP ====================

// VerifyOTP consumes a code and mints a session token for the account
func (s *AuthService) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.AuthResponse, error) {
	user, err := s.otp.Verify(ctx, req.Email, req.Code, req.Purpose)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &model.AuthResponse{
		Message: "OTP verified successfully.",
		Token:   token,
		User:    user.ToResponse(avatarURL(s.storage)),
	}, nil
}

// ResendOTP re-issues a code for an existing account
func (s *AuthService) ResendOTP(ctx context.Context, req model.ResendOTPRequest) (*model.OTPSentResponse, error) {
	return s.otp.Resend(ctx, req.Email, req.Purpose)
}

// Logout revokes token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.sessions.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if err := s.blacklist.Revoke(ctx, token, s.sessions.TTL(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// ==================== Internal Helpers ====================

func (s *AuthService) issue(ctx context.Context, user *model.User, purpose model.OTPPurpose, message string) (*model.OTPSentResponse, error) {
	resp, err := s.otp.Issue(ctx, IssueRequest{
		Address:   user.Email,
		Purpose:   purpose,
		AccountID: &user.ID,
		Name:      user.Name,
	})
	if err != nil {
		return nil, err
	}
	resp.Message = message
	return resp, nil
}

// avatarURL resolves stored avatar keys, or nothing when storage is down
func avatarURL(store storage.Storage) func(string) string {
	if store == nil {
		return nil
	}
	return store.GetPublicURL
}
