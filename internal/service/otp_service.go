package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/internal/repository"
	"github.com/rahulp1273/recipe-hub/pkg/clock"
	"github.com/rahulp1273/recipe-hub/pkg/mailer"
	"github.com/rahulp1273/recipe-hub/pkg/otpcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dispatchTimeout = 30 * time.Second

type otpStore interface {
	Replace(ctx context.Context, rec *model.OTPRecord) error
	Mutate(ctx context.Context, address string, purpose model.OTPPurpose, fn repository.OTPMutator) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type accountDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type otpDispatcher interface {
	SendOTP(ctx context.Context, msg mailer.OTPMessage) error
}

type issueThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// OTPPolicy holds the tunable limits of the passcode lifecycle
type OTPPolicy struct {
	TTL         time.Duration
	MaxAttempts int
}

// DefaultOTPPolicy is five minutes and five attempts
func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{TTL: 5 * time.Minute, MaxAttempts: 5}
}

// IssueRequest describes who a new code is for
type IssueRequest struct {
	Address   string
	Purpose   model.OTPPurpose
	AccountID *uuid.UUID
	Name      string // greeting in the message, may be empty
}

// OTPService issues, verifies and sweeps one-time passcodes
type OTPService struct {
	store    otpStore
	accounts accountDirectory
	mailer   otpDispatcher
	throttle issueThrottle
	hasher   *otpcode.Hasher
	clock    clock.Clocker
	policy   OTPPolicy
	log      *zap.Logger

	dispatches sync.WaitGroup
}

// NewOTPService wires the passcode lifecycle. throttle may be nil.
func NewOTPService(
	store otpStore,
	accounts accountDirectory,
	dispatcher otpDispatcher,
	throttle issueThrottle,
	hasher *otpcode.Hasher,
	clk clock.Clocker,
	policy OTPPolicy,
	log *zap.Logger,
) *OTPService {
	return &OTPService{
		store:    store,
		accounts: accounts,
		mailer:   dispatcher,
		throttle: throttle,
		hasher:   hasher,
		clock:    clk,
		policy:   policy,
		log:      log.Named("otp"),
	}
}

// ==================== Issue ====================

// Issue replaces any live code for (address, purpose) with a fresh one and
// hands the plaintext to the mailer in the background. A failed delivery
// leaves the record live; resend supersedes it.
func (s *OTPService) Issue(ctx context.Context, req IssueRequest) (*model.OTPSentResponse, error) {
	if !req.Purpose.Valid() {
		return nil, ErrOTPInvalidPurpose
	}
	address := normalizeEmail(req.Address)

	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, string(req.Purpose)+":"+address)
		switch {
		case err != nil:
			s.log.Warn("issue throttle unavailable, allowing", zap.String("address", address), zap.Error(err))
		case !ok:
			s.log.Info("issue throttled", zap.String("address", address), zap.String("purpose", string(req.Purpose)))
			return nil, ErrOTPRateLimited
		}
	}

	code, err := otpcode.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	salt, err := otpcode.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("generate otp salt: %w", err)
	}

	now := s.clock.Now()
	rec := &model.OTPRecord{
		Address:      address,
		Purpose:      req.Purpose,
		CodeHash:     s.hasher.Hash(salt, code),
		Salt:         salt,
		AccountID:    req.AccountID,
		ExpiresAt:    now.Add(s.policy.TTL),
		AttemptCount: 0,
		CreatedAt:    now,
	}
	if err := s.store.Replace(ctx, rec); err != nil {
		return nil, fmt.Errorf("save otp: %w", err)
	}

	s.dispatch(mailer.OTPMessage{
		To:       address,
		Name:     req.Name,
		Code:     code,
		Purpose:  req.Purpose.Label(),
		ValidFor: s.policy.TTL,
	})

	s.log.Info("otp issued",
		zap.String("address", address),
		zap.String("purpose", string(req.Purpose)),
		zap.Time("expires_at", rec.ExpiresAt),
	)

	return &model.OTPSentResponse{
		Message:     "A verification code has been sent to your email.",
		Email:       address,
		Purpose:     req.Purpose,
		ExpiresIn:   int(s.policy.TTL.Seconds()),
		RequiresOTP: true,
	}, nil
}

// Resend issues a new code for an existing account. It never creates accounts.
func (s *OTPService) Resend(ctx context.Context, address, purpose string) (*model.OTPSentResponse, error) {
	p, ok := model.ParseOTPPurpose(purpose)
	if !ok {
		return nil, ErrOTPInvalidPurpose
	}
	address = normalizeEmail(address)

	user, err := s.accounts.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPNoAccount
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	resp, err := s.Issue(ctx, IssueRequest{
		Address:   user.Email,
		Purpose:   p,
		AccountID: &user.ID,
		Name:      user.Name,
	})
	if err != nil {
		return nil, err
	}
	resp.Message = "A new OTP has been sent to your email."
	return resp, nil
}

func (s *OTPService) dispatch(msg mailer.OTPMessage) {
	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := s.mailer.SendOTP(ctx, msg); err != nil {
			s.log.Error("otp dispatch failed",
				zap.String("address", msg.To),
				zap.String("purpose", msg.Purpose),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every background dispatch has returned
func (s *OTPService) Wait() {
	s.dispatches.Wait()
}

// ==================== Verify ====================

// Verify checks code against the live record for (address, purpose) and
// returns the account it proves control of. Every outcome that touches the
// record is committed under a row lock before Verify returns.
func (s *OTPService) Verify(ctx context.Context, address, code, purpose string) (*model.User, error) {
	p, ok := model.ParseOTPPurpose(purpose)
	if !ok {
		return nil, ErrOTPInvalidPurpose
	}
	address = normalizeEmail(address)

	var consumed model.OTPRecord
	err := s.store.Mutate(ctx, address, p, func(rec *model.OTPRecord) (model.OTPMutation, error) {
		switch {
		case rec == nil:
			return model.OTPKeep, ErrOTPNotFound
		case rec.IsExpired(s.clock.Now()):
			return model.OTPDelete, ErrOTPExpired
		case rec.AttemptCount >= s.policy.MaxAttempts:
			return model.OTPDelete, ErrOTPTooManyAttempts
		case !s.hasher.Verify(rec.CodeHash, rec.Salt, code):
			return model.OTPIncrementAttempts, ErrOTPInvalidCode
		}
		consumed = *rec
		return model.OTPDelete, nil
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			s.log.Info("otp rejected",
				zap.String("address", address),
				zap.String("purpose", string(p)),
				zap.String("reason", string(appErr.Code)),
			)
			return nil, err
		}
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	user, err := s.resolveAccount(ctx, &consumed)
	if err != nil {
		return nil, err
	}

	// only registration proves the address for the first time
	if p == model.OTPPurposeRegistration && !user.IsEmailVerified() {
		now := s.clock.Now()
		if err := s.accounts.MarkEmailVerified(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
		user.EmailVerifiedAt = &now
	}

	s.log.Info("otp verified", zap.String("address", address), zap.String("purpose", string(p)), zap.Stringer("user_id", user.ID))
	return user, nil
}

func (s *OTPService) resolveAccount(ctx context.Context, rec *model.OTPRecord) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if rec.AccountID != nil {
		user, err = s.accounts.FindByID(ctx, *rec.AccountID)
	} else {
		user, err = s.accounts.FindByEmail(ctx, rec.Address)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPNoAccount
		}
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	return user, nil
}

// ==================== Sweep ====================

// Sweep deletes records whose window has closed. Verify re-checks expiry on
// its own, so sweeping is housekeeping only.
func (s *OTPService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired otps: %w", err)
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
