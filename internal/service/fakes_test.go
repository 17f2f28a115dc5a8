package service

import (
	"context"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/internal/repository"
	"github.com/rahulp1273/recipe-hub/pkg/auth"
	"github.com/rahulp1273/recipe-hub/pkg/mailer"
	"github.com/rahulp1273/recipe-hub/pkg/otpcode"
	"github.com/rahulp1273/recipe-hub/pkg/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ==================== Clock ====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ==================== OTP store ====================

type otpKey struct {
	address string
	purpose model.OTPPurpose
}

type fakeOTPStore struct {
	mu      sync.Mutex
	records map[otpKey]model.OTPRecord
	err     error
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{records: make(map[otpKey]model.OTPRecord)}
}

func (f *fakeOTPStore) Replace(_ context.Context, rec *model.OTPRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.records[otpKey{rec.Address, rec.Purpose}] = *rec
	return nil
}

func (f *fakeOTPStore) Mutate(_ context.Context, address string, purpose model.OTPPurpose, fn repository.OTPMutator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}

	key := otpKey{address, purpose}
	rec, ok := f.records[key]
	var found *model.OTPRecord
	if ok {
		found = &rec
	}

	mutation, err := fn(found)
	if ok {
		switch mutation {
		case model.OTPDelete:
			delete(f.records, key)
		case model.OTPIncrementAttempts:
			rec.AttemptCount++
			f.records[key] = rec
		}
	}
	return err
}

func (f *fakeOTPStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for k, rec := range f.records {
		if rec.ExpiresAt.Before(now) {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPStore) get(address string, purpose model.OTPPurpose) (model.OTPRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[otpKey{address, purpose}]
	return rec, ok
}

func (f *fakeOTPStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// ==================== Users ====================

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*model.User
	marks int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUsers) add(u *model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.add(u)
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks++
	if u, ok := f.byID[id]; ok && u.EmailVerifiedAt == nil {
		t := at
		u.EmailVerifiedAt = &t
	}
	return nil
}

func (f *fakeUsers) EmailTaken(_ context.Context, email string, exceptID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	for k, v := range updates {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "location":
			u.Location = v.(string)
		}
	}
	return nil
}

func (f *fakeUsers) UpdateAvatar(_ context.Context, id uuid.UUID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].AvatarPath = key
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Password = hashed
	return nil
}

// ==================== Mailer ====================

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.OTPMessage
	err  error
}

func (f *fakeMailer) SendOTP(_ context.Context, msg mailer.OTPMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) last(t *testing.T) mailer.OTPMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no message dispatched")
	return f.sent[len(f.sent)-1]
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// ==================== Throttle / blacklist / storage ====================

type fakeThrottle struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeThrottle) Allow(_ context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

type fakeBlacklist struct {
	revoked map[string]time.Duration
}

func (f *fakeBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if f.revoked == nil {
		f.revoked = make(map[string]time.Duration)
	}
	f.revoked[token] = ttl
	return nil
}

type fakeStorage struct {
	uploaded []string
	deleted  []string
}

func (f *fakeStorage) Upload(_ context.Context, _ multipart.File, header *multipart.FileHeader, folder string) (*storage.UploadResult, error) {
	key := folder + "/" + header.Filename
	f.uploaded = append(f.uploaded, key)
	return &storage.UploadResult{Key: key, URL: f.GetPublicURL(key), FileName: header.Filename}, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// ==================== Harness ====================

type otpHarness struct {
	svc    *OTPService
	store  *fakeOTPStore
	users  *fakeUsers
	mailer *fakeMailer
	clock  *fakeClock
}

func newOTPHarness(t *testing.T) *otpHarness {
	t.Helper()
	h := &otpHarness{
		store:  newFakeOTPStore(),
		users:  newFakeUsers(),
		mailer: &fakeMailer{},
		clock:  newFakeClock(),
	}
	h.svc = NewOTPService(h.store, h.users, h.mailer, nil, otpcode.NewHasher("test-pepper"), h.clock, DefaultOTPPolicy(), zap.NewNop())
	return h
}

// issue issues a code for user and returns the plaintext that was dispatched
func (h *otpHarness) issue(t *testing.T, user *model.User, purpose model.OTPPurpose) string {
	t.Helper()
	_, err := h.svc.Issue(context.Background(), IssueRequest{
		Address:   user.Email,
		Purpose:   purpose,
		AccountID: &user.ID,
		Name:      user.Name,
	})
	require.NoError(t, err)
	h.svc.Wait()
	return h.mailer.last(t).Code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func newJWT(clk *fakeClock) *auth.JWTManager {
	return auth.NewJWTManager("test-secret", time.Hour, clk)
}
