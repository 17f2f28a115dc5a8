//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run with: RECIPEHUB_TEST_DSN="host=localhost user=recipehub password=recipehub dbname=recipehub_test sslmode=disable" go test -tags integration ./internal/repository/
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("RECIPEHUB_TEST_DSN")
	if dsn == "" {
		t.Skip("RECIPEHUB_TEST_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.OTPRecord{}))
	return db
}

func TestOTPRepository_MutateSerializesConcurrentAttemptsOnPostgres(t *testing.T) {
	db := newPostgresDB(t)
	repo := NewOTPRepository(db)
	ctx := context.Background()

	const maxAttempts = 5
	errInvalid := errors.New("invalid code")
	errTooMany := errors.New("too many attempts")
	errMissing := errors.New("not found")

	address := uuid.NewString() + "@example.com"
	t.Cleanup(func() { db.Where("address = ?", address).Delete(&model.OTPRecord{}) })
	require.NoError(t, repo.Replace(ctx, newRecord(address, model.OTPPurposeLogin, "h", time.Now().Add(time.Hour))))

	const callers = 12
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Mutate(ctx, address, model.OTPPurposeLogin, func(rec *model.OTPRecord) (model.OTPMutation, error) {
				switch {
				case rec == nil:
					return model.OTPKeep, errMissing
				case rec.AttemptCount >= maxAttempts:
					return model.OTPDelete, errTooMany
				}
				return model.OTPIncrementAttempts, errInvalid
			})
		}()
	}
	wg.Wait()
	close(errs)

	counts := map[error]int{}
	for err := range errs {
		counts[err]++
	}
	assert.Equal(t, maxAttempts, counts[errInvalid])
	assert.Equal(t, 1, counts[errTooMany])
	assert.Equal(t, callers-maxAttempts-1, counts[errMissing])

	_, err := findOTP(db, address, model.OTPPurposeLogin)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
