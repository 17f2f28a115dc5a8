package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rahulp1273/recipe-hub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OTPRepository handles database operations for OTP records
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// OTPMutator inspects the locked record (nil when none exists) and decides
// what happens to it. Its error is returned to the caller after the mutation
// has been committed.
type OTPMutator func(rec *model.OTPRecord) (model.OTPMutation, error)

// Replace stores rec as the only record for its (address, purpose) pair.
// An existing row for the pair is overwritten in the same statement.
func (r *OTPRepository) Replace(ctx context.Context, rec *model.OTPRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}, {Name: "purpose"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"code_hash", "salt", "account_id", "expires_at", "attempt_count", "created_at",
			}),
		}).
		Create(rec).Error
}

// Mutate locks the record for (address, purpose) for the length of one
// transaction and applies the mutation fn asks for.
func (r *OTPRepository) Mutate(ctx context.Context, address string, purpose model.OTPPurpose, fn OTPMutator) error {
	var outcome error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.OTPRecord
		var found *model.OTPRecord

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ? AND purpose = ?", address, purpose).
			First(&rec).Error
		switch {
		case err == nil:
			found = &rec
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		mutation, fnErr := fn(found)
		outcome = fnErr
		if found == nil {
			return nil
		}

		switch mutation {
		case model.OTPDelete:
			return tx.Where("id = ?", rec.ID).Delete(&model.OTPRecord{}).Error
		case model.OTPIncrementAttempts:
			return tx.Model(&model.OTPRecord{}).
				Where("id = ?", rec.ID).
				UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}

// DeleteExpired removes every record whose window closed before now
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.OTPRecord{})
	return result.RowsAffected, result.Error
}
