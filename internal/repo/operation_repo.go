// Package repo – operation journal.
//
// Thin repository functions for domain.Operation. All functions are
// context-aware and accept a *gorm.DB handle; they carry no business logic.
// A missing row is reported as ErrNotFound.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-content-studio/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateOperation inserts op. CreatedAt defaults to now (UTC) when zero.
func CreateOperation(ctx context.Context, db *gorm.DB, op *domain.Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(op).Error
}

// FinishOperation sets the terminal status, error message, and finish time of
// the row with id. It returns ErrNotFound if no row matched.
func FinishOperation(ctx context.Context, db *gorm.DB, id, status, errMsg string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Operation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"error":       errMsg,
			"finished_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOperations returns the number of rows for sessionID.
func CountOperations(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Operation{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

// ListOperationsPage returns a page of rows for sessionID, newest first.
// The caller computes offset and limit.
func ListOperationsPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Operation, error) {
	var out []domain.Operation
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PurgeSession deletes every row for sessionID. Purging an unknown session
// is not an error.
func PurgeSession(ctx context.Context, db *gorm.DB, sessionID string) error {
	return db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&domain.Operation{}).Error
}
