// Package services – Journal
//
// This file implements the operation journal: an append-mostly audit trail of
// every remote request a session dispatched and how it resolved. The journal
// is never read back into workflow state.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-content-studio/internal/domain"
	"github.com/tbourn/go-content-studio/internal/utils"
)

// OperationRepo defines the persistence contract required by Journal.
type OperationRepo interface {
	// CreateOperation inserts a new journal row.
	CreateOperation(ctx context.Context, db *gorm.DB, op *domain.Operation) error

	// FinishOperation records the terminal status of a journal row.
	FinishOperation(ctx context.Context, db *gorm.DB, id, status, errMsg string, at time.Time) error

	// CountOperations returns the number of rows for a session.
	CountOperations(ctx context.Context, db *gorm.DB, sessionID string) (int64, error)

	// ListOperationsPage returns a page of a session's rows, newest first.
	ListOperationsPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Operation, error)

	// PurgeSession deletes every row of a session.
	PurgeSession(ctx context.Context, db *gorm.DB, sessionID string) error
}

// Recorder receives dispatch lifecycle events from an Orchestrator.
type Recorder interface {
	Started(ctx context.Context, sessionID string, t Ticket) error
	Finished(ctx context.Context, t Ticket, status string, cause error) error
}

// Journal is the GORM-backed Recorder.
type Journal struct {
	DB   *gorm.DB
	Repo OperationRepo
}

// NewJournal constructs a Journal.
func NewJournal(db *gorm.DB, r OperationRepo) *Journal {
	return &Journal{DB: db, Repo: r}
}

// Started inserts a pending row keyed by the ticket ID.
func (j *Journal) Started(ctx context.Context, sessionID string, t Ticket) error {
	return j.Repo.CreateOperation(ctx, j.DB, &domain.Operation{
		ID:        t.ID,
		SessionID: sessionID,
		Kind:      t.Kind,
		ImageID:   t.ImageID,
		Status:    domain.JournalPending,
		CreatedAt: time.Now().UTC(),
	})
}

// Finished stamps the row with its terminal status and the cause, if any.
func (j *Journal) Finished(ctx context.Context, t Ticket, status string, cause error) error {
	var msg string
	if cause != nil {
		msg = cause.Error()
	}
	return j.Repo.FinishOperation(ctx, j.DB, t.ID, status, msg, time.Now().UTC())
}

// ListPage returns a page of a session's journal and the total count.
// It applies defaults for invalid page/pageSize.
func (j *Journal) ListPage(ctx context.Context, sessionID string, page, pageSize int) ([]domain.Operation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := utils.Offset(page, pageSize)

	total, err := j.Repo.CountOperations(ctx, j.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Operation{}, 0, nil
	}

	items, err := j.Repo.ListOperationsPage(ctx, j.DB, sessionID, offset, pageSize)
	return items, total, err
}

// Purge drops a closed session's rows.
func (j *Journal) Purge(ctx context.Context, sessionID string) error {
	return j.Repo.PurgeSession(ctx, j.DB, sessionID)
}
