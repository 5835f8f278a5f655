package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-content-studio/internal/domain"
)

func newOpsDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("ops_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedOp(t *testing.T, db *gorm.DB, id, session string, kind domain.OpKind, at time.Time) {
	t.Helper()
	op := &domain.Operation{ID: id, SessionID: session, Kind: kind, Status: domain.JournalPending, CreatedAt: at}
	if err := CreateOperation(context.Background(), db, op); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCreateOperation_Error_NoTable(t *testing.T) {
	db := newOpsDB(t /* no migrations */)
	err := CreateOperation(context.Background(), db, &domain.Operation{ID: "x", SessionID: "s", Kind: domain.OpImage, Status: domain.JournalPending})
	if err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateOperation_DefaultsCreatedAt(t *testing.T) {
	db := newOpsDB(t, &domain.Operation{})
	op := &domain.Operation{ID: "o1", SessionID: "s1", Kind: domain.OpCaption, ImageID: "img", Status: domain.JournalPending}

	start := time.Now().UTC().Add(-time.Second)
	if err := CreateOperation(context.Background(), db, op); err != nil {
		t.Fatalf("CreateOperation: %v", err)
	}
	if op.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt not defaulted: %v", op.CreatedAt)
	}
}

func TestCreateOperation_RejectsUnknownKind(t *testing.T) {
	db := newOpsDB(t, &domain.Operation{})
	err := CreateOperation(context.Background(), db, &domain.Operation{ID: "o1", SessionID: "s1", Kind: "video", Status: domain.JournalPending})
	if err == nil {
		t.Fatalf("check constraint should reject kind=video")
	}
}

func TestFinishOperation(t *testing.T) {
	db := newOpsDB(t, &domain.Operation{})
	seedOp(t, db, "o1", "s1", domain.OpSEO, time.Now().UTC())

	at := time.Now().UTC()
	if err := FinishOperation(context.Background(), db, "o1", domain.JournalFailed, "boom", at); err != nil {
		t.Fatalf("FinishOperation: %v", err)
	}
	var got domain.Operation
	if err := db.First(&got, "id = ?", "o1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Status != domain.JournalFailed || got.Error != "boom" || got.FinishedAt == nil {
		t.Fatalf("unexpected row: %+v", got)
	}

	if err := FinishOperation(context.Background(), db, "missing", domain.JournalSucceeded, "", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountAndListOperationsPage(t *testing.T) {
	db := newOpsDB(t, &domain.Operation{})
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedOp(t, db, fmt.Sprintf("o%d", i), "s1", domain.OpImage, base.Add(time.Duration(i)*time.Minute))
	}
	seedOp(t, db, "other", "s2", domain.OpImage, base)

	total, err := CountOperations(context.Background(), db, "s1")
	if err != nil || total != 5 {
		t.Fatalf("count = %d, %v", total, err)
	}

	page, err := ListOperationsPage(context.Background(), db, "s1", 0, 2)
	if err != nil {
		t.Fatalf("ListOperationsPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "o4" || page[1].ID != "o3" {
		t.Fatalf("first page should be newest first: %+v", page)
	}

	page, _ = ListOperationsPage(context.Background(), db, "s1", 4, 2)
	if len(page) != 1 || page[0].ID != "o0" {
		t.Fatalf("last page: %+v", page)
	}
}

func TestPurgeSession(t *testing.T) {
	db := newOpsDB(t, &domain.Operation{})
	seedOp(t, db, "a", "s1", domain.OpImage, time.Now().UTC())
	seedOp(t, db, "b", "s1", domain.OpCaption, time.Now().UTC())
	seedOp(t, db, "c", "s2", domain.OpImage, time.Now().UTC())

	if err := PurgeSession(context.Background(), db, "s1"); err != nil {
		t.Fatalf("PurgeSession: %v", err)
	}
	if n, _ := CountOperations(context.Background(), db, "s1"); n != 0 {
		t.Fatalf("s1 rows left: %d", n)
	}
	if n, _ := CountOperations(context.Background(), db, "s2"); n != 1 {
		t.Fatalf("s2 rows = %d", n)
	}
	if err := PurgeSession(context.Background(), db, "unknown"); err != nil {
		t.Fatalf("purging unknown session: %v", err)
	}
}
