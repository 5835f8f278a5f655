package domain

import (
	"bytes"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableName(t *testing.T) {
	if (Operation{}).TableName() != "operations" {
		t.Fatalf("Operation.TableName() = %q; want %q", (Operation{}).TableName(), "operations")
	}
}

func TestMigration_IndexAndKindCheck(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Operation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable(&Operation{}) {
		t.Fatalf("expected operations table")
	}
	if !m.HasIndex(&Operation{}, "idx_session_ops") {
		t.Fatalf("expected index idx_session_ops on operations")
	}

	ok := Operation{ID: "00000000-0000-0000-0000-000000000001", SessionID: "s1", Kind: OpCaption, Status: JournalPending}
	if err := db.Create(&ok).Error; err != nil {
		t.Fatalf("insert valid operation: %v", err)
	}
	bad := Operation{ID: "00000000-0000-0000-0000-000000000002", SessionID: "s1", Kind: OpKind("video"), Status: JournalPending}
	if err := db.Create(&bad).Error; err == nil {
		t.Fatalf("expected check constraint failure for unknown kind")
	}
}

func TestTheme_Toggle(t *testing.T) {
	if ThemeDark.Toggle() != ThemeLight || ThemeLight.Toggle() != ThemeDark {
		t.Fatalf("toggle should flip dark/light")
	}
	if Theme("").Toggle() != ThemeLight {
		t.Fatalf("unset theme behaves as dark")
	}
}

func TestImage_CloneDoesNotShareBytes(t *testing.T) {
	var nilImg *Image
	if nilImg.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
	img := &Image{ID: "i1", Origin: OriginUploaded, Data: []byte{1, 2, 3}}
	cp := img.Clone()
	cp.Data[0] = 9
	if img.Data[0] != 1 {
		t.Fatalf("clone shares backing array")
	}
	if cp.ID != "i1" || cp.Origin != OriginUploaded {
		t.Fatalf("clone lost fields: %+v", cp)
	}
}

func TestDataURI_RoundTrip(t *testing.T) {
	raw := []byte("\x89PNG\r\n\x1a\nfake")
	uri := DataURI("image/png", raw)
	if uri[:22] != "data:image/png;base64," {
		t.Fatalf("unexpected prefix: %q", uri[:22])
	}
	mime, data, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(data, raw) {
		t.Fatalf("round trip mismatch: %q %v", mime, data)
	}
}

func TestDecodeDataURI_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"blob:http://localhost/abc",
		"data:image/png;base64",        // no comma
		"data:image/png,plain",         // not base64
		"data:image/png;base64,%%%%%%", // bad payload
	} {
		if _, _, err := DecodeDataURI(in); !errors.Is(err, ErrInvalidDataURI) {
			t.Errorf("DecodeDataURI(%q) err = %v; want ErrInvalidDataURI", in, err)
		}
	}
}
