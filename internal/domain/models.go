// Package domain defines the workflow vocabulary shared by the artifact store,
// the orchestrator, the HTTP layer, and the operation journal. The journal
// model is mapped with GORM; everything else is plain data.
package domain

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// OpKind identifies one of the three remote operations.
type OpKind string

const (
	OpImage   OpKind = "image"
	OpCaption OpKind = "caption"
	OpSEO     OpKind = "seo"
)

// OpKinds lists every operation kind in workflow order.
var OpKinds = []OpKind{OpImage, OpCaption, OpSEO}

// OpStatus is the per-kind state: Idle → Pending → (Succeeded | Failed).
// Succeeded and Failed are settled states and accept new requests like Idle.
type OpStatus string

const (
	StatusIdle      OpStatus = "idle"
	StatusPending   OpStatus = "pending"
	StatusSucceeded OpStatus = "succeeded"
	StatusFailed    OpStatus = "failed"
)

// Origin tags how the current image was established.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginUploaded  Origin = "uploaded"
)

// Theme is the cosmetic presentation preference carried with a session.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Image is the single current image the workflow operates on.
//
// ID is the identity tag that caption and SEO requests are issued against.
// Data holds the raw bytes. URI is the rendered representation handed to the
// presentation layer (a data URI); for generated images it is the form the
// image arrived in and the one re-captioning derives bytes from.
type Image struct {
	ID       string
	Origin   Origin
	Name     string
	MimeType string
	Data     []byte
	URI      string
}

// Clone returns a deep copy so callers never share the byte slice.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	cp := *img
	cp.Data = append([]byte(nil), img.Data...)
	return &cp
}

// DataURI renders data as a base64 data URI of the given MIME type.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ErrInvalidDataURI is returned by DecodeDataURI for anything that is not a
// base64 data URI.
var ErrInvalidDataURI = errors.New("invalid data uri")

// DecodeDataURI parses a base64 data URI back into its MIME type and bytes.
func DecodeDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidDataURI
	}
	return mime, data, nil
}

// Operation is a journal entry for one dispatched remote request. The
// journal is an audit trail; workflow state is never rebuilt from it.
//
// Status moves from pending to succeeded, failed, or discarded (a response
// that arrived for a superseded image).
type Operation struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionID  string     `json:"session_id"  gorm:"type:char(36);not null;index:idx_session_ops,priority:1"`
	Kind       OpKind     `json:"kind"        gorm:"type:varchar(16);not null;check:kind IN ('image','caption','seo')"`
	ImageID    string     `json:"image_id"    gorm:"type:varchar(36)"`
	Status     string     `json:"status"      gorm:"type:varchar(16);not null"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"  gorm:"index:idx_session_ops,priority:2"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName returns the database table name for Operation.
func (Operation) TableName() string { return "operations" }

// Journal statuses; pending/succeeded/failed mirror OpStatus.
const (
	JournalPending   = string(StatusPending)
	JournalSucceeded = string(StatusSucceeded)
	JournalFailed    = string(StatusFailed)
	JournalDiscarded = "discarded"
)
