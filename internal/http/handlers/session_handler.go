// Session HTTP handlers.
//
// This file exposes the studio workflow over REST. Every intent maps to one
// orchestrator call; intents that dispatch remote work answer 202 with the
// snapshot taken right after the transition, and the outcome arrives later
// through GET /sessions/{id} or the events stream.
//
//   - POST   /sessions                     (open)
//   - GET    /sessions/{id}                (snapshot)
//   - DELETE /sessions/{id}                (close)
//   - PUT    /sessions/{id}/prompt         (edit prompt)
//   - POST   /sessions/{id}/image          (generate image)
//   - POST   /sessions/{id}/upload         (upload image, auto-caption)
//   - POST   /sessions/{id}/caption        (caption current image)
//   - POST   /sessions/{id}/recaption      (caption current image again)
//   - POST   /sessions/{id}/seo            (SEO metadata)
//   - POST   /sessions/{id}/theme          (toggle theme)
//   - GET    /sessions/{id}/image          (raw image bytes)
//   - GET    /sessions/{id}/events         (server-sent snapshots)
//   - GET    /sessions/{id}/operations     (journal, paginated)
package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-content-studio/internal/domain"
	"github.com/tbourn/go-content-studio/internal/http/middleware"
	"github.com/tbourn/go-content-studio/internal/services"
	"github.com/tbourn/go-content-studio/internal/utils"
)

//
// Service contracts
//

// Session is the per-session workflow consumed by the handlers.
// *services.Orchestrator satisfies it.
type Session interface {
	ID() string
	SetPrompt(text string)
	RequestImageGeneration(ctx context.Context) error
	UploadImage(ctx context.Context, name string, data []byte) error
	RequestCaption(ctx context.Context) error
	RecaptionCurrentImage(ctx context.Context) error
	RequestSEO(ctx context.Context) error
	ToggleTheme() domain.Theme
	Snapshot() services.Snapshot
	Image() *domain.Image
	Subscribe(fn func(services.Snapshot)) (cancel func())
}

// SessionService opens, finds and closes sessions.
type SessionService interface {
	Create() Session
	Get(id string) (Session, error)
	Delete(id string) error
}

// OperationLister pages through a session's operation journal.
type OperationLister interface {
	ListPage(ctx context.Context, sessionID string, page, pageSize int) ([]domain.Operation, int64, error)
}

//
// Handler wiring
//

// Options tunes transport limits.
type Options struct {
	// MaxUploadBytes caps the uploaded image size.
	MaxUploadBytes int64
	// Heartbeat is the idle interval between keep-alive events on the
	// events stream.
	Heartbeat time.Duration
	// Closing, when closed, ends every open events stream. Nil never fires.
	Closing <-chan struct{}
}

// Handlers groups the session endpoints. ops may be nil when the journal is
// disabled.
type Handlers struct {
	sessions SessionService
	ops      OperationLister
	opt      Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(sessions SessionService, ops OperationLister, opt Options) *Handlers {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 10 << 20
	}
	if opt.Heartbeat <= 0 {
		opt.Heartbeat = 15 * time.Second
	}
	return &Handlers{sessions: sessions, ops: ops, opt: opt}
}

//
// DTOs
//

// PromptRequest is the JSON payload for editing the prompt. An empty prompt
// is allowed; generation is refused until it is non-blank.
type PromptRequest struct {
	Prompt string `json:"prompt" example:"a watercolor fox in the snow"`
}

// ThemeResponse reports the theme after a toggle.
type ThemeResponse struct {
	Theme domain.Theme `json:"theme" example:"dark"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListOperationsResponse wraps a page of journal rows.
type ListOperationsResponse struct {
	Operations []domain.Operation `json:"operations"`
	Pagination Pagination         `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// session resolves the :id path parameter, failing with 404 when unknown.
func (h *Handlers) session(c *gin.Context) (Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// failIntent maps an orchestrator error to the error envelope.
func failIntent(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPrecondition):
		fail(c, http.StatusUnprocessableEntity, ErrCodePrecondition, err.Error())
	case errors.Is(err, services.ErrBusy):
		fail(c, http.StatusConflict, ErrCodeBusy, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, domain.ErrInvalidDataURI):
		fail(c, http.StatusUnprocessableEntity, ErrCodePrecondition, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// intent runs a dispatching intent and answers 202 with the fresh snapshot.
func (h *Handlers) intent(c *gin.Context, name string, run func(ctx context.Context, s Session) error) {
	s, found := h.session(c)
	if !found {
		return
	}
	if err := run(c.Request.Context(), s); err != nil {
		failIntent(c, err)
		return
	}
	accepted(c, name, s)
}

// accepted logs the dispatch and answers 202 with the session snapshot.
func accepted(c *gin.Context, name string, s Session) {
	snap := s.Snapshot()
	middleware.LoggerFrom(c).Info().
		Str("intent", name).
		Uint64("version", snap.Version).
		Msg("intent accepted")
	ok(c, http.StatusAccepted, snap)
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Open a session
// @Description Opens an empty studio session and returns its first snapshot.
// @Tags        Sessions
// @Produce     json
// @Success     201  {object}  services.Snapshot
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.Header("Location", strings.TrimSuffix(c.FullPath(), "/")+"/"+s.ID())
	ok(c, http.StatusCreated, s.Snapshot())
}

// GetSession godoc
// @ID          getSession
// @Summary     Session snapshot
// @Description Returns the artifacts, per-operation status and enabled actions of a session.
// @Tags        Sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     200  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, s.Snapshot())
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Close a session
// @Description Forgets the session. Requests still in flight finish in the background and their results are dropped.
// @Tags        Sessions
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		failIntent(c, err)
		return
	}
	noContent(c)
}

// SetPrompt godoc
// @ID          setPrompt
// @Summary     Edit the prompt
// @Tags        Sessions
// @Accept      json
// @Produce     json
// @Param       id    path      string                   true  "Session ID"  format(uuid)
// @Param       body  body      handlers.PromptRequest  true  "Prompt"
// @Success     200   {object}  services.Snapshot
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id}/prompt [put]
func (h *Handlers) SetPrompt(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	s.SetPrompt(req.Prompt)
	ok(c, http.StatusOK, s.Snapshot())
}

// GenerateImage godoc
// @ID          generateImage
// @Summary     Generate an image from the prompt
// @Tags        Workflow
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     202  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Generation already pending"
// @Failure     422  {object}  handlers.ErrorResponse  "Prompt is empty"
// @Router      /sessions/{id}/image [post]
func (h *Handlers) GenerateImage(c *gin.Context) {
	h.intent(c, services.IntentGenerate, func(ctx context.Context, s Session) error { return s.RequestImageGeneration(ctx) })
}

// UploadImage godoc
// @ID          uploadImage
// @Summary     Upload an image
// @Description Makes the uploaded file the current image and requests its caption in the same step.
// @Tags        Workflow
// @Accept      multipart/form-data
// @Produce     json
// @Param       id     path      string  true  "Session ID"  format(uuid)
// @Param       image  formData  file    true  "Image file"
// @Success     202    {object}  services.Snapshot
// @Failure     400    {object}  handlers.ErrorResponse  "Missing or empty file"
// @Failure     404    {object}  handlers.ErrorResponse  "Session not found"
// @Failure     413    {object}  handlers.ErrorResponse  "File too large"
// @Failure     415    {object}  handlers.ErrorResponse  "Not an image"
// @Router      /sessions/{id}/upload [post]
func (h *Handlers) UploadImage(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "upload exceeds size limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"image\" is required")
		return
	}
	if fh.Size > h.opt.MaxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "upload exceeds size limit")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.opt.MaxUploadBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read upload")
		return
	}
	if int64(len(data)) > h.opt.MaxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "upload exceeds size limit")
		return
	}
	if len(data) > 0 && !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, "upload is not an image")
		return
	}

	if err := s.UploadImage(c.Request.Context(), fh.Filename, data); err != nil {
		if errors.Is(err, services.ErrEmptyImage) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		failIntent(c, err)
		return
	}
	accepted(c, services.IntentUpload, s)
}

// RequestCaption godoc
// @ID          requestCaption
// @Summary     Caption the current image
// @Tags        Workflow
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     202  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Caption already pending"
// @Failure     422  {object}  handlers.ErrorResponse  "No current image"
// @Router      /sessions/{id}/caption [post]
func (h *Handlers) RequestCaption(c *gin.Context) {
	h.intent(c, services.IntentCaption, func(ctx context.Context, s Session) error { return s.RequestCaption(ctx) })
}

// Recaption godoc
// @ID          recaption
// @Summary     Caption the current image again
// @Description Works for generated images too; their bytes are recovered from the rendered data URI.
// @Tags        Workflow
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     202  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Caption already pending"
// @Failure     422  {object}  handlers.ErrorResponse  "No current image"
// @Router      /sessions/{id}/recaption [post]
func (h *Handlers) Recaption(c *gin.Context) {
	h.intent(c, services.IntentRecaption, func(ctx context.Context, s Session) error { return s.RecaptionCurrentImage(ctx) })
}

// RequestSEO godoc
// @ID          requestSEO
// @Summary     Generate SEO metadata
// @Description Uses the current caption as alt text.
// @Tags        Workflow
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     202  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "SEO already pending"
// @Failure     422  {object}  handlers.ErrorResponse  "No image or no caption"
// @Router      /sessions/{id}/seo [post]
func (h *Handlers) RequestSEO(c *gin.Context) {
	h.intent(c, services.IntentSEO, func(ctx context.Context, s Session) error { return s.RequestSEO(ctx) })
}

// ToggleTheme godoc
// @ID          toggleTheme
// @Summary     Toggle light/dark theme
// @Tags        Sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     200  {object}  handlers.ThemeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id}/theme [post]
func (h *Handlers) ToggleTheme(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, ThemeResponse{Theme: s.ToggleTheme()})
}

// GetImage godoc
// @ID          getImage
// @Summary     Current image bytes
// @Description Serves the current image under its sniffed content type. The image ID is the ETag.
// @Tags        Sessions
// @Produce     image/png,image/jpeg,image/gif,image/webp
// @Param       id             path    string  true   "Session ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {file}    file
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found or no image"
// @Router      /sessions/{id}/image [get]
func (h *Handlers) GetImage(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	img := s.Image()
	if img == nil {
		fail(c, http.StatusNotFound, ErrCodeNoImage, "session has no image")
		return
	}

	etag := strconv.Quote(img.ID)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	if cd := mime.FormatMediaType("inline", map[string]string{"filename": img.Name}); cd != "" {
		c.Header("Content-Disposition", cd)
	}
	c.Data(http.StatusOK, img.MimeType, img.Data)
}

// Events godoc
// @ID          sessionEvents
// @Summary     Snapshot stream
// @Description Server-sent events: a "snapshot" event with the current state, then one per change. Versions only increase; intermediate snapshots may be coalesced. "heartbeat" events keep idle connections open.
// @Tags        Sessions
// @Produce     text/event-stream
// @Param       id   path      string  true  "Session ID"  format(uuid)
// @Success     200  {object}  services.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /sessions/{id}/events [get]
func (h *Handlers) Events(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}

	// Subscribers run on the orchestrator's goroutines and must not block:
	// keep only the newest snapshot and wake the writer.
	var (
		mu     sync.Mutex
		latest *services.Snapshot
	)
	wake := make(chan struct{}, 1)
	cancel := s.Subscribe(func(snap services.Snapshot) {
		mu.Lock()
		if latest == nil || snap.Version > latest.Version {
			latest = &snap
		}
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sent := s.Snapshot()
	c.SSEvent("snapshot", sent)
	c.Writer.Flush()

	ctx := c.Request.Context()
	tick := time.NewTicker(h.opt.Heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.opt.Closing:
			c.SSEvent("closed", gin.H{"session_id": s.ID(), "reason": "shutdown"})
			c.Writer.Flush()
			return
		case <-tick.C:
			if _, err := h.sessions.Get(s.ID()); err != nil {
				c.SSEvent("closed", gin.H{"session_id": s.ID(), "reason": "deleted"})
				c.Writer.Flush()
				return
			}
			c.SSEvent("heartbeat", sent.Version)
			c.Writer.Flush()
		case <-wake:
			mu.Lock()
			next := latest
			latest = nil
			mu.Unlock()
			if next == nil || next.Version <= sent.Version {
				continue
			}
			sent = *next
			c.SSEvent("snapshot", sent)
			c.Writer.Flush()
		}
	}
}

// ListOperations godoc
// @ID          listOperations
// @Summary     Operation journal (paginated)
// @Description Newest first. Only available when the journal is enabled.
// @Tags        Sessions
// @Produce     json
// @Param       id         path   string  true   "Session ID"      format(uuid)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListOperationsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     501  {object}  handlers.ErrorResponse  "Journal disabled"
// @Router      /sessions/{id}/operations [get]
func (h *Handlers) ListOperations(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	if h.ops == nil {
		fail(c, http.StatusNotImplemented, ErrCodeJournalOff, "operation journal is disabled")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.ops.ListPage(c.Request.Context(), s.ID(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListOperationsResponse{
		Operations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
