// Package services – Orchestrator
//
// This file implements the workflow orchestrator: the state machine that
// decides which remote operations may run given the current artifacts,
// dispatches them, and reconciles their responses into the artifact store.
//
// Every transition runs to completion under the orchestrator mutex. Remote
// calls run on their own goroutines and re-enter through settle, which
// applies a response only when the ticket it was issued with is still the
// current one for its kind and was issued against the current image.
// Anything else is discarded.
//
// Observability: each dispatched request is a span; rejected intents, stale
// responses, and in-flight requests are exported as Prometheus metrics.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-content-studio/internal/domain"
	"github.com/tbourn/go-content-studio/internal/remote"
	"github.com/tbourn/go-content-studio/internal/store"
)

// Intent names, as used in errors, logs, and metric labels.
const (
	IntentGenerate  = "generate"
	IntentUpload    = "upload"
	IntentCaption   = "caption"
	IntentRecaption = "recaption"
	IntentSEO       = "seo"
)

// Generated images arrive as base64 PNG and are sent onwards under this name.
const (
	generatedName = "generated.png"
	generatedMime = "image/png"
)

// RemoteClient is the backend contract the orchestrator drives.
// *remote.Client satisfies it.
type RemoteClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	CaptionImage(ctx context.Context, img remote.Upload) (remote.CaptionResult, error)
	GenerateSEO(ctx context.Context, img remote.Upload, altText string) (map[string]string, error)
}

// Ticket identifies one dispatched request. ImageID is the image a caption
// or SEO request was issued against; it is empty for image generation.
type Ticket struct {
	ID      string
	Kind    domain.OpKind
	ImageID string
}

// OpState is the observable state of one operation kind.
type OpState struct {
	Status domain.OpStatus `json:"status"`
	Busy   bool            `json:"busy"`
	Error  string          `json:"error,omitempty"`
}

// Actions reports which intents would currently be accepted.
type Actions struct {
	Generate bool `json:"generate"`
	Upload   bool `json:"upload"`
	Caption  bool `json:"caption"`
	SEO      bool `json:"seo"`
}

// ImageView describes the current image without its raw bytes.
type ImageView struct {
	ID       string        `json:"id"`
	Origin   domain.Origin `json:"origin"`
	Name     string        `json:"name"`
	MimeType string        `json:"mime_type"`
	Size     int           `json:"size"`
	URI      string        `json:"uri"`
}

// Snapshot is a consistent copy of everything the presentation layer renders.
// Version increases with every transition; subscribers may receive snapshots
// out of order and should drop any older than the last one they rendered.
type Snapshot struct {
	SessionID  string                    `json:"session_id"`
	Version    uint64                    `json:"version"`
	Prompt     string                    `json:"prompt"`
	Image      *ImageView                `json:"image,omitempty"`
	Caption    string                    `json:"caption"`
	Posts      map[string]string         `json:"posts"`
	SEO        map[string]string         `json:"seo,omitempty"`
	Theme      domain.Theme              `json:"theme"`
	Operations map[domain.OpKind]OpState `json:"operations"`
	Actions    Actions                   `json:"actions"`
}

type opState struct {
	status  domain.OpStatus
	lastErr string
	current *Ticket
}

// Orchestrator owns one session's workflow. It is safe for concurrent use.
type Orchestrator struct {
	id      string
	remote  RemoteClient
	journal Recorder
	log     zerolog.Logger

	mu      sync.Mutex
	store   *store.Store
	ops     map[domain.OpKind]*opState
	version uint64
	subs    map[uint64]func(Snapshot)
	nextSub uint64
	closed  bool

	inflight sync.WaitGroup
}

// NewOrchestrator returns an orchestrator with an empty store. rec may be nil.
func NewOrchestrator(id string, rc RemoteClient, rec Recorder) *Orchestrator {
	o := &Orchestrator{
		id:      id,
		remote:  rc,
		journal: rec,
		log:     log.With().Str("session_id", id).Logger(),
		store:   store.New(),
		ops:     make(map[domain.OpKind]*opState, len(domain.OpKinds)),
		subs:    make(map[uint64]func(Snapshot)),
	}
	for _, k := range domain.OpKinds {
		o.ops[k] = &opState{status: domain.StatusIdle}
	}
	return o
}

// ID returns the session ID.
func (o *Orchestrator) ID() string { return o.id }

// SetPrompt stores the prompt in NFC form.
func (o *Orchestrator) SetPrompt(text string) {
	text = norm.NFC.String(text)

	o.mu.Lock()
	o.store.SetPrompt(text)
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
}

// RequestImageGeneration dispatches generate-image for the current prompt.
// A successful response establishes a new generated image even if another
// image was uploaded in the meantime.
func (o *Orchestrator) RequestImageGeneration(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", IntentGenerate, ErrSessionNotFound)
	}
	prompt := o.store.Prompt()
	if strings.TrimSpace(prompt) == "" {
		o.mu.Unlock()
		return o.reject(IntentGenerate, &PreconditionError{Intent: IntentGenerate, Err: ErrEmptyPrompt})
	}
	if o.busyLocked(domain.OpImage) {
		o.mu.Unlock()
		return o.reject(IntentGenerate, fmt.Errorf("%s: %w", IntentGenerate, ErrBusy))
	}
	t := o.beginLocked(domain.OpImage, "")
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	o.dispatch(ctx, t, func(ctx context.Context) (func(), error) {
		data, err := o.remote.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, err
		}
		img := &domain.Image{
			ID:       uuid.NewString(),
			Origin:   domain.OriginGenerated,
			Name:     generatedName,
			MimeType: generatedMime,
			Data:     data,
			URI:      domain.DataURI(generatedMime, data),
		}
		return func() { o.establishLocked(img) }, nil
	})
	return nil
}

// UploadImage establishes an uploaded image and, in the same transition,
// dispatches a caption request for it. Any caption or SEO request still
// running for the previous image is superseded.
func (o *Orchestrator) UploadImage(ctx context.Context, name string, data []byte) error {
	if len(data) == 0 {
		return o.reject(IntentUpload, &PreconditionError{Intent: IntentUpload, Err: ErrEmptyImage})
	}
	mt := mimetype.Detect(data)
	if name == "" {
		name = "upload" + mt.Extension()
	}
	img := &domain.Image{
		ID:       uuid.NewString(),
		Origin:   domain.OriginUploaded,
		Name:     name,
		MimeType: mt.String(),
		Data:     data,
		URI:      domain.DataURI(mt.String(), data),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", IntentUpload, ErrSessionNotFound)
	}
	o.establishLocked(img)
	t := o.beginLocked(domain.OpCaption, img.ID)
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	o.dispatch(ctx, t, o.captionCall(uploadOf(img)))
	return nil
}

// RequestCaption dispatches caption-image with the current image's bytes.
func (o *Orchestrator) RequestCaption(ctx context.Context) error {
	return o.requestCaption(ctx, IntentCaption, func(img *domain.Image) (remote.Upload, error) {
		return uploadOf(img), nil
	})
}

// RecaptionCurrentImage captions the current image again, re-deriving the
// raw bytes from its rendered data URI when it was generated.
func (o *Orchestrator) RecaptionCurrentImage(ctx context.Context) error {
	return o.requestCaption(ctx, IntentRecaption, rawUpload)
}

func (o *Orchestrator) requestCaption(ctx context.Context, intent string, source func(*domain.Image) (remote.Upload, error)) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", intent, ErrSessionNotFound)
	}
	img := o.store.Image()
	if img == nil {
		o.mu.Unlock()
		return o.reject(intent, &PreconditionError{Intent: intent, Err: ErrNoImage})
	}
	if o.busyLocked(domain.OpCaption) {
		o.mu.Unlock()
		return o.reject(intent, fmt.Errorf("%s: %w", intent, ErrBusy))
	}
	up, err := source(img)
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", intent, err)
	}
	t := o.beginLocked(domain.OpCaption, img.ID)
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	o.dispatch(ctx, t, o.captionCall(up))
	return nil
}

// RequestSEO dispatches generate-seo for the current image, using its
// caption as alt text.
func (o *Orchestrator) RequestSEO(ctx context.Context) error {
	o.mu.Lock()
	img := o.store.Image()
	caption := o.store.Caption()
	switch {
	case o.closed:
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", IntentSEO, ErrSessionNotFound)
	case img == nil:
		o.mu.Unlock()
		return o.reject(IntentSEO, &PreconditionError{Intent: IntentSEO, Err: ErrNoImage})
	case caption == "":
		o.mu.Unlock()
		return o.reject(IntentSEO, &PreconditionError{Intent: IntentSEO, Err: ErrNoCaption})
	case o.busyLocked(domain.OpSEO):
		o.mu.Unlock()
		return o.reject(IntentSEO, fmt.Errorf("%s: %w", IntentSEO, ErrBusy))
	}
	t := o.beginLocked(domain.OpSEO, img.ID)
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	up := uploadOf(img)
	o.dispatch(ctx, t, func(ctx context.Context) (func(), error) {
		meta, err := o.remote.GenerateSEO(ctx, up, caption)
		if err != nil {
			return nil, err
		}
		return func() { o.store.SetSEO(meta) }, nil
	})
	return nil
}

// ToggleTheme flips the cosmetic theme and returns the new one.
func (o *Orchestrator) ToggleTheme() domain.Theme {
	o.mu.Lock()
	th := o.store.Theme().Toggle()
	o.store.SetTheme(th)
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	return th
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Image returns a copy of the current image, or nil.
func (o *Orchestrator) Image() *domain.Image {
	return o.store.Image()
}

// Subscribe registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that made the transition and must not block.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) (cancel func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Wait blocks until every dispatched request has resolved, including
// superseded ones.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Close stops the orchestrator from dispatching. Intents that would reach
// the backend fail with ErrSessionNotFound afterwards, so a Wait that
// follows Close covers every request the session will ever make.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

// ---------- transitions (callers hold o.mu) ----------

func (o *Orchestrator) busyLocked(kind domain.OpKind) bool {
	return o.ops[kind].status == domain.StatusPending
}

// beginLocked issues a ticket and marks kind pending. The in-flight count is
// taken here so Wait cannot miss a request about to be dispatched.
func (o *Orchestrator) beginLocked(kind domain.OpKind, imageID string) Ticket {
	t := Ticket{ID: uuid.NewString(), Kind: kind, ImageID: imageID}
	st := o.ops[kind]
	st.status = domain.StatusPending
	st.lastErr = ""
	st.current = &t

	o.inflight.Add(1)
	workflowPending.WithLabelValues(string(kind)).Inc()
	return t
}

// establishLocked makes img current. The store clears caption, posts, and
// SEO; outstanding caption and SEO tickets stop being current.
func (o *Orchestrator) establishLocked(img *domain.Image) {
	o.store.SetImage(img)
	o.supersedeLocked(domain.OpCaption)
	o.supersedeLocked(domain.OpSEO)
}

func (o *Orchestrator) supersedeLocked(kind domain.OpKind) {
	st := o.ops[kind]
	st.current = nil
	st.status = domain.StatusIdle
	st.lastErr = ""
}

func (o *Orchestrator) commitLocked() Snapshot {
	o.version++
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	a := o.store.Snapshot()
	s := Snapshot{
		SessionID:  o.id,
		Version:    o.version,
		Prompt:     a.Prompt,
		Caption:    a.Caption,
		Posts:      a.Posts,
		SEO:        a.SEO,
		Theme:      a.Theme,
		Operations: make(map[domain.OpKind]OpState, len(o.ops)),
	}
	if a.Image != nil {
		s.Image = &ImageView{
			ID:       a.Image.ID,
			Origin:   a.Image.Origin,
			Name:     a.Image.Name,
			MimeType: a.Image.MimeType,
			Size:     len(a.Image.Data),
			URI:      a.Image.URI,
		}
	}
	for k, st := range o.ops {
		s.Operations[k] = OpState{
			Status: st.status,
			Busy:   st.status == domain.StatusPending,
			Error:  st.lastErr,
		}
	}
	s.Actions = Actions{
		Generate: strings.TrimSpace(a.Prompt) != "" && !o.busyLocked(domain.OpImage),
		Upload:   true,
		Caption:  a.Image != nil && !o.busyLocked(domain.OpCaption),
		SEO:      a.Image != nil && a.Caption != "" && !o.busyLocked(domain.OpSEO),
	}
	return s
}

// ---------- dispatch and settle ----------

// dispatch runs call on its own goroutine, detached from the caller's
// cancellation. The returned apply func runs under o.mu only if the ticket
// is still current when the response arrives.
func (o *Orchestrator) dispatch(ctx context.Context, t Ticket, call func(context.Context) (func(), error)) {
	ctx = context.WithoutCancel(ctx)

	if o.journal != nil {
		if err := o.journal.Started(ctx, o.id, t); err != nil {
			o.log.Warn().Err(err).Str("ticket", t.ID).Msg("journal write failed")
		}
	}
	o.log.Debug().
		Str("operation", string(t.Kind)).
		Str("ticket", t.ID).
		Str("image_id", t.ImageID).
		Msg("request dispatched")

	go func() {
		defer o.inflight.Done()
		defer workflowPending.WithLabelValues(string(t.Kind)).Dec()

		ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "workflow."+string(t.Kind),
			trace.WithAttributes(
				attribute.String("session.id", o.id),
				attribute.String("workflow.ticket", t.ID),
				attribute.String("workflow.image_id", t.ImageID),
			),
		)
		defer span.End()

		apply, err := call(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "request failed")
		}
		if stale := o.settle(t, apply, err); stale {
			span.SetAttributes(attribute.Bool("workflow.discarded", true))
			o.finish(ctx, t, domain.JournalDiscarded, err)
			return
		}
		status := domain.JournalSucceeded
		if err != nil {
			status = domain.JournalFailed
		}
		o.finish(ctx, t, status, err)
	}()
}

// settle applies a response or records its failure. It reports true when
// the response was discarded because its ticket was superseded.
func (o *Orchestrator) settle(t Ticket, apply func(), err error) (stale bool) {
	o.mu.Lock()
	st := o.ops[t.Kind]
	owned := st.current != nil && st.current.ID == t.ID
	fresh := t.Kind == domain.OpImage || t.ImageID == o.store.ImageID()

	if !owned || !fresh {
		var snap *Snapshot
		if owned {
			o.supersedeLocked(t.Kind)
			s := o.commitLocked()
			snap = &s
		}
		o.mu.Unlock()
		if snap != nil {
			o.notify(*snap)
		}
		workflowStale.WithLabelValues(string(t.Kind)).Inc()
		o.log.Info().
			Str("operation", string(t.Kind)).
			Str("ticket", t.ID).
			Str("image_id", t.ImageID).
			Msg("stale response discarded")
		return true
	}

	st.current = nil
	if err != nil {
		st.status = domain.StatusFailed
		st.lastErr = err.Error()
	} else {
		apply()
		st.status = domain.StatusSucceeded
	}
	snap := o.commitLocked()
	o.mu.Unlock()

	o.notify(snap)
	if err != nil {
		o.log.Warn().Err(err).
			Str("operation", string(t.Kind)).
			Str("ticket", t.ID).
			Bool("network", isNetworkError(err)).
			Msg("request failed")
	} else {
		o.log.Info().
			Str("operation", string(t.Kind)).
			Str("ticket", t.ID).
			Msg("request succeeded")
	}
	return false
}

func (o *Orchestrator) captionCall(up remote.Upload) func(context.Context) (func(), error) {
	return func(ctx context.Context) (func(), error) {
		res, err := o.remote.CaptionImage(ctx, up)
		if err != nil {
			return nil, err
		}
		return func() {
			o.store.SetCaption(res.Caption, res.Posts)
			// SEO was derived from the previous caption.
			o.supersedeLocked(domain.OpSEO)
		}, nil
	}
}

func (o *Orchestrator) finish(ctx context.Context, t Ticket, status string, cause error) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Finished(ctx, t, status, cause); err != nil {
		o.log.Warn().Err(err).Str("ticket", t.ID).Msg("journal write failed")
	}
}

func (o *Orchestrator) reject(intent string, err error) error {
	reason := reasonPrecondition
	if errors.Is(err, ErrBusy) {
		reason = reasonBusy
	}
	workflowRejections.WithLabelValues(intent, reason).Inc()
	o.log.Debug().Err(err).Str("intent", intent).Str("reason", reason).Msg("intent rejected")
	return err
}

func (o *Orchestrator) notify(s Snapshot) {
	o.mu.Lock()
	fns := make([]func(Snapshot), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// ---------- helpers ----------

func uploadOf(img *domain.Image) remote.Upload {
	return remote.Upload{Name: img.Name, MimeType: img.MimeType, Data: img.Data}
}

// rawUpload returns the bytes behind the image's rendered form. Generated
// images are decoded from their data URI; uploads keep their original bytes.
func rawUpload(img *domain.Image) (remote.Upload, error) {
	if img.Origin != domain.OriginGenerated || img.URI == "" {
		return uploadOf(img), nil
	}
	mime, data, err := domain.DecodeDataURI(img.URI)
	if err != nil {
		return remote.Upload{}, err
	}
	return remote.Upload{Name: img.Name, MimeType: mime, Data: data}, nil
}

func isNetworkError(err error) bool {
	var ne *remote.NetworkError
	return errors.As(err, &ne)
}
