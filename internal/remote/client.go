// Package remote wraps the three AI backend calls (generate-image,
// caption-image, generate-seo) as plain request/response functions.
//
// The client knows the wire formats (JSON for image generation, multipart for
// captioning and SEO) and how to decode responses. It never touches workflow
// state: results go back to the caller, which decides how to apply them.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-content-studio/internal/domain"
)

// Backend routes, relative to the base URL.
const (
	pathGenerateImage = "/generate-image"
	pathCaptionImage  = "/caption-image"
	pathGenerateSEO   = "/generate-seo"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 64 << 20

// Upload is an image sent as a multipart file part.
type Upload struct {
	Name     string // file name; the SEO backend derives its file name from it
	MimeType string // sniffed from Data when empty
	Data     []byte
}

// CaptionResult is the caption and the social posts produced with it.
type CaptionResult struct {
	Caption string
	Posts   map[string]string
}

// Client calls the AI backend over HTTP. It is safe for concurrent use.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Timeout bounds each call when > 0. Zero leaves calls unbounded.
	Timeout time.Duration
}

// NewClient returns a client for baseURL. A nil httpClient uses a fresh
// http.Client with no overall timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Timeout: timeout,
	}
}

// GenerateImage asks the backend to render prompt and returns the PNG bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	var out struct {
		Image string `json:"image"`
		Error string `json:"error"`
	}
	status, err := c.do(ctx, domain.OpImage, pathGenerateImage, "application/json", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Image == "" {
		msg := "response missing image"
		if out.Error != "" {
			msg = out.Error
		}
		return nil, &RemoteError{Op: domain.OpImage, StatusCode: status, Message: msg}
	}
	img, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil || len(img) == 0 {
		return nil, &RemoteError{Op: domain.OpImage, StatusCode: status, Message: "image is not valid base64"}
	}
	return img, nil
}

// CaptionImage uploads img and returns its caption with per-platform posts.
func (c *Client) CaptionImage(ctx context.Context, img Upload) (CaptionResult, error) {
	body, contentType, err := encodeMultipart(img, nil)
	if err != nil {
		return CaptionResult{}, err
	}

	var out struct {
		Caption *string           `json:"caption"`
		Posts   map[string]string `json:"posts"`
	}
	status, err := c.do(ctx, domain.OpCaption, pathCaptionImage, contentType, body, &out)
	if err != nil {
		return CaptionResult{}, err
	}
	if out.Caption == nil || strings.TrimSpace(*out.Caption) == "" {
		return CaptionResult{}, &RemoteError{Op: domain.OpCaption, StatusCode: status, Message: "response missing caption"}
	}
	if out.Posts == nil {
		out.Posts = map[string]string{}
	}
	return CaptionResult{Caption: *out.Caption, Posts: out.Posts}, nil
}

// GenerateSEO uploads img with altText and returns the backend's metadata
// fields. String values are returned as-is; other JSON values are returned
// as their JSON text.
func (c *Client) GenerateSEO(ctx context.Context, img Upload, altText string) (map[string]string, error) {
	body, contentType, err := encodeMultipart(img, map[string]string{"alt_text": altText})
	if err != nil {
		return nil, err
	}

	var out map[string]json.RawMessage
	status, err := c.do(ctx, domain.OpSEO, pathGenerateSEO, contentType, body, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &RemoteError{Op: domain.OpSEO, StatusCode: status, Message: "response has no metadata"}
	}
	if raw, ok := out["error"]; ok && len(out) == 1 {
		return nil, &RemoteError{Op: domain.OpSEO, StatusCode: status, Message: render(raw)}
	}

	meta := make(map[string]string, len(out))
	for k, v := range out {
		meta[k] = render(v)
	}
	return meta, nil
}

// do posts body and decodes a 2xx JSON response into out. It returns the
// HTTP status so callers can attach it to payload errors.
func (c *Client) do(ctx context.Context, op domain.OpKind, path, contentType string, body []byte, out any) (int, error) {
	ctx, span := otel.Tracer("remote/Client").Start(ctx, string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("workflow.operation", string(op)),
			attribute.Int("http.request.body.size", len(body)),
		),
	)
	defer span.End()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	status, err := c.roundTrip(ctx, op, path, contentType, body, out)
	remoteLat.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeRemote
		var ne *NetworkError
		if errors.As(err, &ne) {
			outcome = outcomeNetwork
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	remoteReqs.WithLabelValues(string(op), outcome).Inc()
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, op domain.OpKind, path, contentType string, body []byte, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return resp.StatusCode, nil
}

// errorMessage extracts {"error": "..."} from a failure body, falling back
// to the HTTP status line.
func errorMessage(raw []byte, fallback string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}

// render returns JSON strings unquoted and any other value as JSON text.
func render(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes img as the "image" file part followed by fields.
func encodeMultipart(img Upload, fields map[string]string) ([]byte, string, error) {
	name := img.Name
	if name == "" {
		name = "image"
	}
	ctype := img.MimeType
	if ctype == "" {
		ctype = mimetype.Detect(img.Data).String()
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", ctype)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
