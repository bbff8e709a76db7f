package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"kern/internal/auth"
	"kern/internal/log"
	"kern/internal/metrics"
)

// Request describes one backend call.
type Request struct {
	// Operation names the call for logs and metrics, e.g. "transactions.list".
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      Body
}

// Body encodes a request payload.
type Body interface {
	Encode() (io.Reader, string, error)
}

type jsonBody struct{ v any }

// JSONBody sends v as application/json.
func JSONBody(v any) Body { return jsonBody{v} }

func (b jsonBody) Encode() (io.Reader, string, error) {
	raw, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

type multipartBody struct {
	field       string
	filename    string
	contentType string
	r           io.Reader
}

// MultipartFile sends r as a single file part named field.
func MultipartFile(field, filename, contentType string, r io.Reader) Body {
	return multipartBody{field: field, filename: filename, contentType: contentType, r: r}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (b multipartBody) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(b.field), quoteEscaper.Replace(b.filename)))
	ct := b.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, b.r); err != nil {
		return nil, "", fmt.Errorf("copy multipart file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// SessionSource is the part of auth.Provider the transport needs.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*auth.Session, error)
}

// Transport sends requests to the backend API, attaching the caller's
// access token. It resolves the session on every call and never caches
// credentials.
type Transport struct {
	baseURL    string
	sessions   SessionSource
	httpClient *http.Client
	logger     *log.Logger
}

// NewTransport creates a transport for the API at baseURL.
func NewTransport(baseURL string, sessions SessionSource, httpClient *http.Client, logger *log.Logger) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessions:   sessions,
		httpClient: httpClient,
		logger:     logger.WithComponent(log.ComponentAPI),
	}
}

// Do sends req. Non-2xx responses are returned as-is; the caller owns the body.
func (t *Transport) Do(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := t.build(ctx, req)
	if err != nil {
		return nil, err
	}
	t.authorize(ctx, httpReq, req.Operation)

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	metrics.APIDuration.WithLabelValues(req.Operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(req.Operation, "transport_error").Inc()
		return nil, fmt.Errorf("%s: %w", req.Operation, err)
	}

	outcome := "ok"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "status_error"
	}
	metrics.APIRequests.WithLabelValues(req.Operation, outcome).Inc()

	t.logger.DebugContext(ctx, "API call completed",
		log.FieldOperation, req.Operation,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())
	return resp, nil
}

func (t *Transport) build(ctx context.Context, req Request) (*http.Request, error) {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body.Encode()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.Operation, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", req.Operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// authorize attaches the bearer credential when a session exists. A failed
// session lookup is logged and the request goes out unauthenticated; the
// backend then answers 401 like for any anonymous caller.
func (t *Transport) authorize(ctx context.Context, req *http.Request, op string) {
	session, err := t.sessions.CurrentSession(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "Session lookup failed, sending without credential",
			log.FieldOperation, op,
			log.FieldError, err)
		return
	}
	if session == nil || session.AccessToken == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
}
