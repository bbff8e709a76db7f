package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"kern/internal/htmx"
)

// Client-side events announced through HX-Trigger. app.js and the
// hx-trigger attributes in the templates listen for these names.
const (
	EventTransactionsChanged = "transactions:changed"
	EventDocumentsChanged    = "documents:changed"
	EventFormReset           = "form:reset"
	EventNotification        = "show-notification"
)

// NotificationType selects the toast style.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int64            `json:"duration"`
}

// HTMXResponseBuilder assembles a fragment response: status, HX headers,
// triggered events and an HTML body.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

// NewHTMXResponse starts a 200 response with no body.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

// Status overrides the response code.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger announces event with an optional payload. A nil payload is
// sent as an empty object.
func (b *HTMXResponseBuilder) Trigger(event string, payload any) *HTMXResponseBuilder {
	if payload == nil {
		payload = struct{}{}
	}
	b.events[event] = payload
	return b
}

func (b *HTMXResponseBuilder) TriggerTransactionsChanged() *HTMXResponseBuilder {
	return b.Trigger(EventTransactionsChanged, nil)
}

func (b *HTMXResponseBuilder) TriggerDocumentsChanged() *HTMXResponseBuilder {
	return b.Trigger(EventDocumentsChanged, nil)
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, nil)
}

// TriggerNotification shows a toast for d.
func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, d time.Duration) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, notification{
		Type:     kind,
		Message:  message,
		Duration: d.Milliseconds(),
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3*time.Second)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5*time.Second)
}

// Header sets an arbitrary response header.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Redirect makes htmx navigate the whole page to target.
func (b *HTMXResponseBuilder) Redirect(target string) *HTMXResponseBuilder {
	return b.Header(htmx.HeaderRedirect, target)
}

// BodyHTML sets an HTML body.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = html
	return b
}

// Write flushes the response. Events that fail to encode are dropped
// rather than failing the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if len(b.events) > 0 {
		if raw, err := json.Marshal(b.events); err == nil {
			dst.Set(htmx.HeaderTrigger, string(raw))
		}
	}

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message as an alert fragment with status.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	html := `<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`
	return NewHTMXResponse().Status(status).BodyHTML([]byte(html))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// BadGatewayError reports a failed backend call.
func BadGatewayError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
