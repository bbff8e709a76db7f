package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Operation  string
	StatusCode int
	// Detail is the backend's "detail" message when it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func newStatusError(op string, resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &StatusError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Detail:     detailOf(raw),
	}
}

// detailOf extracts FastAPI's "detail", which is either a string or a
// list of validation errors.
func detailOf(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(body.Detail, &s) == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body.Detail, &items) == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return string(body.Detail)
}
