package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// KindTransport means no response reached the client.
	KindTransport Kind = "transport"
	// KindValidation is a 4xx rejection of the request payload.
	KindValidation Kind = "validation"
	// KindAuthorization is a 401/403: missing login or insufficient role.
	KindAuthorization Kind = "authorization"
	// KindNotFound is a 404/410 for the addressed resource.
	KindNotFound Kind = "not_found"
	// KindServer is a 5xx or an unreadable success body.
	KindServer Kind = "server"
)

// Error is returned by every Client method that fails.
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	Code   string
	// Message is the human readable summary reported by the server.
	Message string
	// FieldErrors maps payload fields to their server-side messages.
	FieldErrors    map[string][]string
	NonFieldErrors []string
	Err            error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d", e.Status)
	}
	b.WriteString(": ")
	b.WriteString(e.Summary())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Summary returns a one-line message suitable for a toast or CLI error.
func (e *Error) Summary() string {
	parts := make([]string, 0, 1+len(e.NonFieldErrors)+len(e.FieldErrors))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	parts = append(parts, e.NonFieldErrors...)

	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.FieldErrors[f], " "))
	}

	if len(parts) == 0 {
		return defaultMessage(e.Kind)
	}
	return strings.Join(parts, "; ")
}

func defaultMessage(k Kind) string {
	switch k {
	case KindTransport:
		return "could not reach the review service"
	case KindValidation:
		return "request rejected"
	case KindAuthorization:
		return "not authorized"
	case KindNotFound:
		return "not found"
	default:
		return "server error"
	}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found gateway error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err is a server-side validation rejection.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsAuthorization reports whether err is a 401/403.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsTransport reports whether err is a connectivity failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsClientError reports whether the server rejected the request (any 4xx).
func IsClientError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound || status == http.StatusGone:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// reservedErrorKeys are error body keys that are not payload fields.
var reservedErrorKeys = map[string]bool{
	"message":          true,
	"detail":           true,
	"error":            true,
	"code":             true,
	"status":           true,
	"non_field_errors": true,
	"errors":           true,
}

func newHTTPError(method, path string, status int, body []byte) *Error {
	e := &Error{
		Kind:   kindForStatus(status),
		Method: method,
		Path:   path,
		Status: status,
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			e.Message = text
		}
		return e
	}

	e.Message = firstString(raw, "message", "detail", "error")
	e.Code = firstString(raw, "code")
	e.NonFieldErrors = stringList(raw["non_field_errors"])

	fields := raw
	if nested, ok := raw["errors"]; ok {
		var m map[string]json.RawMessage
		if json.Unmarshal(nested, &m) == nil {
			fields = m
		}
	}
	for key, val := range fields {
		if reservedErrorKeys[key] {
			continue
		}
		if msgs := stringList(val); len(msgs) > 0 {
			if e.FieldErrors == nil {
				e.FieldErrors = make(map[string][]string)
			}
			e.FieldErrors[key] = msgs
		}
	}

	return e
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			return s
		}
		if list := stringList(v); len(list) > 0 {
			return list[0]
		}
	}
	return ""
}

// stringList accepts "msg" or ["msg", ...].
func stringList(v json.RawMessage) []string {
	if len(v) == 0 {
		return nil
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(v, &list) == nil {
		return list
	}
	return nil
}
