package devserver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hay-kot/criterio"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Context wraps echo.Context with a request-scoped logger and the
// authenticated username.
type Context struct {
	echo.Context
	L    zerolog.Logger
	User string
}

// HandlerFunc is a handler that receives the wrapped context.
type HandlerFunc func(c Context) error

func (s *Server) wrap(h HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		user, _ := c.Get(userKey).(string)
		return h(Context{
			Context: c,
			L:       s.log.With().Str("request_id", rid).Logger(),
			User:    user,
		})
	}
}

// Error sends {"detail": message} with status.
func (c Context) Error(status int, message string) error {
	return c.JSON(status, map[string]string{"detail": message})
}

func (c Context) BadRequest(message string) error {
	return c.Error(http.StatusBadRequest, message)
}

func (c Context) NotFound(message string) error {
	return c.Error(http.StatusNotFound, message)
}

func (c Context) Conflict(message string) error {
	return c.Error(http.StatusConflict, message)
}

// Invalid reports validation failures as {"field": ["message", ...]}.
// Errors that are not field errors become a non_field_errors entry.
func (c Context) Invalid(err error) error {
	body := map[string][]string{}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			body[fe.Field] = append(body[fe.Field], fe.Err.Error())
		}
	} else {
		body["non_field_errors"] = []string{err.Error()}
	}
	return c.JSON(http.StatusBadRequest, body)
}

// OK sends data with a strong ETag. A matching If-None-Match gets 304.
func (c Context) OK(data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(body)
	etag := strconv.Quote(hex.EncodeToString(sum[:16]))
	c.Response().Header().Set("ETag", etag)
	if c.Request().Method == http.MethodGet && c.Request().Header.Get("If-None-Match") == etag {
		return c.Context.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

func (c Context) Created(data any) error {
	return c.JSON(http.StatusCreated, data)
}

func (c Context) NoContent() error {
	return c.Context.NoContent(http.StatusNoContent)
}

// ParamID parses a positive int64 path parameter.
func (c Context) ParamID(name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// Decode reads a JSON body. An empty body leaves v untouched.
func (c Context) Decode(v any) error {
	req := c.Request()
	if req.Body == nil {
		return nil
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(req.Body); err != nil {
		return err
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return nil
	}
	return json.Unmarshal(buf.Bytes(), v)
}
