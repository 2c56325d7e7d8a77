package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	tests := map[int]Kind{
		http.StatusBadRequest:          KindValidation,
		http.StatusUnprocessableEntity: KindValidation,
		http.StatusConflict:            KindValidation,
		http.StatusUnauthorized:        KindAuthorization,
		http.StatusForbidden:           KindAuthorization,
		http.StatusNotFound:            KindNotFound,
		http.StatusGone:                KindNotFound,
		http.StatusInternalServerError: KindServer,
		http.StatusBadGateway:          KindServer,
	}
	for status, want := range tests {
		assert.Equal(t, want, kindForStatus(status), "status %d", status)
	}
}

func TestNewHTTPError_FieldErrors(t *testing.T) {
	body := `{"name": ["This field is required."], "base_url": "Enter a valid URL.", "non_field_errors": ["Duplicate integration."]}`
	e := newHTTPError(http.MethodPost, "/workspace/1/integrations/create/", http.StatusBadRequest, []byte(body))

	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, []string{"This field is required."}, e.FieldErrors["name"])
	assert.Equal(t, []string{"Enter a valid URL."}, e.FieldErrors["base_url"])
	assert.Equal(t, []string{"Duplicate integration."}, e.NonFieldErrors)
	assert.Equal(t, "Duplicate integration.; base_url: Enter a valid URL.; name: This field is required.", e.Summary())
}

func TestNewHTTPError_NestedErrors(t *testing.T) {
	body := `{"message": "invalid", "code": "bad_input", "errors": {"model": ["too long"]}}`
	e := newHTTPError(http.MethodPatch, "/llm/integrations/2/update/", http.StatusUnprocessableEntity, []byte(body))

	assert.Equal(t, "invalid", e.Message)
	assert.Equal(t, "bad_input", e.Code)
	assert.Equal(t, []string{"too long"}, e.FieldErrors["model"])
}

func TestNewHTTPError_Detail(t *testing.T) {
	e := newHTTPError(http.MethodGet, "/workspace/9/update/", http.StatusNotFound, []byte(`{"detail": "Not found."}`))
	assert.True(t, IsNotFound(e))
	assert.Equal(t, "Not found.", e.Summary())
	assert.Empty(t, e.FieldErrors)
}

func TestNewHTTPError_PlainAndHTMLBodies(t *testing.T) {
	plain := newHTTPError(http.MethodGet, "/x/", http.StatusBadGateway, []byte("upstream unavailable"))
	assert.Equal(t, "upstream unavailable", plain.Message)

	html := newHTTPError(http.MethodGet, "/x/", http.StatusInternalServerError, []byte("<html><body>boom</body></html>"))
	assert.Empty(t, html.Message)
	assert.Equal(t, "server error", html.Summary())
}

func TestError_Wrapping(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	e := &Error{Kind: KindTransport, Method: "GET", Path: "/workspace/list/", Err: inner}
	wrapped := fmt.Errorf("load workspaces: %w", e)

	assert.True(t, IsTransport(wrapped))
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, "GET /workspace/list/: could not reach the review service: dial tcp: refused", e.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(&Error{Status: 409}))
	assert.True(t, IsClientError(&Error{Status: 404}))
	assert.False(t, IsClientError(&Error{Status: 500}))
	assert.False(t, IsClientError(&Error{Kind: KindTransport}))
	require.False(t, IsClientError(nil))
}
