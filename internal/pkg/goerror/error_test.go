package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
		name   string
	}{
		{CodeInternal, http.StatusInternalServerError, "ERROR_CODE_INTERNAL"},
		{CodeInvalidFormat, http.StatusBadRequest, "ERROR_CODE_INVALID_FORMAT"},
		{CodeInvalidInput, http.StatusUnprocessableEntity, "ERROR_CODE_INVALID_INPUT"},
		{CodeNotFound, http.StatusNotFound, "ERROR_CODE_NOT_FOUND"},
		{CodeConflict, http.StatusConflict, "ERROR_CODE_CONFLICT"},
		{CodeTooManyRequest, http.StatusTooManyRequests, "ERROR_CODE_TOO_MANY_REQUESTS"},
		{CodeUnauthorized, http.StatusUnauthorized, "ERROR_CODE_UNAUTHORIZED"},
		{CodeForbidden, http.StatusForbidden, "ERROR_CODE_FORBIDDEN"},
		{CodeTimeout, http.StatusRequestTimeout, "ERROR_CODE_TIMEOUT"},
		{CodeUpstream, http.StatusBadGateway, "ERROR_CODE_UPSTREAM"},
		{CodeUnavailable, http.StatusServiceUnavailable, "ERROR_CODE_UNAVAILABLE"},
		{Code(99), http.StatusInternalServerError, "ERROR_CODE_INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.code.HTTPStatus())
			assert.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestNewServer_HidesCause(t *testing.T) {
	// Arrange
	cause := errors.New("dial tcp: connection refused")

	// Act
	err := NewServer(cause)

	// Assert
	gerr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "Internal server error", gerr.Msg())
	assert.Equal(t, cause.Error(), gerr.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, gerr.StatusCode())
}

func TestNewUpstream(t *testing.T) {
	cause := errors.New("soap fault")

	err := NewUpstream(cause, "Docmail is unavailable")

	assert.Equal(t, CodeUpstream, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	gerr, _ := As(err)
	assert.Equal(t, "Docmail is unavailable", gerr.Msg())
}

func TestNewInvalidInput(t *testing.T) {
	t.Run("field pairs", func(t *testing.T) {
		err := NewInvalidInput(nil, "name", "is required", "addresses", "must not be empty")

		gerr, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidInput, gerr.Code())
		assert.Equal(t, map[string]string{
			"name":      "is required",
			"addresses": "must not be empty",
		}, gerr.Fields())
	})

	t.Run("odd pairs degrade to invalid format", func(t *testing.T) {
		err := NewInvalidInput(nil, "name")

		assert.Equal(t, CodeInvalidFormat, CodeOf(err))
	})

	t.Run("wrapped validator error", func(t *testing.T) {
		cause := errors.New("Key: 'Name' failed on the 'required' tag")

		err := NewInvalidInput(cause)

		assert.Equal(t, CodeInvalidInput, CodeOf(err))
		assert.ErrorIs(t, err, cause)
	})
}

func TestNewInvalidFormat(t *testing.T) {
	gerr, _ := As(NewInvalidFormat())
	assert.Equal(t, "Invalid request body", gerr.Msg())

	gerr, _ = As(NewInvalidFormat("param must be an integer"))
	assert.Equal(t, "param must be an integer", gerr.Msg())
	assert.Equal(t, "param must be an integer", gerr.Error())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewBusiness("mailing not found", CodeNotFound))

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}
