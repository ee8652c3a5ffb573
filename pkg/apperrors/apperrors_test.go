package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelong-app/lifelong/pkg/apperrors"
)

func TestErrorFormatting(t *testing.T) {
	err := apperrors.New(apperrors.ErrInput, "transcript is required")
	assert.Equal(t, "[INPUT_ERROR] transcript is required", err.Error())

	up := apperrors.New(apperrors.ErrUpstream, "transcription failed").WithStatus(401, "bad key")
	assert.Contains(t, up.Error(), "upstream status 401")
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := apperrors.Wrap(apperrors.ErrStorage, "failed to persist entry", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, apperrors.ErrStorage, apperrors.CodeOf(err))
}

func TestCodeOfWrappedChain(t *testing.T) {
	inner := apperrors.New(apperrors.ErrConfiguration, "missing GEMINI_API_KEY")
	outer := fmt.Errorf("pipeline: %w", inner)

	assert.Equal(t, apperrors.ErrConfiguration, apperrors.CodeOf(outer))
	assert.True(t, apperrors.HasCode(outer, apperrors.ErrConfiguration))
	assert.Equal(t, apperrors.Code(""), apperrors.CodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"input", apperrors.New(apperrors.ErrInput, "x"), http.StatusBadRequest},
		{"not found", apperrors.New(apperrors.ErrNotFound, "x"), http.StatusNotFound},
		{"upstream with status", apperrors.New(apperrors.ErrUpstream, "x").WithStatus(429, ""), http.StatusTooManyRequests},
		{"upstream without status", apperrors.New(apperrors.ErrUpstream, "x"), http.StatusBadGateway},
		{"schema", apperrors.New(apperrors.ErrSchemaValidation, "x"), http.StatusBadGateway},
		{"empty result", apperrors.New(apperrors.ErrEmptyResult, "x"), http.StatusBadGateway},
		{"configuration", apperrors.New(apperrors.ErrConfiguration, "x"), http.StatusInternalServerError},
		{"storage", apperrors.New(apperrors.ErrStorage, "x"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.HTTPStatus(tt.err))
		})
	}
}
