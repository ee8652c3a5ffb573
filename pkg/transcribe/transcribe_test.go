package transcribe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelong-app/lifelong/pkg/apperrors"
	"github.com/lifelong-app/lifelong/pkg/logging"
	"github.com/lifelong-app/lifelong/pkg/transcribe"
)

func TestTranscribeMissingCredential(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	tr := transcribe.New("", "", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	_, err := tr.Transcribe(context.Background(), []byte("audio"), "a.webm", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConfiguration, apperrors.CodeOf(err))
	assert.False(t, called, "credential check happens before any network call")
}

func TestTranscribeEmptyAudio(t *testing.T) {
	tr := transcribe.New("key", "", logging.NewQuiet())
	_, err := tr.Transcribe(context.Background(), nil, "", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInput, apperrors.CodeOf(err))
}

func TestTranscribeForwardsMultipartFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		assert.Equal(t, "en", r.FormValue("language_code"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "narration.webm", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "Today was a good day."}`))
	}))
	defer srv.Close()

	tr := transcribe.New("secret-key", "scribe_v1", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	res, err := tr.Transcribe(context.Background(), []byte("fake audio bytes"), "narration.webm", "en")

	require.NoError(t, err)
	assert.Equal(t, "Today was a good day.", res.Transcript)
}

func TestTranscribeUpstreamFailureCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer srv.Close()

	tr := transcribe.New("bad-key", "", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	_, err := tr.Transcribe(context.Background(), []byte("audio"), "", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUpstream, apperrors.CodeOf(err))
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.UpstreamBody, "invalid api key")
}

func TestTranscribeEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text": "   "}`))
	}))
	defer srv.Close()

	tr := transcribe.New("key", "", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	_, err := tr.Transcribe(context.Background(), []byte("audio"), "", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrEmptyResult, apperrors.CodeOf(err))
}

func TestTranscribeNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	tr := transcribe.New("key", "", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	_, err := tr.Transcribe(context.Background(), []byte("audio"), "", "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSchemaValidation, apperrors.CodeOf(err))
}

func TestTranscribeSingleRequestOnly(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := transcribe.New("key", "", logging.NewQuiet(), transcribe.WithBaseURL(srv.URL))
	_, err := tr.Transcribe(context.Background(), []byte("audio"), "", "")

	require.Error(t, err)
	assert.Equal(t, 1, requests, "no retries")
}
