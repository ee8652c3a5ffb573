package llmclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/lifelong-app/lifelong/pkg/apperrors"
	"github.com/lifelong-app/lifelong/pkg/environment"
	"github.com/lifelong-app/lifelong/pkg/llmclient"
)

type stubModel struct {
	response *llms.ContentResponse
	err      error
}

func (s *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return s.response, s.err
}

func (s *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func testEnv(t *testing.T) *environment.Environment {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	env, err := environment.NewEnvironment(afero.NewMemMapFs())
	require.NoError(t, err)
	return env
}

func TestNewGoogleAIWithoutKeyFailsBeforeAnyRequest(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	env := testEnv(t)
	env.LLMBackend = "googleai"

	_, err := llmclient.New(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConfiguration, apperrors.CodeOf(err))
}

func TestNewUnsupportedBackend(t *testing.T) {
	env := testEnv(t)
	env.LLMBackend = "carrier-pigeon"

	_, err := llmclient.New(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConfiguration, apperrors.CodeOf(err))
}

func TestGenerateJSONReturnsCompletion(t *testing.T) {
	model := &stubModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: `{"paragraphs":["hello"]}`}},
	}}

	content := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "prompt")}
	out, err := llmclient.GenerateJSON(context.Background(), model, content, 2048)
	require.NoError(t, err)
	assert.JSONEq(t, `{"paragraphs":["hello"]}`, out)
}

func TestGenerateJSONUpstreamError(t *testing.T) {
	model := &stubModel{err: errors.New("rate limited")}

	_, err := llmclient.GenerateJSON(context.Background(), model, nil, 1024)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUpstream, apperrors.CodeOf(err))
}

func TestGenerateJSONEmptyChoices(t *testing.T) {
	model := &stubModel{response: &llms.ContentResponse{}}

	_, err := llmclient.GenerateJSON(context.Background(), model, nil, 1024)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrEmptyResult, apperrors.CodeOf(err))
}
