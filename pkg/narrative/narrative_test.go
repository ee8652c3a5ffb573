package narrative_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/lifelong-app/lifelong/pkg/apperrors"
	"github.com/lifelong-app/lifelong/pkg/logging"
	"github.com/lifelong-app/lifelong/pkg/narrative"
)

type stubModel struct {
	completion string
	err        error
	calls      int
	lastParts  []llms.MessageContent
}

func (s *stubModel) GenerateContent(_ context.Context, content []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.calls++
	s.lastParts = content
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.completion}},
	}, nil
}

func (s *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func newGenerator(model llms.Model) *narrative.Generator {
	return narrative.NewGenerator(model, logging.NewQuiet())
}

func TestGenerateEmptyTranscriptIsInputError(t *testing.T) {
	gen := newGenerator(&stubModel{})

	for _, transcript := range []string{"", "   ", "\n\t"} {
		_, err := gen.Generate(context.Background(), narrative.Request{Transcript: transcript})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrInput, apperrors.CodeOf(err))
	}
}

func TestGenerateHappyPath(t *testing.T) {
	model := &stubModel{completion: `{"paragraphs": ["  Margaret visited the park today. ", "She fed the ducks with her grandson."]}`}
	gen := newGenerator(model)

	res, err := gen.Generate(context.Background(), narrative.Request{
		Transcript: "Um, today I, uh, went to the park and fed the ducks with my grandson.",
		UserName:   "Margaret",
	})
	require.NoError(t, err)
	require.Len(t, res.Paragraphs, 2)
	assert.Equal(t, 1, model.calls)

	// Paragraphs never carry surrounding whitespace.
	for _, p := range res.Paragraphs {
		assert.Equal(t, strings.TrimSpace(p), p)
		assert.NotEmpty(t, p)
	}
}

func TestGeneratePromptCarriesNameAndTranscript(t *testing.T) {
	model := &stubModel{completion: `{"paragraphs": ["ok"]}`}
	gen := newGenerator(model)

	_, err := gen.Generate(context.Background(), narrative.Request{
		Transcript: "  We baked bread.  ",
		UserName:   "Margaret",
	})
	require.NoError(t, err)

	require.Len(t, model.lastParts, 1)
	text := model.lastParts[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, text, "Margaret")
	assert.Contains(t, text, "We baked bread.")
	// Transcript is trimmed before being embedded.
	assert.NotContains(t, text, "  We baked bread.  ")
}

func TestGenerateDefaultsUserName(t *testing.T) {
	model := &stubModel{completion: `{"paragraphs": ["ok"]}`}
	gen := newGenerator(model)

	_, err := gen.Generate(context.Background(), narrative.Request{Transcript: "A day."})
	require.NoError(t, err)

	text := model.lastParts[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, text, "The speaker's name is they.")
}

func TestGenerateUpstreamErrorFallsBack(t *testing.T) {
	model := &stubModel{err: errors.New("service unavailable")}
	gen := newGenerator(model)

	transcript := "Um, today I, uh, went to the park and fed the ducks with my grandson."
	res, err := gen.Generate(context.Background(), narrative.Request{Transcript: transcript, UserName: "Margaret"})
	require.NoError(t, err)

	// One sentence -> one fallback paragraph, verbatim.
	assert.Equal(t, []string{transcript}, res.Paragraphs)
}

func TestGenerateMalformedJSONFallsBack(t *testing.T) {
	model := &stubModel{completion: `{"paragraphs": "not an array"}`}
	gen := newGenerator(model)

	res, err := gen.Generate(context.Background(), narrative.Request{
		Transcript: "First sentence. Second sentence. Third sentence. Fourth sentence.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"First sentence. Second sentence. Third sentence.",
		"Fourth sentence.",
	}, res.Paragraphs)
}

func TestGenerateEmptyParagraphsFallsBack(t *testing.T) {
	model := &stubModel{completion: `{"paragraphs": ["   ", ""]}`}
	gen := newGenerator(model)

	res, err := gen.Generate(context.Background(), narrative.Request{Transcript: "One sentence only."})
	require.NoError(t, err)
	assert.Equal(t, []string{"One sentence only."}, res.Paragraphs)
}

func TestFallbackSplitGroupsOfThree(t *testing.T) {
	text := "One. Two! Three? Four. Five."
	want := []string{"One. Two! Three?", "Four. Five."}

	assert.Equal(t, want, narrative.FallbackSplit(text))
}

func TestFallbackSplitDeterminism(t *testing.T) {
	text := "She woke early. The kettle sang! Was it raining? The garden waited. One more cup."
	first := narrative.FallbackSplit(text)
	for range 10 {
		assert.Equal(t, first, narrative.FallbackSplit(text))
	}
}

func TestFallbackSplitIgnoresDecimalPoints(t *testing.T) {
	// Punctuation not followed by whitespace is not a boundary.
	got := narrative.FallbackSplit("We walked 3.5 miles today. It was lovely.")
	assert.Equal(t, []string{"We walked 3.5 miles today. It was lovely."}, got)
}

func TestFallbackSplitTrailingTextWithoutPunctuation(t *testing.T) {
	got := narrative.FallbackSplit("A full sentence. and then a trailing fragment")
	assert.Equal(t, []string{"A full sentence. and then a trailing fragment"}, got)
}

func TestFallbackSplitEmptyInput(t *testing.T) {
	assert.Empty(t, narrative.FallbackSplit(""))
	assert.Empty(t, narrative.FallbackSplit("   \n  "))
}
