package prompts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lifelong-app/lifelong/pkg/prompts"
)

func TestNarrativeContainsTranscriptAndName(t *testing.T) {
	p := prompts.Narrative("Today we baked bread.", "Margaret")

	assert.Contains(t, p, "The speaker's name is Margaret.")
	assert.Contains(t, p, "RAW_TRANSCRIPT:\nToday we baked bread.")
	assert.Contains(t, p, `{"paragraphs"`)
	assert.Contains(t, p, prompts.NarrativeSystemPrompt)
}

func TestImageMappingIndexesParagraphs(t *testing.T) {
	p := prompts.ImageMapping(
		[]string{"First paragraph.", "Second paragraph."},
		[]string{"img-1", "img-2"},
	)

	assert.Contains(t, p, "The entry has 2 paragraphs.")
	assert.Contains(t, p, "[0] First paragraph.")
	assert.Contains(t, p, "[1] Second paragraph.")
	assert.Contains(t, p, "IMAGES TO PROCESS: img-1, img-2")
	assert.Contains(t, p, "Each paragraph can have 0-3 images")
}
