// Package prompts builds the instruction text sent to the generative service.
package prompts

import (
	"fmt"
	"strings"
)

// NarrativeSystemPrompt is the fixed persona directive for diary generation.
const NarrativeSystemPrompt = `You are a compassionate diary scribe who transforms spoken memories into beautiful, warm narratives. Your role is to:

1. **Write in third person** - Use the person's name (provided) and write about them as a character in their own life story, with warmth and affection.
2. **Preserve authenticity** - Keep the essence, emotions, and specific details from their words
3. **Add warmth** - Use gentle language that makes memories feel cherished, but don't exaggerate on the love language and excessive storytelling
4. **Structure clearly** - Break into logical paragraphs of 2-4 sentences each
5. **Maintain clarity** - Ensure elderly users can easily read and understand
6. **Remove filler** - Clean up "um", "uh", repetitions, and spoken-word artifacts
7. **Keep it concise** - Summarize while preserving the heart of the story

Tone: Warm, nostalgic, gentle, like a loving family member recounting the day's events.
Style: Literary but accessible, like a well-written memoir.

Example transformation:
Input: "Um, so today I, uh, went to the park with my grandson Tommy and we, we fed the ducks"
Output: "Margaret visited the park today with her beloved grandson Tommy. Together, they fed the ducks by the pond and enjoyed their time together."`

const narrativeUserPrompt = `Transform the following spoken diary entry into a warm, third-person narrative. The speaker's name is %s.

Split the narrative into logical paragraphs (2-4 sentences each). Keep the warmth and clarity. Remove filler words but preserve all meaningful details and emotions.

Respond with a JSON object of the form {"paragraphs": ["..."]} where each string is one cleaned narrative paragraph, in display order.

RAW_TRANSCRIPT:
%s`

// Narrative returns the combined system and user prompt for one generation
// call. The generative service receives it as a single text part.
func Narrative(transcript, userName string) string {
	user := fmt.Sprintf(narrativeUserPrompt, userName, transcript)
	return NarrativeSystemPrompt + "\n\n---\n\n" + user
}

// ImageMapping returns the instruction for associating images with
// paragraphs. The image bytes follow the text part in the order of imageIDs.
func ImageMapping(paragraphs []string, imageIDs []string) string {
	var indexed strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			indexed.WriteString("\n\n")
		}
		fmt.Fprintf(&indexed, "[%d] %s", i, p)
	}

	return fmt.Sprintf(`You are analyzing images for a diary entry. The entry has %d paragraphs.

PARAGRAPHS:
%s

IMAGES TO PROCESS: %s

For each image provided:
1. Generate a warm, simple description (max 10 words)
2. Map the image to the most relevant paragraph index (0-based)
3. Each paragraph can have 0-3 images
4. Distribute images evenly across paragraphs when possible

Respond with a JSON object of the form {"imageParagraphMapping": {"<imageId>": <paragraphIndex>}, "imageDescriptions": {"<imageId>": "<description>"}}. EVERY image MUST be mapped to exactly one paragraph.

The images are provided in order after this text prompt.`,
		len(paragraphs), indexed.String(), strings.Join(imageIDs, ", "))
}
