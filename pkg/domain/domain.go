// Package domain holds the persisted and request-scoped types of the diary
// pipeline.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultUserName is used when an entry was captured without a name.
const DefaultUserName = "they"

// DiaryEntry is the persisted aggregate produced by a completed pipeline run.
type DiaryEntry struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Timestamp  int64  `json:"timestamp"`
	Transcript string `json:"transcript"`
	UserName   string `json:"userName"`

	// Paragraphs is the generated narrative, insertion order = display order.
	Paragraphs []string `json:"paragraphs"`

	// ImageIDs are the stored images associated with this entry, in upload
	// order.
	ImageIDs []string `json:"imageIds"`

	// ImageParagraphMapping maps every image id to a zero-based paragraph
	// index. After generation completes the key set equals ImageIDs.
	ImageParagraphMapping map[string]int `json:"imageParagraphMapping"`

	// ImageDescriptions maps every image id to a short caption.
	ImageDescriptions map[string]string `json:"imageDescriptions"`

	// AudioPath points at the recorded narration blob, empty when the entry
	// was typed rather than spoken.
	AudioPath string `json:"audioPath,omitempty"`
}

// EntryPreview is the minimal projection used for entry lists.
type EntryPreview struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	Timestamp      int64  `json:"timestamp"`
	PreviewImageID string `json:"previewImageId,omitempty"`
}

// StoredImage is binary image content plus its bookkeeping row. EntryID is
// empty and ParagraphIndex nil while the image is still unassociated.
type StoredImage struct {
	ID             string `json:"id"`
	EntryID        string `json:"entryId,omitempty"`
	ParagraphIndex *int   `json:"paragraphIndex"`
	Timestamp      int64  `json:"timestamp"`
	Size           int64  `json:"size"`
	MimeType       string `json:"mimeType"`
	Blob           []byte `json:"-"`
}

// ImageDescriptor is the request-scoped id+payload pair sent to the
// generative service. Base64 holds a data URL; only the ID and the derived
// caption/mapping are retained on the entry.
type ImageDescriptor struct {
	ID     string `json:"id"`
	Base64 string `json:"base64"`
}

// NewEntryID generates a unique diary entry identifier.
func NewEntryID() string {
	return newID("entry")
}

// NewImageID generates a unique stored image identifier.
func NewImageID() string {
	return newID("img")
}

// newID combines a millisecond timestamp with random entropy so that ids
// from the same session never collide.
func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
