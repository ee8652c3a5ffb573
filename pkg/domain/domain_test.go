package domain_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lifelong-app/lifelong/pkg/domain"
)

func TestIDFormat(t *testing.T) {
	entryPattern := regexp.MustCompile(`^entry-\d+-[0-9a-f]{9}$`)
	imagePattern := regexp.MustCompile(`^img-\d+-[0-9a-f]{9}$`)

	assert.Regexp(t, entryPattern, domain.NewEntryID())
	assert.Regexp(t, imagePattern, domain.NewImageID())
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		id := domain.NewImageID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
